// Package gameapi is the HTTP client for the HawkOps game server: the state
// source agents poll and the action sink they write to.
package gameapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrTokenExpired is returned before any request is sent once the bearer
// token's exp claim has passed.
var ErrTokenExpired = errors.New("gameapi: token expired")

// Error is a non-2xx response from the game server.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Method     string
	Path       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gameapi: %s %s: %s (%d): %s", e.Method, e.Path, e.Code, e.StatusCode, e.Message)
}

func statusIs(err error, code int) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode == code
	}
	return false
}

// IsNotFound reports a 404: the target no longer exists server-side.
func IsNotFound(err error) bool { return statusIs(err, http.StatusNotFound) }

// IsUnauthorized reports a 401.
func IsUnauthorized(err error) bool { return statusIs(err, http.StatusUnauthorized) }

// IsConflict reports a 409, typically a transition another agent already made.
func IsConflict(err error) bool { return statusIs(err, http.StatusConflict) }

// IsTransient reports failures worth re-attempting on a later cycle:
// server errors, throttling and errors that never produced a response.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, ErrTokenExpired) {
		return false
	}
	var e *Error
	if errors.As(err, &e) {
		return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
	}
	return true
}
