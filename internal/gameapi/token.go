package gameapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields the game server puts in a player token.
type Claims struct {
	jwt.RegisteredClaims
	PlayerID string `json:"playerId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
	GameID   string `json:"gameId,omitempty"`
}

// InspectToken decodes a bearer token without verifying its signature.
// Issuance and verification belong to the server; agents only read the
// claims to notice expiry early.
func InspectToken(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("gameapi: inspect token: %w", err)
	}
	return claims, nil
}

// Expiry returns the exp claim, or the zero time when absent.
func (c *Claims) Expiry() time.Time {
	if c == nil || c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}
