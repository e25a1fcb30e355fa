// Package sla classifies service-level deadlines as ok, at risk, or breached.
//
// Every function here is pure. Callers take one "now" per agent cycle and
// pass it to every call so that all urgency judgments inside a Perception
// agree with each other.
package sla

import (
	"time"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// DefaultRiskWindow is how close to its deadline an item becomes at risk.
const DefaultRiskWindow = 30 * time.Minute

// Clock holds the at-risk threshold. The zero value uses DefaultRiskWindow.
type Clock struct {
	RiskWindow time.Duration
}

// New returns a Clock with the given risk window; non-positive values
// select DefaultRiskWindow.
func New(window time.Duration) Clock {
	if window <= 0 {
		window = DefaultRiskWindow
	}
	return Clock{RiskWindow: window}
}

func (c Clock) window() time.Duration {
	if c.RiskWindow <= 0 {
		return DefaultRiskWindow
	}
	return c.RiskWindow
}

// Classify returns the SLA status of deadline at now. A missing deadline is
// never at risk. A deadline at or before now is breached, with no grace
// period for items first seen after they expired.
func (c Clock) Classify(deadline *time.Time, now time.Time) model.SLAStatus {
	if deadline == nil || deadline.IsZero() {
		return model.SLANone
	}
	if !now.Before(*deadline) {
		return model.SLABreached
	}
	if deadline.Sub(now) <= c.window() {
		return model.SLAAtRisk
	}
	return model.SLAOK
}

// IsBreached reports whether deadline has passed at now.
func (c Clock) IsBreached(deadline *time.Time, now time.Time) bool {
	return c.Classify(deadline, now) == model.SLABreached
}

// IsAtRisk reports whether deadline is at risk or already breached at now.
func (c Clock) IsAtRisk(deadline *time.Time, now time.Time) bool {
	s := c.Classify(deadline, now)
	return s == model.SLAAtRisk || s == model.SLABreached
}

// Remaining returns the time left before deadline; negative once breached
// and zero when there is no deadline.
func Remaining(deadline *time.Time, now time.Time) time.Duration {
	if deadline == nil || deadline.IsZero() {
		return 0
	}
	return deadline.Sub(now)
}
