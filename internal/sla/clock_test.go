package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

var now = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := now.Add(d)
	return &t
}

func TestClassify(t *testing.T) {
	c := New(30 * time.Minute)

	tests := []struct {
		name     string
		deadline *time.Time
		want     model.SLAStatus
	}{
		{"no deadline", nil, model.SLANone},
		{"zero deadline", &time.Time{}, model.SLANone},
		{"long past", at(-48 * time.Hour), model.SLABreached},
		{"exactly now", at(0), model.SLABreached},
		{"one second left", at(time.Second), model.SLAAtRisk},
		{"window edge", at(30 * time.Minute), model.SLAAtRisk},
		{"just outside window", at(30*time.Minute + time.Second), model.SLAOK},
		{"far future", at(6 * time.Hour), model.SLAOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.deadline, now))
		})
	}
}

func TestBreachedImpliesAtRisk(t *testing.T) {
	c := Clock{}
	d := at(-time.Minute)
	assert.True(t, c.IsBreached(d, now))
	assert.True(t, c.IsAtRisk(d, now))

	future := at(10 * time.Minute)
	assert.False(t, c.IsBreached(future, now))
	assert.True(t, c.IsAtRisk(future, now))

	assert.False(t, c.IsBreached(nil, now))
	assert.False(t, c.IsAtRisk(nil, now))
}

func TestZeroClockUsesDefaultWindow(t *testing.T) {
	var c Clock
	assert.Equal(t, model.SLAAtRisk, c.Classify(at(DefaultRiskWindow), now))
	assert.Equal(t, model.SLAOK, c.Classify(at(DefaultRiskWindow+time.Minute), now))
	assert.Equal(t, DefaultRiskWindow, New(-1).RiskWindow)
}

func TestClassifyIsStableForFixedNow(t *testing.T) {
	c := New(time.Hour)
	d := at(45 * time.Minute)
	first := c.Classify(d, now)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, c.Classify(d, now))
	}
}

func TestRemaining(t *testing.T) {
	assert.Equal(t, time.Duration(0), Remaining(nil, now))
	assert.Equal(t, 5*time.Minute, Remaining(at(5*time.Minute), now))
	assert.Equal(t, -time.Hour, Remaining(at(-time.Hour), now))
}
