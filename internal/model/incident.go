// Package model defines the shared value types of the HawkOps simulation.
//
// Incidents, change requests and plans are owned by the game server; agents
// only ever hold them inside a single cycle's Perception.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Priority is the business urgency of an incident.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// IsUrgent reports whether the priority is critical or high.
func (p Priority) IsUrgent() bool {
	return p == PriorityCritical || p == PriorityHigh
}

// IncidentStatus is the lifecycle state of an incident.
type IncidentStatus string

const (
	StatusOpen       IncidentStatus = "open"
	StatusInProgress IncidentStatus = "in_progress"
	StatusResolved   IncidentStatus = "resolved"
	StatusClosed     IncidentStatus = "closed"
)

// StatusRank returns the position of s in the open → closed sequence.
// Unknown statuses rank 0 so they can never be the target of a transition.
func StatusRank(s IncidentStatus) int {
	switch s {
	case StatusOpen:
		return 1
	case StatusInProgress:
		return 2
	case StatusResolved:
		return 3
	case StatusClosed:
		return 4
	default:
		return 0
	}
}

// CanTransition reports whether moving from s to next is strictly forward.
func (s IncidentStatus) CanTransition(next IncidentStatus) bool {
	from, to := StatusRank(s), StatusRank(next)
	return from > 0 && to > from
}

// IsActive reports whether the incident still needs work.
func (s IncidentStatus) IsActive() bool {
	return s == StatusOpen || s == StatusInProgress
}

// Incident is a service disruption reported against a team.
type Incident struct {
	ID             uuid.UUID      `json:"id"`
	Number         string         `json:"incidentNumber"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Priority       Priority       `json:"priority"`
	Status         IncidentStatus `json:"status"`
	SLADeadline    *time.Time     `json:"slaDeadline,omitempty"`
	AssignedTeamID string         `json:"assignedTeamId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Label returns the human-readable number, falling back to the ID.
func (i Incident) Label() string {
	if i.Number != "" {
		return i.Number
	}
	return i.ID.String()
}
