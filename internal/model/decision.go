package model

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind names the effect a Decision asks the executor to apply.
type ActionKind string

const (
	ActionStartWork       ActionKind = "start_work"
	ActionResolve         ActionKind = "resolve"
	ActionEscalate        ActionKind = "escalate"
	ActionReviewChange    ActionKind = "review_change" // resolved into approve/reject before act
	ActionApproveChange   ActionKind = "approve_change"
	ActionRejectChange    ActionKind = "reject_change"
	ActionManagementAlert ActionKind = "management_alert"
	ActionTechnicalReview ActionKind = "technical_review"
	ActionDraftPlan       ActionKind = "draft_plan"
)

// Mutates reports whether applying the action calls the game server.
func (a ActionKind) Mutates() bool {
	switch a {
	case ActionManagementAlert, ActionReviewChange:
		return false
	default:
		return true
	}
}

// Parameter keys carried in Decision.Params.
const (
	ParamReason     = "reason"
	ParamNotes      = "notes"
	ParamReviewType = "review_type" // expedited, thorough, standard
	ParamThorough   = "thorough"
	ParamSource     = "source" // ai, fallback, guard
	ParamPlan       = "plan"
	ParamBreached   = "breached_count"
	ParamRecommend  = "recommendation"
)

// Decision is the single action an agent commits to in one cycle.
// Lower Priority is more urgent. A nil *Decision means "no action".
type Decision struct {
	Action    ActionKind     `json:"action"`
	TargetID  *uuid.UUID     `json:"target_id,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Reasoning string         `json:"reasoning"`
	Priority  int            `json:"priority"`
	Rule      string         `json:"rule,omitempty"`
}

// Target returns the target ID or uuid.Nil.
func (d Decision) Target() uuid.UUID {
	if d.TargetID == nil {
		return uuid.Nil
	}
	return *d.TargetID
}

// Param returns a string parameter, or "" when absent or not a string.
func (d Decision) Param(key string) string {
	s, _ := d.Params[key].(string)
	return s
}

// Flag returns a boolean parameter, false when absent.
func (d Decision) Flag(key string) bool {
	b, _ := d.Params[key].(bool)
	return b
}

// Workload buckets the number of active items a team is carrying.
type Workload string

const (
	WorkloadLow        Workload = "low"
	WorkloadMedium     Workload = "medium"
	WorkloadHigh       Workload = "high"
	WorkloadOverloaded Workload = "overloaded"
)

// TeamHealth summarizes the resources of the agent's team.
type TeamHealth struct {
	Budget      float64  `json:"budget"`
	Morale      int      `json:"morale"`
	Workload    Workload `json:"workload"`
	ActiveItems int      `json:"active_items"`
}

// Perception is one cycle's role-filtered view of the game. It is built once
// and never mutated; the next cycle builds a fresh one.
type Perception struct {
	Role            AgentRole            `json:"role"`
	Personality     Personality          `json:"personality"`
	TeamID          string               `json:"team_id"`
	ObservedAt      time.Time            `json:"observed_at"`
	UrgentIncidents []PerceivedIncident  `json:"urgent_incidents"`
	PendingWork     []PerceivedIncident  `json:"pending_work"`
	ReviewQueue     []ChangeRequest      `json:"review_queue"`
	PlanQueue       []PerceivedIncident  `json:"plan_queue,omitempty"`
	Plans           []ImplementationPlan `json:"plans,omitempty"`
	BreachedCount   int                  `json:"breached_count"`
	Health          TeamHealth           `json:"health"`
	Recommendations []string             `json:"recommendations"`
}

// SLAStatus is the time-based urgency of an item at a given instant.
type SLAStatus string

const (
	SLANone     SLAStatus = "none"
	SLAOK       SLAStatus = "ok"
	SLAAtRisk   SLAStatus = "at_risk"
	SLABreached SLAStatus = "breached"
)

// PerceivedIncident pairs an incident with its SLA classification at
// Perception.ObservedAt.
type PerceivedIncident struct {
	Incident
	SLA SLAStatus `json:"sla"`
}

// Breached reports whether the SLA had already passed when perceived.
func (p PerceivedIncident) Breached() bool { return p.SLA == SLABreached }

// AtRisk reports whether the SLA was at risk or breached when perceived.
func (p PerceivedIncident) AtRisk() bool { return p.SLA == SLAAtRisk || p.SLA == SLABreached }

// FindIncident looks up an incident anywhere in the perception.
func (p Perception) FindIncident(id uuid.UUID) (PerceivedIncident, bool) {
	for _, list := range [][]PerceivedIncident{p.UrgentIncidents, p.PendingWork, p.PlanQueue} {
		for _, inc := range list {
			if inc.ID == id {
				return inc, true
			}
		}
	}
	return PerceivedIncident{}, false
}

// FindChange looks up a change request in the review queue.
func (p Perception) FindChange(id uuid.UUID) (ChangeRequest, bool) {
	for _, cr := range p.ReviewQueue {
		if cr.ID == id {
			return cr, true
		}
	}
	return ChangeRequest{}, false
}
