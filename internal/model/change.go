package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ChangeType is the ITIL change category.
type ChangeType string

const (
	ChangeStandard  ChangeType = "standard"
	ChangeNormal    ChangeType = "normal"
	ChangeEmergency ChangeType = "emergency"
)

// RiskLevel grades the blast radius of a change or plan.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// IsElevated reports whether the risk is high or critical.
func (r RiskLevel) IsElevated() bool {
	return r == RiskHigh || r == RiskCritical
}

// ChangeStatus is the outcome state of a change request.
type ChangeStatus string

const (
	ChangePending     ChangeStatus = "pending"
	ChangeApproved    ChangeStatus = "approved"
	ChangeRejected    ChangeStatus = "rejected"
	ChangeImplemented ChangeStatus = "implemented"
	ChangeCancelled   ChangeStatus = "cancelled"
)

// WorkflowState tracks where a change sits in the CAB workflow.
type WorkflowState string

const (
	WorkflowPendingCAB     WorkflowState = "pending_cab"
	WorkflowUnderReview    WorkflowState = "under_review"
	WorkflowReviewComplete WorkflowState = "review_complete"
	WorkflowApproved       WorkflowState = "approved"
	WorkflowRejected       WorkflowState = "rejected"
)

// ChangeRequest is a proposed modification to production services.
type ChangeRequest struct {
	ID                 uuid.UUID     `json:"id"`
	Number             string        `json:"changeNumber"`
	Title              string        `json:"title"`
	Description        string        `json:"description,omitempty"`
	ChangeType         ChangeType    `json:"changeType"`
	RiskLevel          RiskLevel     `json:"riskLevel"`
	ImplementationPlan *string       `json:"implementationPlan"`
	RollbackPlan       *string       `json:"rollbackPlan"`
	TechnicalReview    *string       `json:"technicalReview"`
	AffectedServices   []string      `json:"affectedServices"`
	Status             ChangeStatus  `json:"status"`
	WorkflowState      WorkflowState `json:"workflowState"`
	CreatedAt          time.Time     `json:"createdAt"`
}

// Label returns the change number, falling back to the ID.
func (c ChangeRequest) Label() string {
	if c.Number != "" {
		return c.Number
	}
	return c.ID.String()
}

// TextLen returns the trimmed length of an optional free-text field.
func TextLen(s *string) int {
	if s == nil {
		return 0
	}
	return len(strings.TrimSpace(*s))
}

// PlanStatus is the lifecycle of an implementation plan.
type PlanStatus string

const (
	PlanDraft     PlanStatus = "draft"
	PlanSubmitted PlanStatus = "submitted"
	PlanApproved  PlanStatus = "approved"
	PlanRejected  PlanStatus = "rejected"
)

// ImplementationPlan is a remediation plan drafted for an incident.
type ImplementationPlan struct {
	ID         uuid.UUID  `json:"id"`
	IncidentID uuid.UUID  `json:"incidentId"`
	Title      string     `json:"title"`
	Steps      []string   `json:"steps"`
	RiskLevel  RiskLevel  `json:"riskLevel"`
	Status     PlanStatus `json:"status"`
	Source     string     `json:"source,omitempty"` // "ai" or "fallback"
	CreatedAt  time.Time  `json:"createdAt"`
}
