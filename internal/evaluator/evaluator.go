// Package evaluator scores change requests, technical reviews and remediation
// plans.
//
// Two implementations exist. AI asks a language model and may fail with an
// error wrapping ErrUnavailable. Fallback applies fixed rules and never
// fails. Callers are expected to try AI first and switch to Fallback on any
// error; the policy package does exactly that.
package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Verdict sources recorded in decision params.
const (
	SourceAI       = "ai"
	SourceFallback = "fallback"
	SourceGuard    = "guard"
)

// ErrUnavailable marks any failure of the AI path. Match it with errors.Is.
var ErrUnavailable = errors.New("evaluator: evaluation unavailable")

// UnavailableError records which stage of the AI pipeline failed.
type UnavailableError struct {
	Stage string // provider, rate_limit, parse, validate
	Err   error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("evaluator: %s: %v", e.Stage, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrUnavailable }

func unavailable(stage string, err error) error {
	return &UnavailableError{Stage: stage, Err: err}
}

// Review types selected by the management chain.
const (
	ReviewExpedited = "expedited"
	ReviewThorough  = "thorough"
	ReviewStandard  = "standard"
)

// ChangeReviewRequest asks for an approve/reject recommendation.
type ChangeReviewRequest struct {
	Change          model.ChangeRequest
	Personality     model.Personality
	ReviewType      string
	Thorough        bool
	Recommendations []string
}

// ChangeVerdict is the recommendation for a change.
type ChangeVerdict struct {
	Approve   bool   `json:"approve"`
	Notes     string `json:"notes"`
	Reasoning string `json:"reasoning"`
	Source    string `json:"-"`
}

// TechnicalReviewRequest asks for a technical assessment of a change.
type TechnicalReviewRequest struct {
	Change      model.ChangeRequest
	Personality model.Personality
}

// TechnicalAssessment is the note technical operations attaches to a change.
type TechnicalAssessment struct {
	Recommendation string          `json:"recommendation"` // approve or reject
	Notes          string          `json:"notes"`
	RiskLevel      model.RiskLevel `json:"riskLevel"`
	Source         string          `json:"-"`
}

// PlanRequest asks for a remediation plan for an incident.
type PlanRequest struct {
	Incident    model.PerceivedIncident
	Personality model.Personality
}

// PlanDraft is a proposed remediation plan.
type PlanDraft struct {
	Title     string          `json:"title"`
	Steps     []string        `json:"steps"`
	RiskLevel model.RiskLevel `json:"riskLevel"`
	Source    string          `json:"-"`
}

// Evaluator is implemented by AI and Fallback.
type Evaluator interface {
	ReviewChange(ctx context.Context, req ChangeReviewRequest) (ChangeVerdict, error)
	TechnicalReview(ctx context.Context, req TechnicalReviewRequest) (TechnicalAssessment, error)
	DraftPlan(ctx context.Context, req PlanRequest) (PlanDraft, error)
}
