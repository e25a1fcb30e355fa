// Package action applies a Decision to the game server as exactly one
// externally observable effect.
package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cocheuno/HawkOps-sub002/internal/gameapi"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/telemetry"
)

var (
	// ErrTargetNotFound means the decision names something the perception
	// (or the server) does not know.
	ErrTargetNotFound = errors.New("action: target not found")

	// ErrInvalidTransition means applying the decision would move an
	// incident backwards or sideways.
	ErrInvalidTransition = errors.New("action: invalid status transition")

	// ErrUnsupported means the action kind has no effect the executor knows.
	ErrUnsupported = errors.New("action: unsupported action")
)

// Sink is the mutating half of the game API.
type Sink interface {
	SetIncidentStatus(ctx context.Context, id uuid.UUID, status model.IncidentStatus) error
	Escalate(ctx context.Context, id uuid.UUID, reason string) error
	ApproveChange(ctx context.Context, id uuid.UUID, notes string) error
	RejectChange(ctx context.Context, id uuid.UUID, notes string) error
	SubmitTechnicalReview(ctx context.Context, id uuid.UUID, notes, recommendation string) error
	SubmitPlan(ctx context.Context, incidentID uuid.UUID, plan model.ImplementationPlan) error
}

// Outcome reports what Apply did.
type Outcome struct {
	Action  model.ActionKind
	Target  uuid.UUID
	Applied bool  // a mutating call succeeded
	Err     error // nil when applied or when the action is log-only
}

// Executor applies decisions. It never retries: a failed call is logged and
// left to the next cycle.
type Executor struct {
	sink   Sink
	logger *slog.Logger

	failures metric.Int64Counter
}

// NewExecutor creates an Executor writing to sink.
func NewExecutor(sink Sink, logger *slog.Logger) *Executor {
	meter := telemetry.Meter("hawkops/action")
	failures, _ := meter.Int64Counter("hawkops.action.failures",
		metric.WithDescription("Decisions whose effect could not be applied"),
	)
	return &Executor{sink: sink, logger: logger, failures: failures}
}

// Apply performs at most one mutating call for d. A nil decision is a no-op.
func (e *Executor) Apply(ctx context.Context, d *model.Decision, p model.Perception) Outcome {
	if d == nil {
		return Outcome{}
	}
	out := Outcome{Action: d.Action, Target: d.Target()}
	out.Err = e.apply(ctx, *d, p)
	out.Applied = out.Err == nil && d.Action.Mutates()

	if out.Err != nil {
		level := slog.LevelWarn
		if errors.Is(out.Err, ErrTargetNotFound) || errors.Is(out.Err, ErrInvalidTransition) {
			level = slog.LevelInfo
		}
		e.logger.Log(ctx, level, "action not applied",
			"action", d.Action, "target", out.Target, "rule", d.Rule, "error", out.Err)
		if e.failures != nil {
			e.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("action", string(d.Action))))
		}
	}
	return out
}

func (e *Executor) apply(ctx context.Context, d model.Decision, p model.Perception) error {
	switch d.Action {
	case model.ActionManagementAlert:
		e.logger.Warn("management alert",
			"breached", d.Params[model.ParamBreached],
			"reasoning", d.Reasoning,
			"recommendations", strings.Join(p.Recommendations, "; "))
		return nil

	case model.ActionReviewChange:
		// Only reached when the policy could not resolve the review.
		return fmt.Errorf("%w: %s was not resolved to a verdict", ErrUnsupported, d.Action)

	case model.ActionStartWork:
		return e.transition(ctx, d, p, model.StatusInProgress)

	case model.ActionResolve:
		return e.transition(ctx, d, p, model.StatusResolved)

	case model.ActionEscalate:
		if _, err := e.incident(d, p); err != nil {
			return err
		}
		reason := d.Param(model.ParamReason)
		if reason == "" {
			reason = d.Reasoning
		}
		return e.call("escalate", e.sink.Escalate(ctx, d.Target(), reason))

	case model.ActionDraftPlan:
		inc, err := e.incident(d, p)
		if err != nil {
			return err
		}
		plan, ok := d.Params[model.ParamPlan].(model.ImplementationPlan)
		if !ok || len(plan.Steps) == 0 {
			return fmt.Errorf("action: draft_plan for %s carries no plan", inc.Label())
		}
		plan.IncidentID = inc.ID
		return e.call("submit plan", e.sink.SubmitPlan(ctx, inc.ID, plan))
	}

	// Remaining kinds act on a change request.
	cr, ok := p.FindChange(d.Target())
	if !ok {
		return fmt.Errorf("%w: change %s", ErrTargetNotFound, d.Target())
	}
	notes := d.Param(model.ParamNotes)
	switch d.Action {
	case model.ActionApproveChange:
		return e.call("approve change", e.sink.ApproveChange(ctx, cr.ID, notes))
	case model.ActionRejectChange:
		return e.call("reject change", e.sink.RejectChange(ctx, cr.ID, notes))
	case model.ActionTechnicalReview:
		return e.call("technical review", e.sink.SubmitTechnicalReview(ctx, cr.ID, notes, d.Param(model.ParamRecommend)))
	default:
		return fmt.Errorf("%w: %q", ErrUnsupported, d.Action)
	}
}

func (e *Executor) incident(d model.Decision, p model.Perception) (model.PerceivedIncident, error) {
	if d.TargetID == nil {
		return model.PerceivedIncident{}, fmt.Errorf("%w: %s has no target", ErrTargetNotFound, d.Action)
	}
	inc, ok := p.FindIncident(*d.TargetID)
	if !ok {
		return model.PerceivedIncident{}, fmt.Errorf("%w: incident %s", ErrTargetNotFound, *d.TargetID)
	}
	return inc, nil
}

// transition moves a perceived incident forward. The check is against the
// perceived status; the server stays the authority when another agent got
// there first.
func (e *Executor) transition(ctx context.Context, d model.Decision, p model.Perception, next model.IncidentStatus) error {
	inc, err := e.incident(d, p)
	if err != nil {
		return err
	}
	if !inc.Status.CanTransition(next) {
		return fmt.Errorf("%w: %s %s -> %s", ErrInvalidTransition, inc.Label(), inc.Status, next)
	}
	return e.call("set status", e.sink.SetIncidentStatus(ctx, inc.ID, next))
}

func (e *Executor) call(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case gameapi.IsNotFound(err):
		return fmt.Errorf("action: %s: %w: %w", op, ErrTargetNotFound, err)
	case gameapi.IsConflict(err):
		return fmt.Errorf("action: %s: %w: %w", op, ErrInvalidTransition, err)
	default:
		return fmt.Errorf("action: %s: %w", op, err)
	}
}
