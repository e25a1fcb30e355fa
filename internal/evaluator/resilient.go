package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cocheuno/HawkOps-sub002/internal/telemetry"
)

// Resilient runs the primary evaluator and substitutes the fallback on any
// error or panic. Its methods always produce a result.
type Resilient struct {
	primary  Evaluator
	fallback Fallback
	logger   *slog.Logger

	fallbacks metric.Int64Counter
}

// WithFallback composes primary with fallback. A nil primary means every
// call goes straight to the fallback.
func WithFallback(primary Evaluator, fallback Fallback, logger *slog.Logger) *Resilient {
	meter := telemetry.Meter("hawkops/evaluator")
	counter, _ := meter.Int64Counter("hawkops.evaluator.fallbacks",
		metric.WithDescription("Evaluations answered by the rule-based fallback"),
	)
	return &Resilient{
		primary:   primary,
		fallback:  fallback,
		logger:    logger.With("component", "evaluator"),
		fallbacks: counter,
	}
}

// guarded calls fn, converting a panic into an error.
func guarded[T any](fn func() (T, error)) (out T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = unavailable("panic", fmt.Errorf("%v", r))
		}
	}()
	return fn()
}

func (r *Resilient) degraded(ctx context.Context, op string, err error) {
	stage := "unknown"
	var ue *UnavailableError
	if errors.As(err, &ue) {
		stage = ue.Stage
	}
	r.logger.Debug("evaluation unavailable, using fallback", "op", op, "stage", stage, "error", err)
	if r.fallbacks != nil {
		r.fallbacks.Add(ctx, 1, metric.WithAttributes(
			attribute.String("op", op),
			attribute.String("stage", stage),
		))
	}
}

// ReviewChange returns the primary verdict, or the fallback verdict when the
// primary is unavailable.
func (r *Resilient) ReviewChange(ctx context.Context, req ChangeReviewRequest) ChangeVerdict {
	if r.primary != nil {
		v, err := guarded(func() (ChangeVerdict, error) { return r.primary.ReviewChange(ctx, req) })
		if err == nil {
			return v
		}
		r.degraded(ctx, "review_change", err)
	}
	return r.fallback.ReviewChange(req)
}

// TechnicalReview returns the primary assessment or the checklist fallback.
func (r *Resilient) TechnicalReview(ctx context.Context, req TechnicalReviewRequest) TechnicalAssessment {
	if r.primary != nil {
		a, err := guarded(func() (TechnicalAssessment, error) { return r.primary.TechnicalReview(ctx, req) })
		if err == nil {
			return a
		}
		r.degraded(ctx, "technical_review", err)
	}
	return r.fallback.TechnicalReview(req)
}

// DraftPlan returns the primary plan or the template fallback.
func (r *Resilient) DraftPlan(ctx context.Context, req PlanRequest) PlanDraft {
	if r.primary != nil {
		d, err := guarded(func() (PlanDraft, error) { return r.primary.DraftPlan(ctx, req) })
		if err == nil {
			return d
		}
		r.degraded(ctx, "draft_plan", err)
	}
	return r.fallback.DraftPlan(req)
}
