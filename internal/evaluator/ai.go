package evaluator

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/cocheuno/HawkOps-sub002/internal/llm"
)

// defaultCallTimeout bounds a single completion so one slow provider call
// cannot stall an agent cycle.
const defaultCallTimeout = 20 * time.Second

// AIOptions tune the AI evaluator.
type AIOptions struct {
	// CallsPerMinute caps provider calls; zero disables the cap.
	CallsPerMinute float64
	Burst          int
	Timeout        time.Duration
}

// AI evaluates through a language model. Every method returns an error
// wrapping ErrUnavailable when the provider fails, the call budget is spent,
// or the response cannot be parsed.
type AI struct {
	provider llm.Provider
	limiter  *rate.Limiter
	timeout  time.Duration
	logger   *slog.Logger
}

// NewAI wraps provider.
func NewAI(provider llm.Provider, opts AIOptions, logger *slog.Logger) *AI {
	a := &AI{
		provider: provider,
		timeout:  opts.Timeout,
		logger:   logger.With("component", "ai_evaluator", "provider", provider.Name()),
	}
	if a.timeout <= 0 {
		a.timeout = defaultCallTimeout
	}
	if opts.CallsPerMinute > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		a.limiter = rate.NewLimiter(rate.Limit(opts.CallsPerMinute/60), burst)
	}
	return a
}

func (a *AI) complete(ctx context.Context, system, prompt string) (string, error) {
	if a.limiter != nil && !a.limiter.Allow() {
		return "", unavailable("rate_limit", errors.New("call budget exhausted"))
	}
	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	text, err := a.provider.Complete(callCtx, system, prompt)
	if err != nil {
		return "", unavailable("provider", err)
	}
	return text, nil
}

func (a *AI) ReviewChange(ctx context.Context, req ChangeReviewRequest) (ChangeVerdict, error) {
	text, err := a.complete(ctx, cabSystem, formatChangePrompt(req))
	if err != nil {
		return ChangeVerdict{}, err
	}
	v, err := ParseChangeVerdict(text)
	if err != nil {
		a.logger.Debug("unparsable change verdict", "change", req.Change.Label(), "error", err)
		return ChangeVerdict{}, err
	}
	return v, nil
}

func (a *AI) TechnicalReview(ctx context.Context, req TechnicalReviewRequest) (TechnicalAssessment, error) {
	text, err := a.complete(ctx, techReviewSystem, formatTechReviewPrompt(req))
	if err != nil {
		return TechnicalAssessment{}, err
	}
	return ParseTechnicalAssessment(text)
}

func (a *AI) DraftPlan(ctx context.Context, req PlanRequest) (PlanDraft, error) {
	text, err := a.complete(ctx, planSystem, formatPlanPrompt(req))
	if err != nil {
		return PlanDraft{}, err
	}
	d, err := ParsePlanDraft(text)
	if err != nil {
		return PlanDraft{}, err
	}
	if d.Title == "" {
		d.Title = "Remediation plan for " + req.Incident.Label()
	}
	return d, nil
}
