package policy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cocheuno/HawkOps-sub002/internal/evaluator"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// ChainFor returns the chain of role.
func ChainFor(role model.AgentRole) (Chain, error) {
	switch role {
	case model.RoleServiceDesk:
		return ServiceDeskChain(), nil
	case model.RoleTechOps:
		return TechOpsChain(), nil
	case model.RoleManagement:
		return ManagementChain(), nil
	default:
		return nil, fmt.Errorf("policy: unknown role %q", role)
	}
}

// Policy runs a role's chain and resolves the decisions that need an
// evaluator: change reviews, technical reviews and plan drafts.
type Policy struct {
	role   model.AgentRole
	chain  Chain
	knobs  Knobs
	eval   *evaluator.Resilient
	logger *slog.Logger
}

// New builds the policy for role. A nil eval answers every evaluation with
// the rule-based fallback.
func New(role model.AgentRole, knobs Knobs, eval *evaluator.Resilient, logger *slog.Logger) (*Policy, error) {
	chain, err := ChainFor(role)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		eval = evaluator.WithFallback(nil, evaluator.Fallback{}, logger)
	}
	return &Policy{role: role, chain: chain, knobs: knobs, eval: eval, logger: logger}, nil
}

// Knobs returns the knobs the policy was built with.
func (p *Policy) Knobs() Knobs { return p.knobs }

// Decide returns the decision for perception, or nil for no action. The
// returned decision is ready for the executor: review_change is already
// resolved into approve_change or reject_change.
func (p *Policy) Decide(ctx context.Context, perception model.Perception) *model.Decision {
	d := p.chain.Evaluate(perception, p.knobs)
	if d == nil {
		return nil
	}
	switch d.Action {
	case model.ActionReviewChange:
		p.resolveReview(ctx, d, perception)
	case model.ActionTechnicalReview:
		p.resolveTechnicalReview(ctx, d, perception)
	case model.ActionDraftPlan:
		p.resolvePlan(ctx, d, perception)
	}
	return d
}

func setParam(d *model.Decision, key string, v any) {
	if d.Params == nil {
		d.Params = make(map[string]any)
	}
	d.Params[key] = v
}

func (p *Policy) resolveReview(ctx context.Context, d *model.Decision, perception model.Perception) {
	cr, ok := perception.FindChange(d.Target())
	if !ok {
		return
	}
	req := evaluator.ChangeReviewRequest{
		Change:          cr,
		Personality:     p.knobs.Personality,
		ReviewType:      d.Param(model.ParamReviewType),
		Thorough:        d.Flag(model.ParamThorough),
		Recommendations: perception.Recommendations,
	}
	v := applyGuards(p.eval.ReviewChange(ctx, req), cr, *d, p.knobs.Personality)

	d.Action = model.ActionRejectChange
	if v.Approve {
		d.Action = model.ActionApproveChange
	}
	setParam(d, model.ParamNotes, v.Notes)
	setParam(d, model.ParamSource, v.Source)
	if v.Reasoning != "" {
		d.Reasoning += "; " + v.Reasoning
	}
}

func (p *Policy) resolveTechnicalReview(ctx context.Context, d *model.Decision, perception model.Perception) {
	cr, ok := perception.FindChange(d.Target())
	if !ok {
		return
	}
	a := p.eval.TechnicalReview(ctx, evaluator.TechnicalReviewRequest{Change: cr, Personality: p.knobs.Personality})
	setParam(d, model.ParamNotes, a.Notes)
	setParam(d, model.ParamRecommend, a.Recommendation)
	setParam(d, model.ParamSource, a.Source)
}

func (p *Policy) resolvePlan(ctx context.Context, d *model.Decision, perception model.Perception) {
	inc, ok := perception.FindIncident(d.Target())
	if !ok {
		return
	}
	draft := p.eval.DraftPlan(ctx, evaluator.PlanRequest{Incident: inc, Personality: p.knobs.Personality})
	setParam(d, model.ParamPlan, model.ImplementationPlan{
		IncidentID: inc.ID,
		Title:      draft.Title,
		Steps:      draft.Steps,
		RiskLevel:  draft.RiskLevel,
		Status:     model.PlanSubmitted,
		Source:     draft.Source,
	})
	setParam(d, model.ParamSource, draft.Source)
}
