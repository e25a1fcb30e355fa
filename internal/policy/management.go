package policy

import (
	"fmt"

	"github.com/cocheuno/HawkOps-sub002/internal/evaluator"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// ManagementChain is the change advisory board chain.
func ManagementChain() Chain {
	return Chain{
		{Name: "expedite_emergency", Match: expediteEmergency},
		{Name: "thorough_high_risk", Match: thoroughHighRisk},
		{Name: "standard_review", Match: standardReview},
		{Name: "breach_alert", Match: breachAlert},
	}
}

func review(cr model.ChangeRequest, priority int, reviewType string, thorough bool, reasoning string) model.Decision {
	return decide(model.ActionReviewChange, cr.ID, priority, reasoning, map[string]any{
		model.ParamReviewType: reviewType,
		model.ParamThorough:   thorough,
	})
}

func expediteEmergency(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, cr := range p.ReviewQueue {
		if cr.ChangeType == model.ChangeEmergency {
			return review(cr, 0, evaluator.ReviewExpedited, false,
				fmt.Sprintf("emergency change %s awaits expedited review", cr.Label())), true
		}
	}
	return model.Decision{}, false
}

func thoroughHighRisk(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, cr := range p.ReviewQueue {
		if cr.RiskLevel.IsElevated() {
			return review(cr, 1, evaluator.ReviewThorough, true,
				fmt.Sprintf("%s risk change %s needs a thorough review", cr.RiskLevel, cr.Label())), true
		}
	}
	return model.Decision{}, false
}

func standardReview(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, cr := range p.ReviewQueue {
		if cr.WorkflowState == model.WorkflowPendingCAB || cr.WorkflowState == model.WorkflowReviewComplete {
			return review(cr, 2, evaluator.ReviewStandard, false,
				fmt.Sprintf("change %s is waiting for the CAB", cr.Label())), true
		}
	}
	return model.Decision{}, false
}

func breachAlert(p model.Perception, k Knobs) (model.Decision, bool) {
	if k.Personality == model.PersonalityAggressive || p.BreachedCount <= k.alertBreaches() {
		return model.Decision{}, false
	}
	return model.Decision{
		Action:    model.ActionManagementAlert,
		Params:    map[string]any{model.ParamBreached: p.BreachedCount},
		Reasoning: fmt.Sprintf("%d urgent incidents have breached SLA", p.BreachedCount),
		Priority:  3,
	}, true
}

// applyGuards overrides a verdict with the personality guards. Cautious
// reviewers reject elevated-risk changes that did not get a thorough review;
// aggressive reviewers approve expedited emergency changes.
func applyGuards(v evaluator.ChangeVerdict, cr model.ChangeRequest, d model.Decision, p model.Personality) evaluator.ChangeVerdict {
	switch {
	case p == model.PersonalityCautious && cr.RiskLevel.IsElevated() && !d.Flag(model.ParamThorough):
		if v.Approve {
			return evaluator.ChangeVerdict{
				Approve:   false,
				Notes:     fmt.Sprintf("Rejected: %s risk change requires a thorough review before approval.", cr.RiskLevel),
				Reasoning: "cautious guard overrode approval: " + v.Reasoning,
				Source:    evaluator.SourceGuard,
			}
		}
	case p == model.PersonalityAggressive && cr.ChangeType == model.ChangeEmergency &&
		d.Param(model.ParamReviewType) == evaluator.ReviewExpedited:
		if !v.Approve {
			return evaluator.ChangeVerdict{
				Approve:   true,
				Notes:     "Approved: emergency change expedited to restore service.",
				Reasoning: "aggressive guard overrode rejection: " + v.Reasoning,
				Source:    evaluator.SourceGuard,
			}
		}
	}
	return v
}
