package policy

import (
	"fmt"
	"time"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// TechOpsChain is the technical operations chain.
func TechOpsChain() Chain {
	return Chain{
		{Name: "start_breached", Match: startBreached},
		{Name: "start_urgent", Match: startUrgent},
		{Name: "draft_plan", Match: draftPlan},
		{Name: "technical_review", Match: technicalReview},
		{Name: "resolve_worked", Match: resolveWorked},
	}
}

func startBreached(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, inc := range p.UrgentIncidents {
		if inc.Status == model.StatusOpen && inc.Breached() {
			return decide(model.ActionStartWork, inc.ID, 0,
				fmt.Sprintf("%s breached its SLA and nobody is on it", inc.Label()), nil), true
		}
	}
	return model.Decision{}, false
}

func startUrgent(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, inc := range p.PendingWork {
		if inc.Status == model.StatusOpen && inc.Priority.IsUrgent() {
			return decide(model.ActionStartWork, inc.ID, 1,
				fmt.Sprintf("picking up %s priority %s", inc.Priority, inc.Label()), nil), true
		}
	}
	return model.Decision{}, false
}

func draftPlan(p model.Perception, _ Knobs) (model.Decision, bool) {
	if len(p.PlanQueue) == 0 {
		return model.Decision{}, false
	}
	inc := p.PlanQueue[0]
	return decide(model.ActionDraftPlan, inc.ID, 2,
		fmt.Sprintf("%s is in progress without a remediation plan", inc.Label()), nil), true
}

func technicalReview(p model.Perception, _ Knobs) (model.Decision, bool) {
	if len(p.ReviewQueue) == 0 {
		return model.Decision{}, false
	}
	cr := p.ReviewQueue[0]
	return decide(model.ActionTechnicalReview, cr.ID, 3,
		fmt.Sprintf("change %s is waiting for a technical review", cr.Label()), nil), true
}

func resolveWorked(p model.Perception, k Knobs) (model.Decision, bool) {
	need := k.workTime()
	for _, inc := range p.PendingWork {
		if inc.Status != model.StatusInProgress {
			continue
		}
		if worked := p.ObservedAt.Sub(inc.UpdatedAt); worked >= need {
			return decide(model.ActionResolve, inc.ID, 4,
				fmt.Sprintf("%s has been worked for %s", inc.Label(), worked.Round(time.Second)), nil), true
		}
	}
	return model.Decision{}, false
}
