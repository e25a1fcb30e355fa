package policy

import (
	"fmt"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// ServiceDeskChain is the front-line triage chain.
func ServiceDeskChain() Chain {
	return Chain{
		{Name: "escalate_breached", Match: escalateBreached},
		{Name: "open_critical", Match: openCritical},
		{Name: "high_at_risk", Match: highAtRisk},
		{Name: "start_oldest_open", Match: startOldestOpen},
		{Name: "resolve_in_progress", Match: resolveInProgress},
		{Name: "escalate_in_progress", Match: escalateInProgress},
	}
}

func escalateBreached(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, inc := range p.UrgentIncidents {
		if inc.Breached() {
			return decide(model.ActionEscalate, inc.ID, 0,
				fmt.Sprintf("%s has breached its SLA", inc.Label()),
				map[string]any{model.ParamReason: "SLA breached, immediate technical attention required"}), true
		}
	}
	return model.Decision{}, false
}

func openCritical(p model.Perception, k Knobs) (model.Decision, bool) {
	for _, inc := range p.UrgentIncidents {
		if inc.Status != model.StatusOpen || inc.Priority != model.PriorityCritical {
			continue
		}
		if k.Personality == model.PersonalityAggressive {
			return decide(model.ActionStartWork, inc.ID, 1,
				fmt.Sprintf("taking critical %s directly", inc.Label()), nil), true
		}
		return decide(model.ActionEscalate, inc.ID, 1,
			fmt.Sprintf("critical %s needs technical operations", inc.Label()),
			map[string]any{model.ParamReason: "Critical incident requires technical investigation"}), true
	}
	return model.Decision{}, false
}

func highAtRisk(p model.Perception, k Knobs) (model.Decision, bool) {
	for _, inc := range p.UrgentIncidents {
		if inc.Priority != model.PriorityHigh || !inc.AtRisk() {
			continue
		}
		switch inc.Status {
		case model.StatusOpen:
			return decide(model.ActionStartWork, inc.ID, 2,
				fmt.Sprintf("high priority %s is close to its SLA", inc.Label()), nil), true
		case model.StatusInProgress:
			if !Resolvable(inc.Incident, k.Personality) {
				return decide(model.ActionEscalate, inc.ID, 2,
					fmt.Sprintf("high priority %s is at risk and beyond desk scope", inc.Label()),
					map[string]any{model.ParamReason: "SLA at risk, issue requires technical expertise"}), true
			}
		}
	}
	return model.Decision{}, false
}

// startOldestOpen relies on PendingWork being sorted by creation time.
func startOldestOpen(p model.Perception, _ Knobs) (model.Decision, bool) {
	for _, inc := range p.PendingWork {
		if inc.Status == model.StatusOpen {
			return decide(model.ActionStartWork, inc.ID, 3,
				fmt.Sprintf("%s is the oldest open incident", inc.Label()), nil), true
		}
	}
	return model.Decision{}, false
}

func resolveInProgress(p model.Perception, k Knobs) (model.Decision, bool) {
	for _, inc := range p.PendingWork {
		if inc.Status == model.StatusInProgress && Resolvable(inc.Incident, k.Personality) {
			return decide(model.ActionResolve, inc.ID, 4,
				fmt.Sprintf("%s can be resolved at the service desk", inc.Label()), nil), true
		}
	}
	return model.Decision{}, false
}

func escalateInProgress(p model.Perception, k Knobs) (model.Decision, bool) {
	for _, inc := range p.PendingWork {
		if inc.Status == model.StatusInProgress && !Resolvable(inc.Incident, k.Personality) {
			return decide(model.ActionEscalate, inc.ID, 5,
				fmt.Sprintf("%s is beyond service desk scope", inc.Label()),
				map[string]any{model.ParamReason: "Issue requires technical expertise beyond service desk scope"}), true
		}
	}
	return model.Decision{}, false
}
