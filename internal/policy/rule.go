// Package policy holds the per-role rule chains that turn a Perception into
// at most one Decision.
//
// A chain is an ordered list of pure rules. Evaluation walks the list top to
// bottom and the first rule that matches wins; later rules are never
// consulted. Personality and thresholds reach the rules through Knobs, so
// the same Perception and Knobs always produce the same Decision.
package policy

import (
	"time"

	"github.com/google/uuid"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Defaults for Knobs fields left at zero.
const (
	DefaultAlertBreaches = 2
)

// Knobs parameterize a chain.
type Knobs struct {
	Personality model.Personality

	// AlertBreaches is the breached-incident count a management agent
	// tolerates before raising an alert. The alert fires above it.
	AlertBreaches int

	// WorkTime is how long technical operations keeps an incident in
	// progress before resolving it. Nil uses the personality default.
	WorkTime *time.Duration
}

// DefaultKnobs returns the knobs for personality p.
func DefaultKnobs(p model.Personality) Knobs {
	return Knobs{Personality: p, AlertBreaches: DefaultAlertBreaches}
}

func (k Knobs) alertBreaches() int {
	if k.AlertBreaches <= 0 {
		return DefaultAlertBreaches
	}
	return k.AlertBreaches
}

func (k Knobs) workTime() time.Duration {
	if k.WorkTime != nil {
		return *k.WorkTime
	}
	switch k.Personality {
	case model.PersonalityAggressive:
		return 0
	case model.PersonalityCautious:
		return 5 * time.Minute
	default:
		return 2 * time.Minute
	}
}

// Rule is one predicate-to-decision step of a chain.
type Rule struct {
	Name  string
	Match func(p model.Perception, k Knobs) (model.Decision, bool)
}

// Chain is an ordered rule list.
type Chain []Rule

// Evaluate returns the decision of the first matching rule, or nil.
func (c Chain) Evaluate(p model.Perception, k Knobs) *model.Decision {
	for _, r := range c {
		d, ok := r.Match(p, k)
		if !ok {
			continue
		}
		d.Rule = r.Name
		return &d
	}
	return nil
}

// Names lists the rule names in evaluation order.
func (c Chain) Names() []string {
	out := make([]string, len(c))
	for i, r := range c {
		out[i] = r.Name
	}
	return out
}

func decide(kind model.ActionKind, target uuid.UUID, priority int, reasoning string, params map[string]any) model.Decision {
	id := target
	return model.Decision{
		Action:    kind,
		TargetID:  &id,
		Params:    params,
		Reasoning: reasoning,
		Priority:  priority,
	}
}
