// Package agent runs one role-playing agent: on every cycle it perceives the
// game, decides on at most one action and applies it.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cocheuno/HawkOps-sub002/internal/action"
	"github.com/cocheuno/HawkOps-sub002/internal/evaluator"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/perception"
	"github.com/cocheuno/HawkOps-sub002/internal/policy"
	"github.com/cocheuno/HawkOps-sub002/internal/sla"
)

// StateSource returns the current game state for the agent's team.
type StateSource interface {
	FetchState(ctx context.Context) (model.Snapshot, error)
}

// Capability is what a role brings to the runtime.
type Capability interface {
	Role() model.AgentRole
	Personality() model.Personality
	TeamID() string
	Perceive(ctx context.Context, now time.Time) (model.Perception, error)
	Decide(ctx context.Context, p model.Perception) *model.Decision
	Act(ctx context.Context, d *model.Decision, p model.Perception) action.Outcome
}

// Deps are the collaborators of a role variant.
type Deps struct {
	Role        model.AgentRole
	Personality model.Personality
	TeamID      string
	Clock       sla.Clock
	Source      StateSource
	Sink        action.Sink

	// Evaluator answers reviews and plan drafts. Nil uses the rule-based
	// fallback only.
	Evaluator *evaluator.Resilient

	// Knobs override the personality defaults when non-nil.
	Knobs *policy.Knobs

	Logger *slog.Logger
}

// New builds the role variant for deps.Role.
func New(deps Deps) (Capability, error) {
	if deps.Source == nil || deps.Sink == nil {
		return nil, fmt.Errorf("agent: state source and action sink are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Personality == "" {
		deps.Personality = model.PersonalityBalanced
	}
	knobs := policy.DefaultKnobs(deps.Personality)
	if deps.Knobs != nil {
		knobs = *deps.Knobs
		knobs.Personality = deps.Personality
	}

	pol, err := policy.New(deps.Role, knobs, deps.Evaluator, deps.Logger)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	b := base{
		opts: perception.Options{
			Role:        deps.Role,
			Personality: deps.Personality,
			TeamID:      deps.TeamID,
			Clock:       deps.Clock,
		},
		source: deps.Source,
		policy: pol,
		exec:   action.NewExecutor(deps.Sink, deps.Logger),
	}

	switch deps.Role {
	case model.RoleServiceDesk:
		return &ServiceDesk{base: b}, nil
	case model.RoleTechOps:
		return &TechOps{base: b}, nil
	case model.RoleManagement:
		return &Management{base: b}, nil
	default:
		return nil, fmt.Errorf("agent: unknown role %q", deps.Role)
	}
}

// base carries the perceive, decide and act steps shared by every role.
type base struct {
	opts   perception.Options
	source StateSource
	policy *policy.Policy
	exec   *action.Executor
}

func (b *base) Role() model.AgentRole          { return b.opts.Role }
func (b *base) Personality() model.Personality { return b.opts.Personality }
func (b *base) TeamID() string                 { return b.opts.TeamID }

// Perceive fetches a fresh snapshot and projects it for the role.
func (b *base) Perceive(ctx context.Context, now time.Time) (model.Perception, error) {
	snap, err := b.source.FetchState(ctx)
	if err != nil {
		return model.Perception{}, fmt.Errorf("agent: perceive: %w", err)
	}
	return perception.Build(b.opts, snap, now), nil
}

func (b *base) Decide(ctx context.Context, p model.Perception) *model.Decision {
	return b.policy.Decide(ctx, p)
}

func (b *base) Act(ctx context.Context, d *model.Decision, p model.Perception) action.Outcome {
	return b.exec.Apply(ctx, d, p)
}

// ServiceDesk triages and escalates incoming incidents.
type ServiceDesk struct{ base }

// TechOps works escalated incidents, drafts plans and reviews changes.
type TechOps struct{ base }

// Management chairs the change advisory board and watches SLA breaches.
type Management struct{ base }
