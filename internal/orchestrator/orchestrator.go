// Package orchestrator starts a set of agents side by side and keeps them
// isolated: a crash in one agent is recorded and its siblings keep running.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Runner is a started agent.
type Runner interface {
	Run(ctx context.Context) error
	Stop()
	Cycles() int64
}

// Factory builds an agent. A factory error marks the agent failed_start.
type Factory func(ctx context.Context) (Runner, error)

// Member is one agent the orchestrator manages.
type Member struct {
	Name    string
	Role    model.AgentRole
	Factory Factory
}

// Orchestrator runs members until the context is cancelled or every member
// has returned.
type Orchestrator struct {
	members []Member
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	reports  []model.AgentReport
	runners  []Runner
	stopping bool
}

// New creates an orchestrator for members. Names must be unique.
func New(members []Member, logger *slog.Logger) (*Orchestrator, error) {
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if m.Name == "" || m.Factory == nil {
			return nil, fmt.Errorf("orchestrator: member needs a name and a factory")
		}
		if seen[m.Name] {
			return nil, fmt.Errorf("orchestrator: duplicate agent name %q", m.Name)
		}
		seen[m.Name] = true
	}
	return &Orchestrator{
		members: members,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Run starts every member in its own goroutine and blocks until all have
// returned. Cancel ctx to stop them; each finishes its current cycle first.
// The reports are in member order.
func (o *Orchestrator) Run(ctx context.Context) []model.AgentReport {
	o.mu.Lock()
	o.reports = make([]model.AgentReport, len(o.members))
	o.runners = make([]Runner, len(o.members))
	for i, m := range o.members {
		o.reports[i] = model.AgentReport{Name: m.Name, Role: m.Role, Status: model.RunStatusIdle}
	}
	o.mu.Unlock()

	// A plain Group: one agent's failure must not cancel the others.
	var g errgroup.Group
	for i, m := range o.members {
		g.Go(func() error {
			o.runMember(ctx, i, m)
			return nil
		})
	}
	_ = g.Wait()

	return o.Reports()
}

// Reports returns a copy of the current per-agent reports.
func (o *Orchestrator) Reports() []model.AgentReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]model.AgentReport, len(o.reports))
	copy(out, o.reports)
	for i, r := range o.runners {
		if r != nil && out[i].Status == model.RunStatusRunning {
			out[i].Cycles = r.Cycles()
			out[i].Duration = o.now().Sub(out[i].StartedAt)
		}
	}
	return out
}

// StopAll asks every running member to stop after its current cycle.
// Members still inside their factory are stopped as soon as they start.
func (o *Orchestrator) StopAll() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopping = true
	for _, r := range o.runners {
		if r != nil {
			r.Stop()
		}
	}
}

func (o *Orchestrator) runMember(ctx context.Context, i int, m Member) {
	logger := o.logger.With("agent", m.Name, "role", m.Role)
	started := o.now()

	var runner Runner
	_, err := guard(logger, func() error {
		r, err := m.Factory(ctx)
		if err != nil {
			return err
		}
		runner = r
		return nil
	})
	if err != nil || runner == nil {
		if err == nil {
			err = errors.New("factory returned no agent")
		}
		logger.Error("agent failed to start", "error", err)
		o.finish(i, model.RunStatusFailedStart, err, started, 0)
		return
	}

	o.mu.Lock()
	o.runners[i] = runner
	o.reports[i].Status = model.RunStatusRunning
	o.reports[i].StartedAt = started
	if o.stopping {
		runner.Stop()
	}
	o.mu.Unlock()

	status, err := guard(logger, func() error { return runner.Run(ctx) })
	switch status {
	case model.RunStatusCrashed:
		logger.Error("agent crashed", "error", err, "cycles", runner.Cycles())
	default:
		logger.Info("agent finished", "cycles", runner.Cycles())
	}
	o.finish(i, status, err, started, runner.Cycles())
}

// guard runs fn, converting a panic or error into a crashed status.
func guard(logger *slog.Logger, fn func() error) (status model.RunStatus, err error) {
	defer func() {
		if v := recover(); v != nil {
			logger.Error("agent panicked", "panic", fmt.Sprint(v), "stack", string(debug.Stack()))
			status = model.RunStatusCrashed
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	if err := fn(); err != nil {
		return model.RunStatusCrashed, err
	}
	return model.RunStatusStopped, nil
}

func (o *Orchestrator) finish(i int, status model.RunStatus, err error, started time.Time, cycles int64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	r := &o.reports[i]
	r.Status = status
	r.Cycles = cycles
	r.StartedAt = started
	r.Duration = o.now().Sub(started)
	if err != nil {
		r.Error = err.Error()
	}
}
