package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cocheuno/HawkOps-sub002/internal/action"
	"github.com/cocheuno/HawkOps-sub002/internal/journal"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/telemetry"
)

// ErrAlreadyStarted is returned by Run on a runtime that has run before.
var ErrAlreadyStarted = errors.New("agent: runtime already started")

// Defaults for Options fields left at zero.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultCycleTimeout = 2 * time.Minute
)

// Options configure a Runtime.
type Options struct {
	Name         string
	PollInterval time.Duration

	// ActionDelay is waited between deciding and acting, so a human
	// watching the game can follow along.
	ActionDelay time.Duration

	// CycleTimeout bounds one full cycle including the action delay.
	CycleTimeout time.Duration

	// Verbose logs every decision at info instead of debug.
	Verbose bool

	Journal journal.Recorder
	Now     func() time.Time
}

// CycleResult describes one completed cycle.
type CycleResult struct {
	Cycle      int64
	Perception model.Perception
	Decision   *model.Decision
	Outcome    action.Outcome
	Err        error
	Duration   time.Duration
}

// Runtime drives a Capability through perceive, decide and act cycles.
// Cycles run one at a time; a cancelled context or Stop takes effect once
// the current cycle has finished.
type Runtime struct {
	cap    Capability
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	status model.RunStatus

	cycles   atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once

	tracer     trace.Tracer
	cycleCount metric.Int64Counter
	decisions  metric.Int64Counter
	duration   metric.Float64Histogram
}

// NewRuntime creates an idle runtime for c.
func NewRuntime(c Capability, opts Options, logger *slog.Logger) *Runtime {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.CycleTimeout <= 0 {
		opts.CycleTimeout = DefaultCycleTimeout
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Name == "" {
		opts.Name = string(c.Role())
	}

	meter := telemetry.Meter("hawkops/agent")
	cycleCount, _ := meter.Int64Counter("hawkops.agent.cycles",
		metric.WithDescription("Agent cycles run, by outcome"),
	)
	decisions, _ := meter.Int64Counter("hawkops.agent.decisions",
		metric.WithDescription("Decisions committed, by action and source"),
	)
	duration, _ := meter.Float64Histogram("hawkops.agent.cycle.duration",
		metric.WithDescription("Wall time of one agent cycle"),
		metric.WithUnit("ms"),
	)

	return &Runtime{
		cap:  c,
		opts: opts,
		logger: logger.With(
			"agent", opts.Name,
			"role", c.Role(),
			"personality", c.Personality(),
			"team", c.TeamID(),
		),
		status:     model.RunStatusIdle,
		stop:       make(chan struct{}),
		tracer:     telemetry.Tracer("hawkops/agent"),
		cycleCount: cycleCount,
		decisions:  decisions,
		duration:   duration,
	}
}

// Name returns the agent's name.
func (r *Runtime) Name() string { return r.opts.Name }

// Role returns the agent's role.
func (r *Runtime) Role() model.AgentRole { return r.cap.Role() }

// Status returns the lifecycle state.
func (r *Runtime) Status() model.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

func (r *Runtime) setStatus(s model.RunStatus) {
	r.mu.Lock()
	r.status = s
	r.mu.Unlock()
}

// Cycles returns how many cycles have started.
func (r *Runtime) Cycles() int64 { return r.cycles.Load() }

// Stop asks Run to return after the current cycle. Safe to call repeatedly
// and before Run.
func (r *Runtime) Stop() {
	r.stopOnce.Do(func() { close(r.stop) })
}

// Run executes cycles until ctx is cancelled or Stop is called. The first
// cycle starts immediately. A panic inside a cycle is logged and the loop
// goes on with the next tick.
func (r *Runtime) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.status != model.RunStatusIdle {
		r.mu.Unlock()
		return ErrAlreadyStarted
	}
	r.status = model.RunStatusRunning
	r.mu.Unlock()
	defer r.setStatus(model.RunStatusStopped)

	r.logger.Info("agent started", "poll_interval", r.opts.PollInterval)
	defer func() { r.logger.Info("agent stopped", "cycles", r.Cycles()) }()

	ticker := time.NewTicker(r.opts.PollInterval)
	defer ticker.Stop()

	for {
		if r.stopping(ctx) {
			return nil
		}
		r.safeCycle(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-r.stop:
			return nil
		case <-ticker.C:
		}
	}
}

func (r *Runtime) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-r.stop:
		return true
	default:
		return false
	}
}

func (r *Runtime) safeCycle(ctx context.Context) {
	defer func() {
		if v := recover(); v != nil {
			r.logger.Error("agent cycle panicked",
				"cycle", r.Cycles(),
				"panic", fmt.Sprint(v),
				"stack", string(debug.Stack()))
			r.count(ctx, "panic")
		}
	}()
	r.Cycle(ctx)
}

// Cycle runs one perceive, decide and act pass. The pass is detached from
// ctx cancellation and bounded by CycleTimeout, so an action that has been
// decided is still applied during shutdown.
func (r *Runtime) Cycle(ctx context.Context) (res CycleResult) {
	n := r.cycles.Add(1)
	start := time.Now()
	res.Cycle = n

	cycleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.CycleTimeout)
	defer cancel()
	cycleCtx, span := r.tracer.Start(cycleCtx, "agent.cycle", trace.WithAttributes(
		attribute.String("agent", r.opts.Name),
		attribute.String("role", string(r.cap.Role())),
		attribute.Int64("cycle", n),
	))
	defer span.End()

	defer func() {
		res.Duration = time.Since(start)
		if r.duration != nil {
			r.duration.Record(cycleCtx, float64(res.Duration.Microseconds())/1000.0,
				metric.WithAttributes(attribute.String("role", string(r.cap.Role()))))
		}
	}()

	p, err := r.cap.Perceive(cycleCtx, r.opts.Now())
	if err != nil {
		res.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "perceive")
		r.logger.Warn("perception failed, skipping cycle", "cycle", n, "error", err)
		r.count(cycleCtx, "perceive_error")
		return res
	}
	res.Perception = p

	d := r.cap.Decide(cycleCtx, p)
	res.Decision = d
	if d == nil {
		r.logger.Debug("no action", "cycle", n, "workload", p.Health.Workload)
		r.count(cycleCtx, "idle")
		return res
	}

	level := slog.LevelDebug
	if r.opts.Verbose {
		level = slog.LevelInfo
	}
	r.logger.Log(cycleCtx, level, "decision",
		"cycle", n,
		"action", d.Action,
		"target", d.Target(),
		"rule", d.Rule,
		"priority", d.Priority,
		"source", d.Param(model.ParamSource),
		"reasoning", d.Reasoning)
	span.SetAttributes(attribute.String("action", string(d.Action)), attribute.String("rule", d.Rule))
	if r.decisions != nil {
		r.decisions.Add(cycleCtx, 1, metric.WithAttributes(
			attribute.String("role", string(r.cap.Role())),
			attribute.String("action", string(d.Action)),
		))
	}

	if err := r.delay(cycleCtx); err != nil {
		res.Err = err
		r.logger.Warn("cycle deadline reached before acting", "cycle", n, "action", d.Action)
		r.count(cycleCtx, "timeout")
		r.record(cycleCtx, res, start)
		return res
	}

	res.Outcome = r.cap.Act(cycleCtx, d, p)
	res.Err = res.Outcome.Err
	if res.Err != nil {
		span.RecordError(res.Err)
		r.count(cycleCtx, "action_error")
	} else {
		r.count(cycleCtx, "ok")
	}
	r.record(cycleCtx, res, start)
	return res
}

// delay waits ActionDelay or until the cycle deadline.
func (r *Runtime) delay(ctx context.Context) error {
	if r.opts.ActionDelay <= 0 {
		return nil
	}
	t := time.NewTimer(r.opts.ActionDelay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runtime) record(ctx context.Context, res CycleResult, start time.Time) {
	e := journal.FromDecision(journal.Entry{
		Agent:       r.opts.Name,
		Role:        r.cap.Role(),
		Personality: r.cap.Personality(),
		TeamID:      r.cap.TeamID(),
		Cycle:       res.Cycle,
		ObservedAt:  res.Perception.ObservedAt,
		Applied:     res.Outcome.Applied,
		Duration:    time.Since(start),
	}, *res.Decision)
	if res.Err != nil {
		e.Error = res.Err.Error()
	}
	// The cycle deadline may already have passed; the entry is still written.
	if err := r.opts.Journal.Record(context.WithoutCancel(ctx), e); err != nil {
		r.logger.Warn("journal write failed", "cycle", res.Cycle, "error", err)
	}
}

func (r *Runtime) count(ctx context.Context, outcome string) {
	if r.cycleCount == nil {
		return
	}
	r.cycleCount.Add(ctx, 1, metric.WithAttributes(
		attribute.String("role", string(r.cap.Role())),
		attribute.String("outcome", outcome),
	))
}
