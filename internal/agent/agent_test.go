package agent

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocheuno/HawkOps-sub002/internal/action"
	"github.com/cocheuno/HawkOps-sub002/internal/journal"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type staticSource struct {
	mu    sync.Mutex
	snap  model.Snapshot
	err   error
	calls int
}

func (s *staticSource) FetchState(context.Context) (model.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.snap, s.err
}

type recordingSink struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSink) add(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return nil
}

func (s *recordingSink) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *recordingSink) SetIncidentStatus(_ context.Context, _ uuid.UUID, st model.IncidentStatus) error {
	return s.add("status:" + string(st))
}
func (s *recordingSink) Escalate(context.Context, uuid.UUID, string) error {
	return s.add("escalate")
}
func (s *recordingSink) ApproveChange(context.Context, uuid.UUID, string) error {
	return s.add("approve")
}
func (s *recordingSink) RejectChange(context.Context, uuid.UUID, string) error {
	return s.add("reject")
}
func (s *recordingSink) SubmitTechnicalReview(context.Context, uuid.UUID, string, string) error {
	return s.add("review")
}
func (s *recordingSink) SubmitPlan(context.Context, uuid.UUID, model.ImplementationPlan) error {
	return s.add("plan")
}

type memJournal struct {
	mu      sync.Mutex
	entries []journal.Entry
}

func (m *memJournal) Record(_ context.Context, e journal.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, e)
	return nil
}

func (m *memJournal) Recent(context.Context, string, int) ([]journal.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]journal.Entry(nil), m.entries...), nil
}

func (m *memJournal) Close() error { return nil }

func criticalOpen() model.Incident {
	return model.Incident{
		ID:        uuid.New(),
		Number:    "INC-0042",
		Title:     "Email down",
		Priority:  model.PriorityCritical,
		Status:    model.StatusOpen,
		CreatedAt: now.Add(-10 * time.Minute),
		UpdatedAt: now.Add(-10 * time.Minute),
	}
}

func deskAgent(t *testing.T, src StateSource, sink action.Sink) Capability {
	t.Helper()
	c, err := New(Deps{
		Role:   model.RoleServiceDesk,
		TeamID: "team-1",
		Source: src,
		Sink:   sink,
		Logger: discard(),
	})
	require.NoError(t, err)
	return c
}

func fixedNow() time.Time { return now }

// ---------------------------------------------------------------------------
// New
// ---------------------------------------------------------------------------

func TestNew_RoleVariants(t *testing.T) {
	src, sink := &staticSource{}, &recordingSink{}
	for role, want := range map[model.AgentRole]any{
		model.RoleServiceDesk: &ServiceDesk{},
		model.RoleTechOps:     &TechOps{},
		model.RoleManagement:  &Management{},
	} {
		c, err := New(Deps{Role: role, Source: src, Sink: sink, Logger: discard()})
		require.NoError(t, err, role)
		assert.IsType(t, want, c)
		assert.Equal(t, role, c.Role())
		assert.Equal(t, model.PersonalityBalanced, c.Personality(), "empty personality defaults to balanced")
	}

	_, err := New(Deps{Role: "janitor", Source: src, Sink: sink, Logger: discard()})
	assert.Error(t, err)

	_, err = New(Deps{Role: model.RoleServiceDesk, Logger: discard()})
	assert.Error(t, err)
}

// ---------------------------------------------------------------------------
// Cycle
// ---------------------------------------------------------------------------

func TestCycle_EscalatesCriticalAndJournals(t *testing.T) {
	inc := criticalOpen()
	src := &staticSource{snap: model.Snapshot{Incidents: []model.Incident{inc}}}
	sink := &recordingSink{}
	j := &memJournal{}

	rt := NewRuntime(deskAgent(t, src, sink), Options{Name: "desk-1", Journal: j, Now: fixedNow}, discard())
	res := rt.Cycle(context.Background())

	require.NoError(t, res.Err)
	require.NotNil(t, res.Decision)
	assert.Equal(t, model.ActionEscalate, res.Decision.Action)
	assert.Equal(t, inc.ID, res.Decision.Target())
	assert.True(t, res.Outcome.Applied)
	assert.Equal(t, []string{"escalate"}, sink.Calls())
	assert.Equal(t, int64(1), res.Cycle)
	assert.Positive(t, res.Duration)

	require.Len(t, j.entries, 1)
	e := j.entries[0]
	assert.Equal(t, "desk-1", e.Agent)
	assert.Equal(t, model.RoleServiceDesk, e.Role)
	assert.Equal(t, "team-1", e.TeamID)
	assert.Equal(t, model.ActionEscalate, e.Action)
	assert.Equal(t, "open_critical", e.Rule)
	assert.True(t, e.Applied)
	assert.Equal(t, now, e.ObservedAt)
}

func TestCycle_PerceptionFailureSkipsCycle(t *testing.T) {
	src := &staticSource{err: errors.New("connection refused")}
	sink := &recordingSink{}
	j := &memJournal{}

	rt := NewRuntime(deskAgent(t, src, sink), Options{Journal: j}, discard())
	res := rt.Cycle(context.Background())

	assert.Error(t, res.Err)
	assert.Nil(t, res.Decision)
	assert.Empty(t, sink.Calls())
	assert.Empty(t, j.entries)
}

func TestCycle_NoActionIsNotJournaled(t *testing.T) {
	src := &staticSource{}
	sink := &recordingSink{}
	j := &memJournal{}

	rt := NewRuntime(deskAgent(t, src, sink), Options{Journal: j}, discard())
	res := rt.Cycle(context.Background())

	assert.NoError(t, res.Err)
	assert.Nil(t, res.Decision)
	assert.Empty(t, j.entries)
}

func TestCycle_VerboseLogsDecisionsAtInfo(t *testing.T) {
	src := &staticSource{snap: model.Snapshot{Incidents: []model.Incident{criticalOpen()}}}

	var quiet, loud bytes.Buffer
	info := &slog.HandlerOptions{Level: slog.LevelInfo}

	NewRuntime(deskAgent(t, src, &recordingSink{}), Options{}, slog.New(slog.NewJSONHandler(&quiet, info))).
		Cycle(context.Background())
	NewRuntime(deskAgent(t, src, &recordingSink{}), Options{Verbose: true}, slog.New(slog.NewJSONHandler(&loud, info))).
		Cycle(context.Background())

	assert.NotContains(t, quiet.String(), `"msg":"decision"`)
	assert.Contains(t, loud.String(), `"msg":"decision"`)
	assert.Contains(t, loud.String(), `"agent":"service_desk"`)
}

func TestCycle_DecidedActionSurvivesCancellation(t *testing.T) {
	src := &staticSource{snap: model.Snapshot{Incidents: []model.Incident{criticalOpen()}}}
	sink := &recordingSink{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rt := NewRuntime(deskAgent(t, src, sink), Options{ActionDelay: 20 * time.Millisecond}, discard())
	res := rt.Cycle(ctx)

	require.NoError(t, res.Err)
	assert.Equal(t, []string{"escalate"}, sink.Calls())
}

func TestCycle_DeadlineDuringDelay(t *testing.T) {
	src := &staticSource{snap: model.Snapshot{Incidents: []model.Incident{criticalOpen()}}}
	sink := &recordingSink{}
	j := &memJournal{}

	rt := NewRuntime(deskAgent(t, src, sink), Options{
		ActionDelay:  time.Second,
		CycleTimeout: 20 * time.Millisecond,
		Journal:      j,
	}, discard())
	res := rt.Cycle(context.Background())

	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Empty(t, sink.Calls())
	require.Len(t, j.entries, 1)
	assert.False(t, j.entries[0].Applied)
	assert.NotEmpty(t, j.entries[0].Error)
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

// scripted is a Capability whose perceive step is a test hook.
type scripted struct {
	perceive func(n int64) error
	n        atomic.Int64
}

func (s *scripted) Role() model.AgentRole          { return model.RoleTechOps }
func (s *scripted) Personality() model.Personality { return model.PersonalityBalanced }
func (s *scripted) TeamID() string                 { return "" }

func (s *scripted) Perceive(_ context.Context, at time.Time) (model.Perception, error) {
	if err := s.perceive(s.n.Add(1)); err != nil {
		return model.Perception{}, err
	}
	return model.Perception{ObservedAt: at}, nil
}

func (s *scripted) Decide(context.Context, model.Perception) *model.Decision { return nil }

func (s *scripted) Act(context.Context, *model.Decision, model.Perception) action.Outcome {
	return action.Outcome{}
}

func TestRun_FirstCycleImmediateAndStop(t *testing.T) {
	first := make(chan struct{})
	c := &scripted{perceive: func(n int64) error {
		if n == 1 {
			close(first)
		}
		return nil
	}}
	rt := NewRuntime(c, Options{PollInterval: time.Hour}, discard())
	assert.Equal(t, model.RunStatusIdle, rt.Status())

	done := make(chan error, 1)
	go func() { done <- rt.Run(context.Background()) }()

	select {
	case <-first:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not start immediately")
	}
	rt.Stop()
	rt.Stop()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Stop")
	}
	assert.Equal(t, model.RunStatusStopped, rt.Status())
	assert.Equal(t, int64(1), rt.Cycles())

	assert.ErrorIs(t, rt.Run(context.Background()), ErrAlreadyStarted)
}

func TestRun_RecoversPanics(t *testing.T) {
	third := make(chan struct{})
	c := &scripted{perceive: func(n int64) error {
		switch n {
		case 1, 2:
			panic("nil map write")
		case 3:
			close(third)
		}
		return nil
	}}
	var logs bytes.Buffer
	rt := NewRuntime(c, Options{Name: "ops-1", PollInterval: 5 * time.Millisecond},
		slog.New(slog.NewJSONHandler(&logs, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	select {
	case <-third:
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not survive panicking cycles")
	}
	cancel()
	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, rt.Cycles(), int64(3))
	assert.Contains(t, logs.String(), `"msg":"agent cycle panicked"`)
	assert.Contains(t, logs.String(), `"agent":"ops-1"`)
}

func TestRun_StopIsHonouredAfterTheCycle(t *testing.T) {
	inCycle := make(chan struct{})
	release := make(chan struct{})
	c := &scripted{perceive: func(n int64) error {
		if n == 1 {
			close(inCycle)
			<-release
		}
		return nil
	}}
	rt := NewRuntime(c, Options{PollInterval: time.Millisecond}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- rt.Run(ctx) }()

	<-inCycle
	cancel()
	select {
	case <-done:
		t.Fatal("Run returned in the middle of a cycle")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, model.RunStatusRunning, rt.Status())

	close(release)
	require.NoError(t, <-done)
	assert.Equal(t, int64(1), rt.Cycles())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	c := &scripted{perceive: func(int64) error { return nil }}
	rt := NewRuntime(c, Options{}, discard())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, rt.Run(ctx))
	assert.Zero(t, rt.Cycles())
}
