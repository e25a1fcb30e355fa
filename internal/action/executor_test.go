package action

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocheuno/HawkOps-sub002/internal/gameapi"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

type call struct {
	Op     string
	ID     uuid.UUID
	Status model.IncidentStatus
	Text   string
	Extra  string
	Plan   model.ImplementationPlan
}

type fakeSink struct {
	calls []call
	err   error
}

func (f *fakeSink) record(c call) error {
	f.calls = append(f.calls, c)
	return f.err
}

func (f *fakeSink) SetIncidentStatus(_ context.Context, id uuid.UUID, s model.IncidentStatus) error {
	return f.record(call{Op: "status", ID: id, Status: s})
}

func (f *fakeSink) Escalate(_ context.Context, id uuid.UUID, reason string) error {
	return f.record(call{Op: "escalate", ID: id, Text: reason})
}

func (f *fakeSink) ApproveChange(_ context.Context, id uuid.UUID, notes string) error {
	return f.record(call{Op: "approve", ID: id, Text: notes})
}

func (f *fakeSink) RejectChange(_ context.Context, id uuid.UUID, notes string) error {
	return f.record(call{Op: "reject", ID: id, Text: notes})
}

func (f *fakeSink) SubmitTechnicalReview(_ context.Context, id uuid.UUID, notes, rec string) error {
	return f.record(call{Op: "review", ID: id, Text: notes, Extra: rec})
}

func (f *fakeSink) SubmitPlan(_ context.Context, id uuid.UUID, plan model.ImplementationPlan) error {
	return f.record(call{Op: "plan", ID: id, Plan: plan})
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func perceived(status model.IncidentStatus) model.PerceivedIncident {
	return model.PerceivedIncident{Incident: model.Incident{
		ID:       uuid.New(),
		Number:   "INC-0001",
		Priority: model.PriorityHigh,
		Status:   status,
	}}
}

func decision(kind model.ActionKind, target uuid.UUID, params map[string]any) *model.Decision {
	return &model.Decision{Action: kind, TargetID: &target, Params: params, Reasoning: "because"}
}

func TestApply_Nil(t *testing.T) {
	sink := &fakeSink{}
	out := NewExecutor(sink, discard()).Apply(context.Background(), nil, model.Perception{})
	assert.False(t, out.Applied)
	assert.NoError(t, out.Err)
	assert.Empty(t, sink.calls)
}

func TestApply_StatusTransitions(t *testing.T) {
	open := perceived(model.StatusOpen)
	working := perceived(model.StatusInProgress)
	p := model.Perception{PendingWork: []model.PerceivedIncident{open, working}}
	sink := &fakeSink{}
	ex := NewExecutor(sink, discard())
	ctx := context.Background()

	out := ex.Apply(ctx, decision(model.ActionStartWork, open.ID, nil), p)
	require.NoError(t, out.Err)
	assert.True(t, out.Applied)

	out = ex.Apply(ctx, decision(model.ActionResolve, working.ID, nil), p)
	require.NoError(t, out.Err)

	// Starting work on something already in progress would not move it forward.
	out = ex.Apply(ctx, decision(model.ActionStartWork, working.ID, nil), p)
	assert.ErrorIs(t, out.Err, ErrInvalidTransition)
	assert.False(t, out.Applied)

	require.Len(t, sink.calls, 2)
	assert.Equal(t, call{Op: "status", ID: open.ID, Status: model.StatusInProgress}, sink.calls[0])
	assert.Equal(t, call{Op: "status", ID: working.ID, Status: model.StatusResolved}, sink.calls[1])
}

func TestApply_UnknownTarget(t *testing.T) {
	sink := &fakeSink{}
	ex := NewExecutor(sink, discard())
	ctx := context.Background()

	for _, kind := range []model.ActionKind{
		model.ActionStartWork, model.ActionResolve, model.ActionEscalate,
		model.ActionApproveChange, model.ActionRejectChange, model.ActionTechnicalReview,
		model.ActionDraftPlan,
	} {
		out := ex.Apply(ctx, decision(kind, uuid.New(), nil), model.Perception{})
		assert.ErrorIs(t, out.Err, ErrTargetNotFound, "kind=%s", kind)
	}
	assert.Empty(t, sink.calls, "no call reaches the server for unknown targets")

	out := ex.Apply(ctx, &model.Decision{Action: model.ActionEscalate}, model.Perception{})
	assert.ErrorIs(t, out.Err, ErrTargetNotFound)
}

func TestApply_Escalate(t *testing.T) {
	inc := perceived(model.StatusOpen)
	p := model.Perception{UrgentIncidents: []model.PerceivedIncident{inc}}
	sink := &fakeSink{}
	ex := NewExecutor(sink, discard())

	require.NoError(t, ex.Apply(context.Background(), decision(model.ActionEscalate, inc.ID,
		map[string]any{model.ParamReason: "Critical incident requires technical investigation"}), p).Err)
	require.NoError(t, ex.Apply(context.Background(), decision(model.ActionEscalate, inc.ID, nil), p).Err)

	require.Len(t, sink.calls, 2)
	assert.Equal(t, "Critical incident requires technical investigation", sink.calls[0].Text)
	assert.Equal(t, "because", sink.calls[1].Text, "reasoning stands in for a missing reason")
}

func TestApply_ChangeVerdicts(t *testing.T) {
	cr := model.ChangeRequest{ID: uuid.New(), Number: "CHG-1"}
	p := model.Perception{ReviewQueue: []model.ChangeRequest{cr}}
	sink := &fakeSink{}
	ex := NewExecutor(sink, discard())
	ctx := context.Background()

	require.NoError(t, ex.Apply(ctx, decision(model.ActionApproveChange, cr.ID, map[string]any{model.ParamNotes: "ok"}), p).Err)
	require.NoError(t, ex.Apply(ctx, decision(model.ActionRejectChange, cr.ID, map[string]any{model.ParamNotes: "no"}), p).Err)
	require.NoError(t, ex.Apply(ctx, decision(model.ActionTechnicalReview, cr.ID, map[string]any{
		model.ParamNotes: "checked", model.ParamRecommend: "approve",
	}), p).Err)

	require.Len(t, sink.calls, 3)
	assert.Equal(t, "approve", sink.calls[0].Op)
	assert.Equal(t, "ok", sink.calls[0].Text)
	assert.Equal(t, "reject", sink.calls[1].Op)
	assert.Equal(t, call{Op: "review", ID: cr.ID, Text: "checked", Extra: "approve"}, sink.calls[2])
}

func TestApply_UnresolvedReviewIsNotSent(t *testing.T) {
	cr := model.ChangeRequest{ID: uuid.New()}
	sink := &fakeSink{}
	out := NewExecutor(sink, discard()).Apply(context.Background(),
		decision(model.ActionReviewChange, cr.ID, nil), model.Perception{ReviewQueue: []model.ChangeRequest{cr}})
	assert.ErrorIs(t, out.Err, ErrUnsupported)
	assert.Empty(t, sink.calls)
}

func TestApply_Plan(t *testing.T) {
	inc := perceived(model.StatusInProgress)
	p := model.Perception{PlanQueue: []model.PerceivedIncident{inc}}
	sink := &fakeSink{}
	ex := NewExecutor(sink, discard())

	plan := model.ImplementationPlan{Title: "Fix", Steps: []string{"restart"}, Status: model.PlanSubmitted}
	require.NoError(t, ex.Apply(context.Background(), decision(model.ActionDraftPlan, inc.ID, map[string]any{model.ParamPlan: plan}), p).Err)
	require.Len(t, sink.calls, 1)
	assert.Equal(t, inc.ID, sink.calls[0].Plan.IncidentID)

	out := ex.Apply(context.Background(), decision(model.ActionDraftPlan, inc.ID, nil), p)
	assert.Error(t, out.Err)
	assert.Len(t, sink.calls, 1)
}

func TestApply_ManagementAlertLogsOnly(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	sink := &fakeSink{}

	out := NewExecutor(sink, logger).Apply(context.Background(), &model.Decision{
		Action: model.ActionManagementAlert,
		Params: map[string]any{model.ParamBreached: 3},
	}, model.Perception{})
	assert.NoError(t, out.Err)
	assert.False(t, out.Applied)
	assert.Empty(t, sink.calls)
	assert.Contains(t, buf.String(), `"msg":"management alert"`)
	assert.Contains(t, buf.String(), `"level":"WARN"`)
}

func TestApply_SinkFailureIsNotRetried(t *testing.T) {
	inc := perceived(model.StatusOpen)
	p := model.Perception{PendingWork: []model.PerceivedIncident{inc}}
	sink := &fakeSink{err: errors.New("connection refused")}

	out := NewExecutor(sink, discard()).Apply(context.Background(), decision(model.ActionEscalate, inc.ID, nil), p)
	require.Error(t, out.Err)
	assert.False(t, out.Applied)
	assert.Len(t, sink.calls, 1)
	assert.NotErrorIs(t, out.Err, ErrTargetNotFound)
}

func TestApply_ServerNotFound(t *testing.T) {
	inc := perceived(model.StatusOpen)
	p := model.Perception{PendingWork: []model.PerceivedIncident{inc}}
	sink := &fakeSink{err: &gameapi.Error{StatusCode: 404, Message: "Incident not found"}}

	out := NewExecutor(sink, discard()).Apply(context.Background(), decision(model.ActionStartWork, inc.ID, nil), p)
	assert.ErrorIs(t, out.Err, ErrTargetNotFound)
	assert.True(t, gameapi.IsNotFound(out.Err))
}

func TestApply_ServerConflictIsInvalidTransition(t *testing.T) {
	inc := perceived(model.StatusOpen)
	p := model.Perception{PendingWork: []model.PerceivedIncident{inc}}
	sink := &fakeSink{err: &gameapi.Error{StatusCode: 409, Message: "Invalid status transition"}}

	out := NewExecutor(sink, discard()).Apply(context.Background(), decision(model.ActionStartWork, inc.ID, nil), p)
	assert.ErrorIs(t, out.Err, ErrInvalidTransition)
	assert.True(t, gameapi.IsConflict(out.Err))
	assert.False(t, out.Applied)
}
