// Package journal records every decision an agent commits to, so a game can
// be replayed and debriefed after the session.
//
// Two backends exist: SQLite (modernc.org/sqlite, no cgo) for local runs and
// PostgreSQL (pgx) for shared deployments. Open picks one from the DSN.
package journal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
)

// Entry is one journaled decision.
type Entry struct {
	ID          uuid.UUID         `json:"id"`
	Agent       string            `json:"agent"`
	Role        model.AgentRole   `json:"role"`
	Personality model.Personality `json:"personality"`
	TeamID      string            `json:"team_id,omitempty"`
	Cycle       int64             `json:"cycle"`
	ObservedAt  time.Time         `json:"observed_at"`
	Action      model.ActionKind  `json:"action"`
	TargetID    *uuid.UUID        `json:"target_id,omitempty"`
	Priority    int               `json:"priority"`
	Rule        string            `json:"rule,omitempty"`
	Reasoning   string            `json:"reasoning,omitempty"`
	Source      string            `json:"source,omitempty"`
	Applied     bool              `json:"applied"`
	Error       string            `json:"error,omitempty"`
	Duration    time.Duration     `json:"duration"`
}

// FromDecision fills the decision fields of an entry.
func FromDecision(e Entry, d model.Decision) Entry {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.Action = d.Action
	e.TargetID = d.TargetID
	e.Priority = d.Priority
	e.Rule = d.Rule
	e.Reasoning = d.Reasoning
	e.Source = d.Param(model.ParamSource)
	return e
}

// Recorder persists entries. Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, e Entry) error
	// Recent returns the newest entries first. An empty agent matches all.
	Recent(ctx context.Context, agent string, limit int) ([]Entry, error)
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) Recent(context.Context, string, int) ([]Entry, error) { return nil, nil }

func (Nop) Close() error { return nil }

// Open returns the recorder for dsn:
//
//	""  or "none"                  Nop
//	postgres://... postgresql://   PostgreSQL
//	sqlite:<path>, file:..., path  SQLite
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Recorder, error) {
	switch {
	case dsn == "" || dsn == "none":
		return Nop{}, nil
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgres(ctx, dsn, logger)
	default:
		return NewSQLite(ctx, strings.TrimPrefix(dsn, "sqlite:"), logger)
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 50
	}
	return limit
}

func validate(e Entry) error {
	if e.ID == uuid.Nil {
		return fmt.Errorf("journal: entry has no id")
	}
	if e.Agent == "" || e.Action == "" {
		return fmt.Errorf("journal: entry needs agent and action")
	}
	return nil
}
