package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/migrations"
)

// timeLayout keeps observed_at sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite is a file-backed (or in-memory) journal.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens dsn (a path, ":memory:" or a file: URI) and applies the
// schema. Writes are serialized through a single connection.
func NewSQLite(ctx context.Context, dsn string, logger *slog.Logger) (*SQLite, error) {
	if dsn == "" {
		return nil, fmt.Errorf("journal: sqlite dsn is empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: ping sqlite: %w", err)
	}

	s := &SQLite{db: db, logger: logger}
	if err := runMigrations(ctx, s, migrations.FS, "sqlite", logger); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) exec(ctx context.Context, query string, args ...any) error {
	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

func (s *SQLite) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (s *SQLite) markApplied(ctx context.Context, version string) error {
	return s.exec(ctx, `INSERT OR IGNORE INTO schema_migrations (version) VALUES (?)`, version)
}

// Record inserts e.
func (s *SQLite) Record(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	var target any
	if e.TargetID != nil {
		target = e.TargetID.String()
	}
	applied := 0
	if e.Applied {
		applied = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO decision_journal
			(id, agent, role, personality, team_id, cycle, observed_at, action, target_id,
			 priority, rule, reasoning, source, applied, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Agent, string(e.Role), string(e.Personality), e.TeamID, e.Cycle,
		e.ObservedAt.UTC().Format(timeLayout), string(e.Action), target,
		e.Priority, e.Rule, e.Reasoning, e.Source, applied, e.Error, e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("journal: sqlite insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLite) Recent(ctx context.Context, agent string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, agent, role, personality, team_id, cycle, observed_at, action, target_id,
		       priority, rule, reasoning, source, applied, error, duration_ms
		FROM decision_journal
		WHERE ? = '' OR agent = ?
		ORDER BY observed_at DESC, cycle DESC
		LIMIT ?`, agent, agent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: sqlite query: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var (
			e                         Entry
			id, role, pers, act, when string
			target                    sql.NullString
			applied                   int
			durMS                     int64
		)
		if err := rows.Scan(&id, &e.Agent, &role, &pers, &e.TeamID, &e.Cycle, &when, &act, &target,
			&e.Priority, &e.Rule, &e.Reasoning, &e.Source, &applied, &e.Error, &durMS); err != nil {
			return nil, fmt.Errorf("journal: sqlite scan: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("journal: sqlite scan id: %w", err)
		}
		if target.Valid {
			tid, err := uuid.Parse(target.String)
			if err != nil {
				return nil, fmt.Errorf("journal: sqlite scan target: %w", err)
			}
			e.TargetID = &tid
		}
		if e.ObservedAt, err = time.Parse(timeLayout, when); err != nil {
			return nil, fmt.Errorf("journal: sqlite scan observed_at: %w", err)
		}
		e.Role = model.AgentRole(role)
		e.Personality = model.Personality(pers)
		e.Action = model.ActionKind(act)
		e.Applied = applied != 0
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database.
func (s *SQLite) Close() error { return s.db.Close() }
