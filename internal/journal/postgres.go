package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/migrations"
)

// Postgres is a journal shared by every agent process of a deployment.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgres connects to dsn and applies the schema.
func NewPostgres(ctx context.Context, dsn string, logger *slog.Logger) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("journal: parse postgres DSN: %w", err)
	}
	if cfg.MaxConns > 4 {
		cfg.MaxConns = 4
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("journal: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("journal: ping pool: %w", err)
	}

	p := &Postgres{pool: pool, logger: logger}
	if err := runMigrations(ctx, p, migrations.FS, "postgres", logger); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) exec(ctx context.Context, query string, args ...any) error {
	_, err := p.pool.Exec(ctx, query, args...)
	return err
}

func (p *Postgres) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := p.pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func (p *Postgres) markApplied(ctx context.Context, version string) error {
	return p.exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1) ON CONFLICT DO NOTHING`, version)
}

// Record inserts e.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	if err := validate(e); err != nil {
		return err
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO decision_journal
			(id, agent, role, personality, team_id, cycle, observed_at, action, target_id,
			 priority, rule, reasoning, source, applied, error, duration_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		e.ID, e.Agent, string(e.Role), string(e.Personality), e.TeamID, e.Cycle,
		e.ObservedAt, string(e.Action), e.TargetID,
		e.Priority, e.Rule, e.Reasoning, e.Source, e.Applied, e.Error, e.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("journal: postgres insert: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *Postgres) Recent(ctx context.Context, agent string, limit int) ([]Entry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, agent, role, personality, team_id, cycle, observed_at, action, target_id,
		       priority, rule, reasoning, source, applied, error, duration_ms
		FROM decision_journal
		WHERE $1 = '' OR agent = $1
		ORDER BY observed_at DESC, cycle DESC
		LIMIT $2`, agent, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("journal: postgres query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                  Entry
			role, pers, action string
			target             *uuid.UUID
			durMS              int64
		)
		if err := rows.Scan(&e.ID, &e.Agent, &role, &pers, &e.TeamID, &e.Cycle, &e.ObservedAt, &action, &target,
			&e.Priority, &e.Rule, &e.Reasoning, &e.Source, &e.Applied, &e.Error, &durMS); err != nil {
			return nil, fmt.Errorf("journal: postgres scan: %w", err)
		}
		e.Role = model.AgentRole(role)
		e.Personality = model.Personality(pers)
		e.Action = model.ActionKind(action)
		e.TargetID = target
		e.Duration = time.Duration(durMS) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
