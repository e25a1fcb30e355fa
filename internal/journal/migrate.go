package journal

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"
)

// schema is the backend-specific half of the migration runner.
type schema interface {
	exec(ctx context.Context, query string, args ...any) error
	appliedVersions(ctx context.Context) (map[string]bool, error)
	// markApplied records version in schema_migrations.
	markApplied(ctx context.Context, version string) error
}

// runMigrations executes unapplied SQL files from dir in name order. Each
// file runs at most once; applied versions live in schema_migrations.
func runMigrations(ctx context.Context, s schema, fsys fs.FS, dir string, logger *slog.Logger) error {
	if err := s.exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("journal: create schema_migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("journal: load applied migrations: %w", err)
	}

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("journal: read migrations dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") || applied[name] {
			continue
		}
		content, err := fs.ReadFile(fsys, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("journal: read migration %s: %w", name, err)
		}
		logger.Debug("running journal migration", "dir", dir, "file", name)
		if err := s.exec(ctx, string(content)); err != nil {
			return fmt.Errorf("journal: execute migration %s: %w", name, err)
		}
		if err := s.markApplied(ctx, name); err != nil {
			return fmt.Errorf("journal: record migration %s: %w", name, err)
		}
	}
	return nil
}
