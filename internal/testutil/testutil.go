// Package testutil holds helpers shared by package tests: an opt-in
// PostgreSQL container for the journal and a quiet logger.
package testutil

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// IntegrationEnv gates tests that start containers.
const IntegrationEnv = "HAWKOPS_INTEGRATION"

// Integration reports whether container-backed tests should run.
func Integration() bool {
	return os.Getenv(IntegrationEnv) == "1"
}

const (
	pgImage = "postgres:16-alpine"
	pgCreds = "hawkops"
)

// Postgres is a running journal database container.
type Postgres struct {
	container testcontainers.Container
	DSN       string
}

// StartPostgres launches a throwaway PostgreSQL server and waits until it
// accepts connections. The server logs readiness twice: once for the init
// pass and once for the real start.
func StartPostgres(ctx context.Context) (*Postgres, error) {
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		Started: true,
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        pgImage,
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     pgCreds,
				"POSTGRES_PASSWORD": pgCreds,
				"POSTGRES_DB":       pgCreds,
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", pgImage, err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("container host: %w", err)
	}
	port, err := c.MappedPort(ctx, "5432")
	if err != nil {
		_ = c.Terminate(ctx)
		return nil, fmt.Errorf("container port: %w", err)
	}
	return &Postgres{
		container: c,
		DSN:       fmt.Sprintf("postgres://%[1]s:%[1]s@%s:%s/%[1]s?sslmode=disable", pgCreds, host, port.Port()),
	}, nil
}

// MustStartPostgres is StartPostgres for TestMain: it exits the test binary
// when the container cannot be started.
func MustStartPostgres() *Postgres {
	pg, err := StartPostgres(context.Background())
	if err != nil {
		fmt.Fprintln(os.Stderr, "testutil:", err)
		os.Exit(1)
	}
	return pg
}

// Terminate removes the container.
func (p *Postgres) Terminate() {
	_ = p.container.Terminate(context.Background())
}

// TestLogger logs warnings and above to stderr.
func TestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
