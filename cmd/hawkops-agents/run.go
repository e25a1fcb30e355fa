package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/cocheuno/HawkOps-sub002/internal/agent"
	"github.com/cocheuno/HawkOps-sub002/internal/config"
	"github.com/cocheuno/HawkOps-sub002/internal/gameapi"
	"github.com/cocheuno/HawkOps-sub002/internal/journal"
	"github.com/cocheuno/HawkOps-sub002/internal/model"
	"github.com/cocheuno/HawkOps-sub002/internal/orchestrator"
	"github.com/cocheuno/HawkOps-sub002/internal/policy"
	"github.com/cocheuno/HawkOps-sub002/internal/sla"
	"github.com/cocheuno/HawkOps-sub002/internal/telemetry"
)

func newRunCmd() *cobra.Command {
	var (
		roles         string
		personality   string
		personalities string
		verbose       bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start one agent per role and run until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := applyRunFlags(cmd, &cfg, roles, personality, personalities, verbose); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(os.Stdout, cfg.LogLevel)
			slog.SetDefault(logger)

			sigs := make(chan os.Signal, 2)
			signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigs)
			return runAgents(cmd.Context(), cfg, logger, cmd.OutOrStdout(), sigs)
		},
	}
	cmd.Flags().StringVar(&roles, "roles", "", "comma-separated roles to run (default from HAWKOPS_ROLES)")
	cmd.Flags().StringVar(&personality, "personality", "", "personality for every agent")
	cmd.Flags().StringVar(&personalities, "personalities", "", "per-role personalities, e.g. management=cautious")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log every decision at info")
	return cmd
}

func applyRunFlags(cmd *cobra.Command, cfg *config.Config, roles, personality, personalities string, verbose bool) error {
	var err error
	if roles != "" {
		if cfg.Roles, err = config.ParseRoles(roles); err != nil {
			return fmt.Errorf("--roles: %w", err)
		}
	}
	if personality != "" {
		if cfg.Personality, err = model.ParsePersonality(personality); err != nil {
			return fmt.Errorf("--personality: %w", err)
		}
	}
	if personalities != "" {
		overrides, err := config.ParsePersonalities(personalities)
		if err != nil {
			return fmt.Errorf("--personalities: %w", err)
		}
		if cfg.Personalities == nil {
			cfg.Personalities = map[model.AgentRole]model.Personality{}
		}
		for r, p := range overrides {
			cfg.Personalities[r] = p
		}
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = verbose
	}
	return nil
}

// runAgents runs every configured agent until they stop. The first signal
// on sigs lets each agent finish its current cycle; a second one cancels
// in-flight work.
func runAgents(ctx context.Context, cfg config.Config, logger *slog.Logger, out io.Writer, sigs <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger.Info("hawkops agents starting", "version", version, "game", cfg.GameID, "roles", cfg.Roles)

	otelShutdown, err := telemetry.Init(ctx, telemetry.Config{
		Endpoint:    cfg.OTELEndpoint,
		Insecure:    cfg.OTELInsecure,
		ServiceName: cfg.ServiceName,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	rec, err := journal.Open(ctx, cfg.JournalDSN, logger)
	if err != nil {
		return fmt.Errorf("journal: %w", err)
	}
	defer func() { _ = rec.Close() }()

	var members []orchestrator.Member
	for _, ac := range cfg.Agents() {
		members = append(members, orchestrator.Member{
			Name:    ac.Name,
			Role:    ac.Role,
			Factory: agentFactory(ac, cfg, rec, logger),
		})
	}
	orch, err := orchestrator.New(members, logger)
	if err != nil {
		return err
	}

	go watchSignals(ctx, sigs, orch.StopAll, cancel, logger)
	reports := orch.Run(ctx)
	printReports(out, reports)

	for _, r := range reports {
		if r.Status != model.RunStatusFailedStart {
			return nil
		}
	}
	return errors.New("no agent could be started")
}

// watchSignals turns the first signal into a graceful stop and the second
// into cancellation. It returns when ctx is done.
func watchSignals(ctx context.Context, sigs <-chan os.Signal, stopAll func(), cancel context.CancelFunc, logger *slog.Logger) {
	select {
	case <-ctx.Done():
		return
	case sig := <-sigs:
		logger.Info("stopping agents after their current cycle", "signal", sig.String())
		stopAll()
	}
	select {
	case <-ctx.Done():
	case sig := <-sigs:
		logger.Warn("cancelling in-flight cycles", "signal", sig.String())
		cancel()
	}
}

// agentFactory builds one agent with its own game client and evaluator, so
// agents share no client state or LLM call budget.
func agentFactory(ac config.AgentConfig, cfg config.Config, rec journal.Recorder, logger *slog.Logger) orchestrator.Factory {
	return func(ctx context.Context) (orchestrator.Runner, error) {
		client, err := gameapi.NewClient(gameapi.Config{
			BaseURL: ac.BaseURL,
			GameID:  ac.GameID,
			TeamID:  ac.TeamID,
			Token:   ac.Token,
			Timeout: cfg.RequestTimeout,
		})
		if err != nil {
			return nil, err
		}
		if exp := client.TokenExpiry(); !exp.IsZero() && !exp.After(time.Now()) {
			return nil, fmt.Errorf("%s: %w at %s", ac.Name, gameapi.ErrTokenExpired, exp.Format(time.RFC3339))
		}

		agentLogger := logger.With("player", ac.PlayerID)
		knobs := policy.DefaultKnobs(ac.Personality)
		knobs.AlertBreaches = cfg.AlertBreaches
		c, err := agent.New(agent.Deps{
			Role:        ac.Role,
			Personality: ac.Personality,
			TeamID:      ac.TeamID,
			Clock:       sla.New(cfg.SLARiskWindow),
			Source:      client,
			Sink:        client,
			Evaluator:   newEvaluator(ctx, cfg, agentLogger),
			Knobs:       &knobs,
			Logger:      agentLogger,
		})
		if err != nil {
			return nil, err
		}
		return agent.NewRuntime(c, agent.Options{
			Name:         ac.Name,
			PollInterval: ac.PollInterval,
			ActionDelay:  ac.ActionDelay,
			CycleTimeout: ac.CycleTimeout,
			Verbose:      ac.Verbose,
			Journal:      rec,
		}, agentLogger), nil
	}
}

func printReports(w io.Writer, reports []model.AgentReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Agent", "Role", "Status", "Cycles", "Uptime", "Error"})
	for _, r := range reports {
		tw.AppendRow(table.Row{r.Name, r.Role, r.Status, r.Cycles, r.Duration.Round(time.Second), r.Error})
	}
	tw.Render()
}
