// Command hawkops-agents runs the autonomous HawkOps support agents against a
// game server, or evaluates a single snapshot offline.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cocheuno/HawkOps-sub002/internal/config"
	"github.com/cocheuno/HawkOps-sub002/internal/evaluator"
	"github.com/cocheuno/HawkOps-sub002/internal/llm"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	os.Exit(run0())
}

func run0() int {
	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hawkops-agents",
		Short:         "Autonomous service desk, technical operations and CAB agents for HawkOps",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newDecideCmd(), newJournalCmd())
	return root
}

func newLogger(w io.Writer, level string) *slog.Logger {
	l, err := config.ParseLevel(level)
	if err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: l}))
}

// newEvaluator composes the configured provider with the rule-based
// fallback. Without a provider every evaluation goes to the fallback.
func newEvaluator(ctx context.Context, cfg config.Config, logger *slog.Logger) *evaluator.Resilient {
	fallback := evaluator.Fallback{MinPlanLength: cfg.MinPlanLength}
	provider := llm.New(ctx, llm.Config{
		Provider:     cfg.LLMProvider,
		GeminiAPIKey: cfg.GeminiAPIKey,
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		OpenAIModel:  cfg.OpenAIModel,
	}, logger)
	if _, ok := provider.(llm.Noop); ok {
		return evaluator.WithFallback(nil, fallback, logger)
	}
	ai := evaluator.NewAI(provider, evaluator.AIOptions{
		CallsPerMinute: float64(cfg.LLMCallsPerMinute),
		Timeout:        cfg.LLMTimeout,
	}, logger)
	return evaluator.WithFallback(ai, fallback, logger)
}
