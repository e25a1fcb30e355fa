// Package llm provides text completion clients for the AI-assisted evaluator.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrDisabled is returned by providers that have no backing model.
var ErrDisabled = errors.New("llm: provider disabled")

// Provider returns free-form text for a prompt and optional system
// instruction. Implementations must be safe for concurrent use.
type Provider interface {
	Name() string
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// Config selects and configures a provider.
type Config struct {
	Provider     string // "auto", "gemini", "openai" or "none"
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
}

// New builds the configured provider. "auto" prefers Gemini, then OpenAI,
// and settles on Noop when no key is present. A provider that fails to
// initialize degrades to Noop: agents then run on the fallback evaluator.
func New(ctx context.Context, cfg Config, logger *slog.Logger) Provider {
	choice := cfg.Provider
	if choice == "" || choice == "auto" {
		switch {
		case cfg.GeminiAPIKey != "":
			choice = "gemini"
		case cfg.OpenAIAPIKey != "":
			choice = "openai"
		default:
			logger.Warn("no llm provider configured, using rule-based evaluation only")
			return Noop{}
		}
	}

	var (
		p   Provider
		err error
	)
	switch choice {
	case "gemini":
		p, err = NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, logger)
	case "openai":
		p, err = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel, logger)
	case "none", "noop":
		logger.Info("llm provider: none (rule-based evaluation only)")
		return Noop{}
	default:
		err = fmt.Errorf("llm: unknown provider %q", choice)
	}
	if err != nil {
		logger.Error("llm provider init failed", "error", err)
		return Noop{}
	}
	logger.Info("llm provider initialized", "provider", p.Name())
	return p
}

// Noop always fails with ErrDisabled.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Complete(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}

// Func adapts a function to Provider. Useful for tests and scripted runs.
type Func func(ctx context.Context, system, prompt string) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Complete(ctx context.Context, system, prompt string) (string, error) {
	if f == nil {
		return "", fmt.Errorf("llm: nil completion func")
	}
	return f(ctx, system, prompt)
}
