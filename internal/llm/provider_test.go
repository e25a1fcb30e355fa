package llm

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_NoKeysFallsBackToNoop(t *testing.T) {
	p := New(context.Background(), Config{Provider: "auto"}, discard())
	assert.Equal(t, "noop", p.Name())

	_, err := p.Complete(context.Background(), "", "hi")
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNew_ExplicitNone(t *testing.T) {
	p := New(context.Background(), Config{Provider: "none", OpenAIAPIKey: "sk-test"}, discard())
	assert.Equal(t, "noop", p.Name())
}

func TestNew_MissingKeyDegradesToNoop(t *testing.T) {
	assert.Equal(t, "noop", New(context.Background(), Config{Provider: "openai"}, discard()).Name())
	assert.Equal(t, "noop", New(context.Background(), Config{Provider: "gemini"}, discard()).Name())
	assert.Equal(t, "noop", New(context.Background(), Config{Provider: "ollama"}, discard()).Name())
}

func TestNew_AutoPicksOpenAIWhenOnlyOpenAIKey(t *testing.T) {
	p := New(context.Background(), Config{OpenAIAPIKey: "sk-test"}, discard())
	assert.Equal(t, "openai", p.Name())
}

func TestFunc(t *testing.T) {
	f := Func(func(_ context.Context, system, prompt string) (string, error) {
		return system + "|" + prompt, nil
	})
	out, err := f.Complete(context.Background(), "sys", "user")
	require.NoError(t, err)
	assert.Equal(t, "sys|user", out)

	var nilFunc Func
	_, err = nilFunc.Complete(context.Background(), "", "")
	assert.Error(t, err)
}
