package llm

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini completes prompts with Google's Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGemini creates a Gemini provider. The API key is required.
func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: gemini api key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create gemini client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger.With("component", "gemini", "model", model),
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Complete asks for a JSON response; the evaluator still strips fences
// because the MIME hint is advisory.
func (g *Gemini) Complete(ctx context.Context, system, prompt string) (string, error) {
	var instruction *genai.Content
	if system != "" {
		instruction = genai.Text(system)[0]
	}

	temp := float32(0.2)
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: instruction,
		Temperature:       &temp,
		MaxOutputTokens:   1024,
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("llm: gemini completion: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("llm: gemini returned no content")
	}
	text := resp.Candidates[0].Content.Parts[0].Text

	g.logger.Debug("gemini completion",
		"prompt_length", len(prompt),
		"response_length", len(text),
	)
	return text, nil
}
