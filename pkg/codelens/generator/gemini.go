package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/explain"
	"google.golang.org/genai"
)

// Gemini generates explanations with the Gemini API.
type Gemini struct {
	client    *genai.Client
	model     string
	maxTokens int32
}

// NewGemini creates a Gemini generator. An empty API key is rejected.
func NewGemini(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: gemini: API key not set", explain.ErrGeneratorUnavailable)
	}
	clientCfg := &genai.ClientConfig{APIKey: cfg.APIKey, Backend: genai.BackendGeminiAPI}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	cli, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini: %w", explain.ErrGeneratorUnavailable, err)
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Gemini{client: cli, model: model, maxTokens: int32(maxTokens)}, nil
}

// Generate implements explain.Generator.
func (g *Gemini) Generate(ctx context.Context, prompt, excerpt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: userMessage(prompt, excerpt)}}}},
		&genai.GenerateContentConfig{
			SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: systemPrompt}}},
			MaxOutputTokens:   g.maxTokens,
		},
	)
	if err != nil {
		return "", classify(ctx, "gemini", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: gemini: no candidates returned", explain.ErrGeneratorUnavailable)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String(), nil
}
