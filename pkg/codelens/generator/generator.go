// Package generator provides the explanation generators selectable through
// configuration: none, an OpenAI-compatible chat endpoint, Gemini and an
// external command.
package generator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/explain"
)

// Provider names a generator implementation.
type Provider string

const (
	ProviderNone   Provider = "none"
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
	ProviderExec   Provider = "exec"
)

const (
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultMaxTokens   = 400
)

// systemPrompt frames every chat-style request.
const systemPrompt = "You explain source code to developers. Answer in plain prose, without markdown headings or code."

// Config selects and configures a generator.
type Config struct {
	Provider  Provider `mapstructure:"provider"`
	Model     string   `mapstructure:"model"`
	APIKey    string   `mapstructure:"apiKey"`
	BaseURL   string   `mapstructure:"baseURL"`
	MaxTokens int      `mapstructure:"maxTokens"`
	// Command is the external program for ProviderExec, argv style.
	Command []string `mapstructure:"command"`
	// RequestsPerSecond paces calls to the generator. Zero disables pacing.
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	Burst             int     `mapstructure:"burst"`
}

// ErrUnknownProvider is returned by New for an unrecognized provider.
var ErrUnknownProvider = errors.New("unknown generator provider")

// New builds the generator described by cfg. runner is only used by the
// exec provider and may be nil otherwise.
func New(ctx context.Context, cfg Config, runner ExecRunner, handler slog.Handler) (explain.Generator, error) {
	if handler == nil {
		handler = slog.DiscardHandler
	}

	var (
		gen explain.Generator
		err error
	)
	switch Provider(strings.ToLower(string(cfg.Provider))) {
	case "", ProviderNone:
		return Unavailable{}, nil
	case ProviderOpenAI:
		gen, err = NewOpenAI(cfg)
	case ProviderGemini:
		gen, err = NewGemini(ctx, cfg)
	case ProviderExec:
		gen, err = NewExec(runner, cfg.Command, handler)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		gen = NewRateLimited(gen, cfg.RequestsPerSecond, cfg.Burst)
	}
	return gen, nil
}

// Unavailable always reports explain.ErrGeneratorUnavailable, which leaves
// explanations to the template.
type Unavailable struct{}

// Generate implements explain.Generator.
func (Unavailable) Generate(context.Context, string, string) (string, error) {
	return "", explain.ErrGeneratorUnavailable
}

// userMessage joins the prompt and a fenced excerpt.
func userMessage(prompt, excerpt string) string {
	return prompt + "\n\n```\n" + excerpt + "\n```"
}

// classify maps a transport error onto the explain sentinels.
func classify(ctx context.Context, provider string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", explain.ErrGeneratorTimeout, provider, err)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", explain.ErrGeneratorUnavailable, provider, err)
}
