// Package explain turns a structural summary and a code excerpt into a
// natural-language explanation.
//
// The explanation always starts from a deterministic skeleton rendered from
// explanation.tmpl. A Generator may elaborate on it; when the generator is
// missing, fails, times out or returns nothing, the skeleton alone is used.
package explain

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"
	"time"
	"unicode/utf8"

	"github.com/stackvity/codelens/pkg/codelens/detail"
	"github.com/stackvity/codelens/pkg/codelens/structure"
	"github.com/tmc/langchaingo/textsplitter"
)

var (
	// ErrGeneratorUnavailable reports that no generator could be reached.
	ErrGeneratorUnavailable = errors.New("explanation generator unavailable")
	// ErrGeneratorTimeout reports that the generator did not answer in time.
	ErrGeneratorTimeout = errors.New("explanation generator timed out")
)

const (
	DefaultExcerptLimit = 4000
	DefaultTimeout      = 15 * time.Second
	// TruncationMarker ends an excerpt cut short of the full text.
	TruncationMarker = "... [truncated]"
)

// Generator produces a prose elaboration for a prompt and code excerpt.
type Generator interface {
	Generate(ctx context.Context, prompt, excerpt string) (string, error)
}

// GeneratorFunc adapts a function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt, excerpt string) (string, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, prompt, excerpt string) (string, error) {
	return f(ctx, prompt, excerpt)
}

// Config tunes a Synthesizer. Zero values select the defaults.
type Config struct {
	ExcerptLimit int           `mapstructure:"excerptLimit"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Input is what an explanation is built from.
type Input struct {
	Language string
	Text     string
	Summary  structure.Summary
	Details  detail.Report
}

// Explanation is the synthesized description of one text.
type Explanation struct {
	// Text is the skeleton, followed by the elaboration when there is one.
	Text        string
	Skeleton    string
	Elaboration string
	// Degraded is set when Text is the skeleton alone.
	Degraded bool
}

//go:embed explanation.tmpl
var templates embed.FS

var tmpl = template.Must(template.New("explanation").Funcs(template.FuncMap{
	"article": article,
	"count":   count,
	"join":    func(items []string) string { return strings.Join(items, ", ") },
	"names":   names,
}).ParseFS(templates, "explanation.tmpl"))

// Synthesizer builds explanations. It is safe for concurrent use.
type Synthesizer struct {
	gen    Generator
	cfg    Config
	logger *slog.Logger
}

// NewSynthesizer creates a Synthesizer. A nil gen yields skeleton-only
// explanations.
func NewSynthesizer(gen Generator, cfg Config, handler slog.Handler) *Synthesizer {
	if cfg.ExcerptLimit <= 0 {
		cfg.ExcerptLimit = DefaultExcerptLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &Synthesizer{
		gen:    gen,
		cfg:    cfg,
		logger: slog.New(handler).With(slog.String("component", "explanationSynthesizer")),
	}
}

// Skeleton renders the deterministic part of an explanation.
func Skeleton(in Input) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "skeleton", in); err != nil {
		return "", fmt.Errorf("render explanation skeleton: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// Explain builds the explanation for in. Generator failures degrade to the
// skeleton and are never returned; only cancellation of ctx is.
func (s *Synthesizer) Explain(ctx context.Context, in Input) (Explanation, error) {
	if err := ctx.Err(); err != nil {
		return Explanation{}, err
	}
	skeleton, err := Skeleton(in)
	if err != nil {
		return Explanation{}, err
	}
	out := Explanation{Text: skeleton, Skeleton: skeleton, Degraded: true}
	if s.gen == nil {
		return out, nil
	}

	var prompt bytes.Buffer
	if err := tmpl.ExecuteTemplate(&prompt, "prompt", struct {
		Language string
		Skeleton string
	}{in.Language, skeleton}); err != nil {
		return Explanation{}, fmt.Errorf("render explanation prompt: %w", err)
	}

	gctx := WithLanguage(ctx, in.Language)
	text, err := s.generate(gctx, strings.TrimSpace(prompt.String()), Excerpt(in.Text, s.cfg.ExcerptLimit))
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Explanation{}, ctxErr
	}
	if err != nil {
		s.logger.Warn("Explanation generator failed, using template only",
			slog.String("language", in.Language), slog.String("error", err.Error()))
		return out, nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		s.logger.Debug("Explanation generator returned no text, using template only")
		return out, nil
	}

	out.Elaboration = text
	out.Text = skeleton + "\n\n" + text
	out.Degraded = false
	return out, nil
}

type languageKey struct{}

// WithLanguage returns a context carrying the language of the text being
// explained, for generators that forward it.
func WithLanguage(ctx context.Context, language string) context.Context {
	return context.WithValue(ctx, languageKey{}, language)
}

// LanguageFrom returns the language stored by WithLanguage, or "".
func LanguageFrom(ctx context.Context) string {
	language, _ := ctx.Value(languageKey{}).(string)
	return language
}

type generation struct {
	text string
	err  error
}

// generate runs one generator attempt bounded by the configured timeout.
func (s *Synthesizer) generate(ctx context.Context, prompt, excerpt string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	done := make(chan generation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- generation{err: fmt.Errorf("%w: generator panicked: %v", ErrGeneratorUnavailable, r)}
			}
		}()
		text, err := s.gen.Generate(gctx, prompt, excerpt)
		done <- generation{text: text, err: err}
	}()

	select {
	case g := <-done:
		if g.err != nil && errors.Is(gctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return "", fmt.Errorf("%w: %w", ErrGeneratorTimeout, g.err)
		}
		return g.text, g.err
	case <-gctx.Done():
		if err := ctx.Err(); err != nil {
			return "", err
		}
		return "", fmt.Errorf("%w after %s", ErrGeneratorTimeout, s.cfg.Timeout)
	}
}

// Excerpt returns at most limit runes of text. A shortened excerpt ends at a
// line or word boundary where possible and carries TruncationMarker.
func Excerpt(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(limit),
		textsplitter.WithChunkOverlap(0),
		textsplitter.WithSeparators([]string{"\n\n", "\n", " ", ""}),
	)
	head := ""
	if chunks, err := splitter.SplitText(text); err == nil && len(chunks) > 0 {
		head = chunks[0]
	}
	if head == "" || utf8.RuneCountInString(head) > limit {
		head = string([]rune(text)[:limit])
	}
	return strings.TrimRight(head, " \t\r\n") + "\n" + TruncationMarker
}

func count(n int, one, many string) string {
	if n == 1 {
		return "1 " + one
	}
	return strconv.Itoa(n) + " " + many
}

func article(word string) string {
	if word != "" && strings.ContainsRune("AEIOUaeiou", rune(word[0])) {
		return "an"
	}
	return "a"
}

// names lists the first three names, ending in an ellipsis when there are
// more.
func names(all []string) string {
	if len(all) <= 3 {
		return strings.Join(all, ", ") + "."
	}
	return strings.Join(all[:3], ", ") + "..."
}
