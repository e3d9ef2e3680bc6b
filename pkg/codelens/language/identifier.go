package language

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/stackvity/codelens/pkg/codelens/registry"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultTopK                = 3
	DefaultAcceptanceThreshold = 0.2
	DefaultConfidenceFloor     = 0.3
	DefaultMinLength           = 8
	DefaultClassifierTimeout   = 2 * time.Second
)

// Source records which signal decided an identification.
type Source string

const (
	SourceExtension  Source = "extension"
	SourceClassifier Source = "classifier"
	SourceFallback   Source = "fallback"
)

// Config tunes the merge between classifier guesses and the filename hint.
type Config struct {
	// TopK is how many classifier guesses are considered.
	TopK int `mapstructure:"topK"`
	// AcceptanceThreshold is the low bar the extension language must clear,
	// either as a classifier guess or by its own corroboration score.
	AcceptanceThreshold float64 `mapstructure:"acceptanceThreshold"`
	// ConfidenceFloor is the absolute minimum for the classifier's top guess;
	// below it the text is reported as Plain Text.
	ConfidenceFloor float64 `mapstructure:"confidenceFloor"`
	// MinLength is the trimmed rune count under which text is too short to
	// classify.
	MinLength int `mapstructure:"minLength"`
	// SampleLines bounds corroboration work.
	SampleLines int `mapstructure:"sampleLines"`
	// Timeout bounds one classifier call.
	Timeout time.Duration `mapstructure:"timeout"`
}

func (c Config) withDefaults() Config {
	if c.TopK <= 0 {
		c.TopK = DefaultTopK
	}
	if c.AcceptanceThreshold <= 0 {
		c.AcceptanceThreshold = DefaultAcceptanceThreshold
	}
	if c.ConfidenceFloor <= 0 {
		c.ConfidenceFloor = DefaultConfidenceFloor
	}
	if c.MinLength <= 0 {
		c.MinLength = DefaultMinLength
	}
	if c.SampleLines <= 0 {
		c.SampleLines = DefaultSampleLines
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultClassifierTimeout
	}
	return c
}

// Identification is the outcome of Identify.
type Identification struct {
	Language   string
	Confidence float64
	Profile    registry.Profile
	Source     Source
}

// Identifier picks one language for a text. It holds no per-request state
// and is safe for concurrent use.
type Identifier struct {
	classifier Classifier
	cfg        Config
	logger     *slog.Logger
}

// NewIdentifier returns an Identifier backed by classifier. A nil classifier
// falls back to the HeuristicClassifier; a nil logger discards output.
func NewIdentifier(classifier Classifier, cfg Config, logger *slog.Logger) *Identifier {
	if classifier == nil {
		classifier = NewHeuristicClassifier()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Identifier{
		classifier: classifier,
		cfg:        cfg.withDefaults(),
		logger:     logger.With(slog.String("component", "languageIdentifier")),
	}
}

// Identify classifies text, optionally helped by filename. It fails only for
// empty text or when ctx is cancelled; classifier problems are absorbed.
func (id *Identifier) Identify(ctx context.Context, text, filename string) (Identification, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Identification{}, ErrEmptyInput
	}

	hint, hasHint := hintProfile(filename)
	if utf8.RuneCountInString(trimmed) < id.cfg.MinLength {
		if hasHint {
			return id.extension(hint, Corroborate(text, hint, id.cfg.SampleLines)), nil
		}
		return fallback(registry.PlainText), nil
	}

	var corroboration float64
	if hasHint {
		corroboration = Corroborate(text, hint, id.cfg.SampleLines)
	}

	guesses, err := id.classify(ctx, text, filename)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Identification{}, ctxErr
	}
	if err != nil {
		id.logger.Warn("Classifier unavailable, using fallback",
			slog.String("filename", filename), slog.String("error", err.Error()))
		if hasHint {
			return id.extension(hint, corroboration), nil
		}
		return fallback(registry.Unknown), nil
	}

	if hasHint {
		for _, g := range guesses {
			if g.Language == hint.ID && g.Confidence >= id.cfg.AcceptanceThreshold {
				return id.extension(hint, max(g.Confidence, corroboration)), nil
			}
		}
		if corroboration >= id.cfg.AcceptanceThreshold {
			return id.extension(hint, corroboration), nil
		}
	}

	for _, g := range guesses {
		p, err := registry.ProfileFor(g.Language)
		if err != nil {
			continue
		}
		if g.Confidence < id.cfg.ConfidenceFloor {
			break
		}
		return Identification{Language: p.ID, Confidence: g.Confidence, Profile: p, Source: SourceClassifier}, nil
	}
	return fallback(registry.PlainText), nil
}

// classify runs one bounded classifier attempt.
func (id *Identifier) classify(ctx context.Context, text, filename string) ([]Guess, error) {
	cctx, cancel := context.WithTimeout(ctx, id.cfg.Timeout)
	defer cancel()

	type outcome struct {
		guesses []Guess
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("%w: classifier panic: %v", ErrClassifierUnavailable, r)}
			}
		}()
		g, err := id.classifier.Classify(cctx, text, filename)
		done <- outcome{guesses: g, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil && !errors.Is(o.err, ErrClassifierUnavailable) {
			o.err = fmt.Errorf("%w: %v", ErrClassifierUnavailable, o.err)
		}
		if o.err == nil {
			o.guesses = rank(append([]Guess(nil), o.guesses...), id.cfg.TopK)
		}
		return o.guesses, o.err
	case <-cctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, cctx.Err())
	}
}

func (id *Identifier) extension(p registry.Profile, confidence float64) Identification {
	return Identification{Language: p.ID, Confidence: confidence, Profile: p, Source: SourceExtension}
}

func fallback(lang string) Identification {
	return Identification{Language: lang, Profile: registry.Empty(lang), Source: SourceFallback}
}

func hintProfile(filename string) (registry.Profile, bool) {
	if filename == "" {
		return registry.Profile{}, false
	}
	p, err := registry.ProfileForExtension(filepath.Ext(filename))
	return p, err == nil
}
