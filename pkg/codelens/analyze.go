// Package codelens analyzes source code of unknown language. An Analyzer
// identifies the language of a text, counts its structural constructs,
// explains it and returns a copy annotated with documentation comments. An
// Engine runs the same pipeline over every source file of a directory tree.
package codelens

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/annotate"
	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stackvity/codelens/pkg/codelens/detail"
	"github.com/stackvity/codelens/pkg/codelens/encoding"
	"github.com/stackvity/codelens/pkg/codelens/explain"
	"github.com/stackvity/codelens/pkg/codelens/language"
	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/codelens/structure"
)

// AnalysisRequest is one text to analyze. Filename is an optional hint whose
// extension may decide the language.
type AnalysisRequest struct {
	Code     string `json:"code"`
	Filename string `json:"filename,omitempty"`
}

// AnalysisResult is the outcome of Analyze.
type AnalysisResult struct {
	Language       string            `json:"language" yaml:"language"`
	Explanation    string            `json:"explanation" yaml:"explanation"`
	Structure      structure.Summary `json:"structure" yaml:"structure"`
	DocumentedCode string            `json:"documented_code" yaml:"documented_code"`
	Details        *detail.Report    `json:"details,omitempty" yaml:"details,omitempty"`

	Meta ResultMeta `json:"-" yaml:"-"`
}

// ResultMeta carries diagnostics that are not part of the wire format.
type ResultMeta struct {
	Confidence     float64
	LanguageSource language.Source
	Encoding       string
	// Degraded is set when the explanation is the template alone.
	Degraded bool
	// Unsupported is set for binary input.
	Unsupported bool
}

// Analyzer runs the analysis pipeline. It keeps no per-request state and is
// safe for concurrent use.
type Analyzer struct {
	maxInput       int
	includeDetails bool
	identifier     *language.Identifier
	synthesizer    *explain.Synthesizer
	encoding       encoding.Handler
	details        detail.Extractor
	settingsHash   string
	logger         *slog.Logger
}

// NewAnalyzer validates opts and builds an Analyzer, filling unset
// dependencies with the defaults.
func NewAnalyzer(opts AnalyzerOptions) (*Analyzer, error) {
	if opts.MaxInputBytes < 0 {
		return nil, fmt.Errorf("%w: maxInputBytes cannot be negative", ErrConfigValidation)
	}
	if opts.MaxInputBytes == 0 {
		opts.MaxInputBytes = DefaultMaxInputBytes
	}
	handler := opts.Logger
	if handler == nil {
		handler = slog.DiscardHandler
	}
	logger := slog.New(handler)

	classifier := opts.LanguageClassifier
	if classifier == nil {
		switch opts.Classifier {
		case "", ClassifierEnry:
			opts.Classifier = ClassifierEnry
			classifier = language.NewEnryClassifier(opts.Language.TopK, opts.Language.SampleLines)
		case ClassifierHeuristic:
			classifier = language.NewHeuristicClassifier()
		default:
			return nil, fmt.Errorf("%w: unknown classifier %q", ErrConfigValidation, opts.Classifier)
		}
	}
	if opts.EncodingHandler == nil {
		opts.EncodingHandler = encoding.NewCharsetHandler(opts.DefaultEncoding)
	}
	if opts.DetailExtractor == nil {
		opts.DetailExtractor = detail.NewDefaultExtractor(handler)
	}

	return &Analyzer{
		maxInput:       opts.MaxInputBytes,
		includeDetails: opts.IncludeDetails,
		identifier:     language.NewIdentifier(classifier, opts.Language, logger),
		synthesizer:    explain.NewSynthesizer(opts.Generator, opts.Explain, handler),
		encoding:       opts.EncodingHandler,
		details:        opts.DetailExtractor,
		settingsHash:   settingsHash(opts, classifier),
		logger:         logger.With(slog.String("component", "analyzer")),
	}, nil
}

// settingsHash fingerprints every option that can change a result.
func settingsHash(opts AnalyzerOptions, classifier language.Classifier) string {
	return cache.Fingerprint(
		fmt.Sprintf("%T", classifier),
		fmt.Sprintf("%T", opts.Generator),
		fmt.Sprintf("%+v", opts.Language),
		fmt.Sprintf("%+v", opts.Explain),
		fmt.Sprintf("%d/%t/%s", opts.MaxInputBytes, opts.IncludeDetails, opts.DefaultEncoding),
	)
}

// SettingsHash identifies the analyzer configuration for result caching.
func (a *Analyzer) SettingsHash() string { return a.settingsHash }

// MaxInputBytes is the enforced input ceiling.
func (a *Analyzer) MaxInputBytes() int { return a.maxInput }

// Analyze runs the pipeline over req.Code. Binary input yields an
// unsupported-content result and a nil error. Generator and classifier
// trouble degrade the result instead of failing it.
func (a *Analyzer) Analyze(ctx context.Context, req AnalysisRequest) (result AnalysisResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Panic recovered during analysis",
				slog.String("filename", req.Filename), slog.Any("panicValue", r), slog.String("stack", string(debug.Stack())))
			result = AnalysisResult{}
			err = fmt.Errorf("%w: panic: %v", ErrAnalysisFailed, r)
		}
	}()

	if strings.TrimSpace(req.Code) == "" {
		return AnalysisResult{}, ErrEmptyInput
	}
	if len(req.Code) > a.maxInput {
		return AnalysisResult{}, fmt.Errorf("%w: %d bytes, limit is %d", ErrInputTooLarge, len(req.Code), a.maxInput)
	}
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	raw := []byte(req.Code)
	if a.encoding.IsBinary(raw) {
		a.logger.Debug("Binary input, returning unsupported-content result", slog.String("filename", req.Filename))
		return Unsupported(req.Code), nil
	}
	decoded, err := a.encoding.Decode(raw)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("%w: decode input: %w", ErrAnalysisFailed, err)
	}
	text := decoded.Text

	ident, err := a.identifier.Identify(ctx, text, req.Filename)
	if err != nil {
		return AnalysisResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	lines := structure.Scan(text, ident.Profile)
	summary := structure.Summarize(lines)
	report := a.details.Extract(text, lines, ident.Profile)
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	expl, err := a.synthesizer.Explain(ctx, explain.Input{
		Language: ident.Language,
		Text:     text,
		Summary:  summary,
		Details:  report,
	})
	if err != nil {
		return AnalysisResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return AnalysisResult{}, err
	}

	documented := annotate.AnnotateScanned(text, lines, ident.Profile)
	if decoded.BOM {
		documented = encoding.UTF8BOM + documented
	}

	result = AnalysisResult{
		Language:       ident.Language,
		Explanation:    expl.Text,
		Structure:      summary,
		DocumentedCode: documented,
		Meta: ResultMeta{
			Confidence:     ident.Confidence,
			LanguageSource: ident.Source,
			Encoding:       decoded.Encoding,
			Degraded:       expl.Degraded,
		},
	}
	if a.includeDetails && !isEmptyReport(report) {
		result.Details = &report
	}
	a.logger.Debug("Analysis complete",
		slog.String("filename", req.Filename),
		slog.String("language", ident.Language),
		slog.String("languageSource", string(ident.Source)),
		slog.Int("totalLines", summary.TotalLines),
		slog.Bool("degraded", expl.Degraded))
	return result, nil
}

// Unsupported returns the result reported for binary content.
func Unsupported(code string) AnalysisResult {
	return AnalysisResult{
		Language:       registry.Unknown,
		Explanation:    UnsupportedNotice,
		DocumentedCode: code,
		Meta:           ResultMeta{Unsupported: true, LanguageSource: language.SourceFallback},
	}
}

func isEmptyReport(r detail.Report) bool {
	return len(r.Functions) == 0 && len(r.Classes) == 0 && len(r.Imports) == 0 && r.DocSummary == "" && r.ML == nil
}
