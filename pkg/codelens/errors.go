package codelens

import (
	"errors"

	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stackvity/codelens/pkg/codelens/explain"
	"github.com/stackvity/codelens/pkg/codelens/git"
	"github.com/stackvity/codelens/pkg/codelens/language"
)

// Errors returned by Analyze, NewEngine and Engine.Run. Errors owned by a
// subpackage are re-exported so callers need only this package for
// errors.Is checks.
var (
	// ErrEmptyInput is returned for empty or whitespace-only code.
	ErrEmptyInput = language.ErrEmptyInput

	// ErrInputTooLarge is returned when the input exceeds the configured
	// ceiling. No analysis work is done.
	ErrInputTooLarge = errors.New("input exceeds size limit")

	// ErrUnsupportedContent marks binary input. Analyze reports it inside
	// the result rather than as an error; batch scans in BinaryError mode
	// return it.
	ErrUnsupportedContent = errors.New("unsupported content")

	// ErrAnalysisFailed is returned when a pipeline stage fails in a way
	// that cannot be degraded, including recovered panics.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrClassifierUnavailable, ErrGeneratorUnavailable and
	// ErrGeneratorTimeout are recovered inside Analyze and never returned
	// by it.
	ErrClassifierUnavailable = language.ErrClassifierUnavailable
	ErrGeneratorUnavailable  = explain.ErrGeneratorUnavailable
	ErrGeneratorTimeout      = explain.ErrGeneratorTimeout

	// ErrConfigValidation is returned for invalid options.
	ErrConfigValidation = errors.New("invalid configuration options provided")

	// ErrReadFailed and ErrStatFailed report source files that could not be
	// inspected during a scan.
	ErrReadFailed = errors.New("failed to read file")
	ErrStatFailed = errors.New("failed to get file stats")

	// ErrMkdirFailed and ErrWriteFailed report outputs that could not be
	// written.
	ErrMkdirFailed = errors.New("failed to create output directory")
	ErrWriteFailed = errors.New("failed to write output file")

	ErrCacheLoad    = cache.ErrCacheLoad
	ErrCachePersist = cache.ErrCachePersist
	ErrGitOperation = git.ErrGitOperation
)
