// Package language identifies the programming language of raw source text.
//
// Identification blends three signals: a statistical classifier, rule-based
// corroboration against registry profiles, and an optional filename hint.
// The classifier is an injected capability so the pipeline never depends on
// a particular model runtime.
package language

import (
	"context"
	"errors"
	"sort"
)

var (
	// ErrEmptyInput is returned when there is no text to identify.
	ErrEmptyInput = errors.New("no source text provided")

	// ErrClassifierUnavailable signals that the statistical classifier could
	// not produce guesses (failure, timeout, unsupported content). The
	// Identifier recovers from it locally.
	ErrClassifierUnavailable = errors.New("language classifier unavailable")
)

// Guess is one candidate language with its confidence in [0,1].
type Guess struct {
	Language   string
	Confidence float64
}

// Classifier produces ranked language guesses for text. Implementations must
// honour ctx cancellation and return guesses sorted by descending confidence.
// filenameHint may be empty.
type Classifier interface {
	Classify(ctx context.Context, text, filenameHint string) ([]Guess, error)
}

// ClassifierFunc adapts a function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, text, filenameHint string) ([]Guess, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, text, filenameHint string) ([]Guess, error) {
	return f(ctx, text, filenameHint)
}

// rank sorts guesses by descending confidence, keeping the input order for
// ties, and truncates the result to k entries when k > 0.
func rank(guesses []Guess, k int) []Guess {
	sort.SliceStable(guesses, func(i, j int) bool {
		return guesses[i].Confidence > guesses[j].Confidence
	})
	if k > 0 && len(guesses) > k {
		guesses = guesses[:k]
	}
	return guesses
}
