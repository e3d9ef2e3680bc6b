package language

import (
	"context"
	"fmt"

	"github.com/go-enry/go-enry/v2"

	"github.com/stackvity/codelens/pkg/codelens/registry"
)

// Evidence strengths for explicit in-file declarations.
const (
	shebangConfidence  = 0.95
	modelineConfidence = 0.9
	// rankShare is the part of a candidate's corroboration score that its
	// classifier rank can withhold: the top candidate keeps all of it.
	rankShare = 0.3
	// signatureBonus is added for text showing a signature of the language.
	signatureBonus = 0.2
)

// EnryClassifier classifies text with go-enry, restricted to registry
// languages. Shebang and modeline declarations are trusted outright. Enry only
// returns an order and not a probability, so a ranked candidate is scored by
// its corroboration, scaled down by rank and raised by signature hits.
// Candidates without corroboration score zero, which leaves prose below any
// confidence floor.
type EnryClassifier struct {
	candidates  []string
	sampleLines int
	topK        int
}

// NewEnryClassifier returns a classifier over every registry language.
func NewEnryClassifier(topK, sampleLines int) *EnryClassifier {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if sampleLines <= 0 {
		sampleLines = DefaultSampleLines
	}
	return &EnryClassifier{
		candidates:  registry.AllIdentifiers(),
		sampleLines: sampleLines,
		topK:        topK,
	}
}

// Classify implements Classifier.
func (c *EnryClassifier) Classify(ctx context.Context, text, filenameHint string) ([]Guess, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}
	content := []byte(text)
	if enry.IsBinary(content) {
		return nil, fmt.Errorf("%w: binary content", ErrClassifierUnavailable)
	}

	scores := make(map[string]float64)
	order := make([]string, 0, len(c.candidates))
	record := func(lang string, conf float64) {
		p, err := registry.ProfileFor(lang)
		if err != nil {
			return
		}
		prev, seen := scores[p.ID]
		if !seen {
			order = append(order, p.ID)
		}
		if conf > prev {
			scores[p.ID] = conf
		}
	}

	for _, lang := range enry.GetLanguagesByShebang(filenameHint, content, nil) {
		record(lang, shebangConfidence)
	}
	for _, lang := range enry.GetLanguagesByModeline(filenameHint, content, nil) {
		record(lang, modelineConfidence)
	}

	ranked := enry.GetLanguagesByClassifier(filenameHint, content, c.candidates)
	for i, lang := range ranked {
		p, err := registry.ProfileFor(lang)
		if err != nil {
			continue
		}
		weight := 1 / float64(i+1)
		score, signed := corroborate(text, p, c.sampleLines)
		conf := score * (1 - rankShare + rankShare*weight)
		if signed {
			conf = min(1, conf+signatureBonus)
		}
		record(lang, conf)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassifierUnavailable, err)
	}

	guesses := make([]Guess, 0, len(order))
	for _, id := range order {
		guesses = append(guesses, Guess{Language: id, Confidence: scores[id]})
	}
	return rank(guesses, c.topK), nil
}
