package language

import (
	"context"
	"regexp"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/codelens/structure"
)

// Per-line corroboration weights.
const (
	signatureWeight   = 1.0
	declarationWeight = 0.5
	keywordWeight     = 0.25
)

// DefaultSampleLines bounds how many non-blank lines corroboration reads.
const DefaultSampleLines = 200

var wordToken = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Corroborate scores how well text fits p, independently of any classifier.
// Each sampled non-blank line scores the weight of its strongest hit: a
// language signature, a declaration, or a comment marker or loop/conditional
// keyword. The result is the mean over at most maxLines lines (all lines
// when maxLines <= 0).
func Corroborate(text string, p registry.Profile, maxLines int) float64 {
	score, _ := corroborate(text, p, maxLines)
	return score
}

// corroborate also reports whether a sampled line matched one of the
// profile's signatures.
func corroborate(text string, p registry.Profile, maxLines int) (score float64, signed bool) {
	if !p.HasConstructs() {
		return 0, false
	}
	keywords := keywordSet(p)

	var sum float64
	sampled := 0
	for _, line := range structure.SplitLines(text) {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		v := lineScore(line, trimmed, p, keywords)
		if v == signatureWeight {
			signed = true
		}
		sum += v
		sampled++
		if maxLines > 0 && sampled >= maxLines {
			break
		}
	}
	if sampled == 0 {
		return 0, false
	}
	return sum / float64(sampled), signed
}

func lineScore(line, trimmed string, p registry.Profile, keywords map[string]struct{}) float64 {
	if matchesAny(p.Signatures, line) {
		return signatureWeight
	}
	for _, group := range [][]*regexp.Regexp{p.Imports, p.Functions, p.Classes, p.Variables} {
		if matchesAny(group, line) {
			return declarationWeight
		}
	}
	for _, c := range p.LineComments {
		if strings.HasPrefix(trimmed, c) {
			return keywordWeight
		}
	}
	for _, b := range p.BlockComments {
		if strings.HasPrefix(trimmed, b.Open) {
			return keywordWeight
		}
	}
	for _, tok := range wordToken.FindAllString(line, -1) {
		if p.CaseInsensitive {
			tok = strings.ToLower(tok)
		}
		if _, ok := keywords[tok]; ok {
			return keywordWeight
		}
	}
	return 0
}

func keywordSet(p registry.Profile) map[string]struct{} {
	set := make(map[string]struct{}, len(p.Loops)+len(p.Conditionals))
	for _, k := range append(append([]string{}, p.Loops...), p.Conditionals...) {
		set[k] = struct{}{}
	}
	return set
}

func matchesAny(patterns []*regexp.Regexp, s string) bool {
	for _, re := range patterns {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// HeuristicClassifier ranks every registry language by its corroboration
// score. It is deterministic and has no external dependencies.
type HeuristicClassifier struct {
	SampleLines int
	TopK        int
}

// NewHeuristicClassifier returns a HeuristicClassifier with default limits.
func NewHeuristicClassifier() *HeuristicClassifier {
	return &HeuristicClassifier{SampleLines: DefaultSampleLines, TopK: DefaultTopK}
}

// Classify implements Classifier. Languages scoring zero are omitted.
func (h *HeuristicClassifier) Classify(ctx context.Context, text, _ string) ([]Guess, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var guesses []Guess
	for _, p := range registry.All() {
		if score := Corroborate(text, p, h.SampleLines); score > 0 {
			guesses = append(guesses, Guess{Language: p.ID, Confidence: score})
		}
	}
	return rank(guesses, h.TopK), nil
}
