// Package registry holds the fixed table of language profiles that drive
// every heuristic in codelens. Profiles are plain data: adding a language
// means adding one entry to the table in profiles.go.
//
// The registry is built once at package initialization and is read-only
// afterwards, so it is safe for unrestricted concurrent use.
package registry

import (
	"errors"
	"regexp"
	"strings"
)

const (
	// PlainText is reported for non-empty text that no profile claims with
	// enough confidence.
	PlainText = "Plain Text"
	// Unknown is reported when classification itself failed, e.g. for
	// binary content.
	Unknown = "Unknown"
)

// ErrNotFound is returned when no profile matches an identifier or extension.
var ErrNotFound = errors.New("language profile not found")

// BlockComment is a pair of block comment delimiters.
type BlockComment struct {
	Open  string
	Close string
}

// Profile is the rule set describing how to scan one language.
//
// Function and class patterns capture the declared identifier in a group
// named "name"; class patterns may also capture a "kind" group (class,
// struct, interface, ...). All slices are shared and must not be modified.
type Profile struct {
	ID            string
	Extensions    []string
	LineComments  []string
	BlockComments []BlockComment
	// StringFences are delimiters of string literals that may span lines.
	StringFences []string
	// Quotes are the runes opening single-line string (or char) literals.
	Quotes string

	Imports   []*regexp.Regexp
	Functions []*regexp.Regexp
	Classes   []*regexp.Regexp
	Variables []*regexp.Regexp

	Loops        []string
	Conditionals []string
	// CaseInsensitive makes keyword matching ignore case (SQL).
	CaseInsensitive bool

	// Signatures are constructs that are characteristic of the language.
	// They are only used to corroborate a classification.
	Signatures []*regexp.Regexp

	// IndentBlocks marks languages whose bodies are delimited by
	// indentation instead of braces or end keywords.
	IndentBlocks bool
}

// HasConstructs reports whether the profile defines any code-construct rule.
// Pseudo profiles (Plain Text, Unknown) do not.
func (p Profile) HasConstructs() bool {
	return len(p.Imports)+len(p.Functions)+len(p.Classes)+len(p.Variables)+
		len(p.Loops)+len(p.Conditionals) > 0
}

// CommentMarker returns the marker used when emitting a one-line comment.
// It prefers the first single-line marker; when the profile has none,
// the first block pair is returned as open and end. ok is false when the
// profile has no comment syntax at all.
func (p Profile) CommentMarker() (open, end string, ok bool) {
	if len(p.LineComments) > 0 {
		return p.LineComments[0], "", true
	}
	if len(p.BlockComments) > 0 {
		return p.BlockComments[0].Open, p.BlockComments[0].Close, true
	}
	return "", "", false
}

var (
	byID  = make(map[string]int, len(profiles))
	byExt = make(map[string]int)
	ids   = make([]string, 0, len(profiles))
)

func init() {
	for i, p := range profiles {
		key := strings.ToLower(p.ID)
		if _, dup := byID[key]; dup {
			panic("registry: duplicate profile " + p.ID)
		}
		byID[key] = i
		ids = append(ids, p.ID)
		for _, ext := range p.Extensions {
			ext = normalizeExtension(ext)
			// First profile claiming an extension owns it.
			if _, taken := byExt[ext]; !taken {
				byExt[ext] = i
			}
		}
	}
}

// ProfileFor returns the profile registered under id. Matching is
// case-insensitive; the returned profile carries the canonical spelling.
func ProfileFor(id string) (Profile, error) {
	i, ok := byID[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profiles[i], nil
}

// ProfileForExtension returns the profile owning ext. The extension may be
// given with or without its leading dot and in any case.
func ProfileForExtension(ext string) (Profile, error) {
	ext = normalizeExtension(ext)
	if ext == "" {
		return Profile{}, ErrNotFound
	}
	i, ok := byExt[ext]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return profiles[i], nil
}

// AllIdentifiers returns every registered identifier in registry order.
func AllIdentifiers() []string {
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}

// All returns every registered profile in registry order.
func All() []Profile {
	out := make([]Profile, len(profiles))
	copy(out, profiles)
	return out
}

// Empty returns a profile with no markers and no rules. It stands in for the
// PlainText and Unknown pseudo languages.
func Empty(id string) Profile {
	return Profile{ID: id}
}

// Resolve returns the profile for id, or an empty profile carrying id when
// the identifier is not in the table.
func Resolve(id string) Profile {
	if p, err := ProfileFor(id); err == nil {
		return p
	}
	return Empty(id)
}

func normalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}
