// Package util holds path helpers shared by the scan walker and watch mode.
package util

import (
	"path"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// IgnorePattern is one parsed line of an ignore list, gitignore style:
// a leading "!" negates, a leading "/" anchors the pattern at the root and a
// trailing "/" restricts it to directories.
type IgnorePattern struct {
	Raw     string
	Glob    string
	Negated bool
	Rooted  bool
	DirOnly bool
}

// ParseIgnorePattern parses raw. ok is false for blank lines, comments and
// patterns that are not valid doublestar globs.
func ParseIgnorePattern(raw string) (p IgnorePattern, ok bool) {
	p.Raw = raw
	s := strings.TrimSpace(raw)
	if s == "" || strings.HasPrefix(s, "#") {
		return p, false
	}
	if strings.HasPrefix(s, "!") {
		p.Negated = true
		s = strings.TrimSpace(s[1:])
	}
	if strings.HasPrefix(s, "/") {
		p.Rooted = true
		s = strings.TrimLeft(s, "/")
	}
	if strings.HasSuffix(s, "/") {
		p.DirOnly = true
		s = strings.TrimRight(s, "/")
	}
	if s == "" || !doublestar.ValidatePattern(s) {
		return p, false
	}
	// A slash inside the pattern anchors it, as in gitignore.
	if strings.Contains(s, "/") && !strings.HasPrefix(s, "**/") {
		p.Rooted = true
	}
	p.Glob = s
	return p, true
}

// Matches reports whether the slash-separated relPath, or any of its parent
// directories, is matched by p. isDir describes relPath itself.
func (p IgnorePattern) Matches(relPath string, isDir bool) bool {
	relPath = strings.Trim(path.Clean(relPath), "/")
	if relPath == "" || relPath == "." {
		return false
	}
	for candidate, dir := relPath, isDir; candidate != "." && candidate != ""; candidate, dir = path.Dir(candidate), true {
		if p.DirOnly && !dir {
			continue
		}
		if p.matchOne(candidate) {
			return true
		}
	}
	return false
}

func (p IgnorePattern) matchOne(relPath string) bool {
	if ok, _ := doublestar.Match(p.Glob, relPath); ok {
		return true
	}
	if p.Rooted {
		return false
	}
	ok, _ := doublestar.Match(p.Glob, path.Base(relPath))
	return ok
}

// IgnoreList applies patterns in order; the last matching pattern wins.
type IgnoreList []IgnorePattern

// NewIgnoreList parses every raw pattern, dropping the unusable ones.
func NewIgnoreList(raw ...string) IgnoreList {
	var list IgnoreList
	for _, r := range raw {
		if p, ok := ParseIgnorePattern(r); ok {
			list = append(list, p)
		}
	}
	return list
}

// Match returns whether relPath is ignored and the pattern that decided it.
func (l IgnoreList) Match(relPath string, isDir bool) (bool, string) {
	ignored, by := false, ""
	for _, p := range l {
		if p.Matches(relPath, isDir) {
			ignored = !p.Negated
			by = p.Raw
		}
	}
	if !ignored {
		return false, ""
	}
	return true, by
}
