package structure

import (
	"regexp"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/registry"
)

// reservedNames are keywords that loose declaration patterns capture as a
// name, e.g. "if" in `else if (x) {`.
var reservedNames = toSet(
	"if", "else", "elif", "elseif", "for", "foreach", "while", "do", "switch",
	"case", "when", "match", "catch", "try", "with", "return", "sizeof",
	"typeof", "new", "delete", "until", "unless", "func", "var", "let",
	"await", "throw", "using", "lock", "fixed", "synchronized",
)

// reservedLeading are statement keywords that make a line a statement rather
// than a declaration when they come first.
var reservedLeading = toSet(
	"return", "throw", "yield", "goto", "case", "delete", "echo", "print",
	"puts", "await", "raise", "assert", "del", "else", "new", "not",
)

type matcher struct {
	profile      registry.Profile
	loops        map[string]struct{}
	conditionals map[string]struct{}
	hasRules     bool
}

func newMatcher(p registry.Profile) *matcher {
	m := &matcher{
		profile:      p,
		loops:        make(map[string]struct{}, len(p.Loops)),
		conditionals: make(map[string]struct{}, len(p.Conditionals)),
		hasRules:     p.HasConstructs(),
	}
	for _, k := range p.Loops {
		m.loops[m.fold(k)] = struct{}{}
	}
	for _, k := range p.Conditionals {
		m.conditionals[m.fold(k)] = struct{}{}
	}
	return m
}

func (m *matcher) fold(s string) string {
	if m.profile.CaseInsensitive {
		return strings.ToLower(s)
	}
	return s
}

// constructs fills the construct flags of a code line. Each category is
// decided independently and counts at most once per line.
func (m *matcher) constructs(l *Line) {
	if !m.hasRules {
		return
	}
	code := l.Code
	if strings.TrimSpace(code) == "" {
		return
	}
	lead := m.fold(leadingWord(code))
	_, statement := reservedLeading[lead]

	l.Import = anyMatch(m.profile.Imports, code)
	if !statement {
		l.Name, _, l.Function = declaration(m.profile.Functions, code)
		if !l.Function {
			l.Name, l.DeclKind, l.Class = declaration(m.profile.Classes, code)
		} else if _, kind, ok := declaration(m.profile.Classes, code); ok {
			l.Class, l.DeclKind = true, kind
		}
		l.Variable = anyMatch(m.profile.Variables, code)
	}

	for _, tok := range tokenPattern.FindAllString(code, -1) {
		tok = m.fold(tok)
		if _, ok := m.loops[tok]; ok {
			l.Loop = true
		}
		if _, ok := m.conditionals[tok]; ok {
			l.Conditional = true
		}
	}
}

var tokenPattern = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

func anyMatch(patterns []*regexp.Regexp, code string) bool {
	for _, re := range patterns {
		if re.MatchString(code) {
			return true
		}
	}
	return false
}

// declaration returns the name and kind captured by the first pattern whose
// name is not a reserved word.
func declaration(patterns []*regexp.Regexp, code string) (name, kind string, ok bool) {
	for _, re := range patterns {
		sub := re.FindStringSubmatch(code)
		if sub == nil {
			continue
		}
		name, kind = "", ""
		for i, group := range re.SubexpNames() {
			switch group {
			case "name":
				name = sub[i]
			case "kind":
				kind = sub[i]
			}
		}
		if _, reserved := reservedNames[strings.ToLower(name)]; reserved {
			continue
		}
		return name, kind, true
	}
	return "", "", false
}

func leadingWord(code string) string {
	code = strings.TrimLeft(code, " \t")
	end := 0
	for end < len(code) && isWord(code[end]) {
		end++
	}
	return code[:end]
}

func isWord(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
