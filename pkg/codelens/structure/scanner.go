package structure

import (
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/registry"
)

// State is carried from one line to the next during a scan. The zero value is
// the state at the start of a file.
type State struct {
	InBlockComment    bool
	InMultilineString bool
	// closer is the delimiter that ends the active comment or string.
	closer string
}

// Clean reports whether no block comment or multi-line string is active.
func (s State) Clean() bool {
	return !s.InBlockComment && !s.InMultilineString
}

// Kind is the exclusive classification of a line.
type Kind int

const (
	KindBlank Kind = iota
	KindComment
	KindCode
	// KindString marks lines that start inside a multi-line string literal.
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBlank:
		return "blank"
	case KindComment:
		return "comment"
	case KindCode:
		return "code"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Line is the scan result for one physical line.
type Line struct {
	// Number is 1-based.
	Number int
	// Text is the raw line without its terminator. CR reports whether the
	// terminator was "\r\n".
	Text string
	CR   bool
	Kind Kind
	// Start is the scanner state before the line was read.
	Start State
	// Code is the code portion: comments removed and string literal
	// contents dropped, with columns before the first literal preserved.
	Code string

	Import      bool
	Function    bool
	Class       bool
	Variable    bool
	Loop        bool
	Conditional bool

	// Name is the identifier declared by a function or class line and
	// DeclKind the class keyword (class, struct, ...) when the pattern
	// captures one.
	Name     string
	DeclKind string
}

// Declaration reports whether the line declares a function or class.
func (l Line) Declaration() bool {
	return l.Function || l.Class
}

// Indent returns the leading whitespace of the line.
func (l Line) Indent() string {
	return l.Text[:len(l.Text)-len(strings.TrimLeft(l.Text, " \t"))]
}

// SplitLines splits text into physical lines. A terminator at the very end of
// the text does not start another line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Scan classifies every line of text with the rules of p in a single forward
// pass. It does not retain text or mutate p.
func Scan(text string, p registry.Profile) []Line {
	raw := SplitLines(text)
	out := make([]Line, 0, len(raw))
	m := newMatcher(p)

	var st State
	for i, r := range raw {
		l := Line{Number: i + 1, Text: r, Start: st}
		if strings.HasSuffix(r, "\r") {
			l.Text = r[:len(r)-1]
			l.CR = true
		}
		st = m.classify(&l, st)
		out = append(out, l)
	}
	return out
}

func (m *matcher) classify(l *Line, st State) State {
	trimmed := strings.TrimSpace(l.Text)
	switch {
	case trimmed == "":
		l.Kind = KindBlank
		return st
	case st.InBlockComment:
		l.Kind = KindComment
		_, st = m.lex(l.Text, st)
		return st
	case st.InMultilineString:
		l.Kind = KindString
		_, st = m.lex(l.Text, st)
		return st
	case m.opensBlock(trimmed):
		l.Kind = KindComment
		_, st = m.lex(l.Text, st)
		return st
	case m.startsLineComment(trimmed):
		l.Kind = KindComment
		return st
	}

	l.Kind = KindCode
	l.Code, st = m.lex(l.Text, st)
	m.constructs(l)
	return st
}

func (m *matcher) opensBlock(trimmed string) bool {
	for _, b := range m.profile.BlockComments {
		if strings.HasPrefix(trimmed, b.Open) {
			return true
		}
	}
	return false
}

func (m *matcher) startsLineComment(trimmed string) bool {
	for _, c := range m.profile.LineComments {
		if strings.HasPrefix(trimmed, c) {
			return true
		}
	}
	return false
}

// lex walks one line from state st and returns its code portion together with
// the state at the end of the line.
func (m *matcher) lex(line string, st State) (string, State) {
	var b strings.Builder
	i := 0
	for i < len(line) {
		if st.InBlockComment {
			j := strings.Index(line[i:], st.closer)
			if j < 0 {
				return b.String(), st
			}
			i += j + len(st.closer)
			st = State{}
			b.WriteByte(' ')
			continue
		}
		if st.InMultilineString {
			j := strings.Index(line[i:], st.closer)
			if j < 0 {
				return b.String(), st
			}
			i += j + len(st.closer)
			b.WriteString(st.closer)
			st = State{}
			continue
		}

		if closer, n := m.blockOpenAt(line, i); n > 0 {
			st = State{InBlockComment: true, closer: closer}
			i += n
			continue
		}
		if closer, n := m.fenceAt(line, i); n > 0 {
			b.WriteString(line[i : i+n])
			st = State{InMultilineString: true, closer: closer}
			i += n
			continue
		}
		if m.lineCommentAt(line, i) {
			return b.String(), st
		}

		c := line[i]
		if strings.IndexByte(m.profile.Quotes, c) >= 0 {
			b.WriteByte(c)
			b.WriteByte(c)
			j := closingQuote(line, i+1, c)
			if j < 0 {
				return b.String(), st
			}
			i = j + 1
			continue
		}
		b.WriteByte(c)
		i++
	}
	return b.String(), st
}

func (m *matcher) blockOpenAt(line string, i int) (string, int) {
	for _, bc := range m.profile.BlockComments {
		if strings.HasPrefix(line[i:], bc.Open) {
			return bc.Close, len(bc.Open)
		}
	}
	return "", 0
}

func (m *matcher) fenceAt(line string, i int) (string, int) {
	for _, f := range m.profile.StringFences {
		if strings.HasPrefix(line[i:], f) {
			return fenceCloser(f), len(f)
		}
	}
	return "", 0
}

func (m *matcher) lineCommentAt(line string, i int) bool {
	for _, c := range m.profile.LineComments {
		if !strings.HasPrefix(line[i:], c) {
			continue
		}
		// "#" glued to a word, "$" or "{" is shell parameter syntax.
		if c[0] == '#' && i > 0 && glued(line[i-1]) {
			continue
		}
		return true
	}
	return false
}

func glued(c byte) bool {
	return c == '$' || c == '{' || isWord(c)
}

func fenceCloser(open string) string {
	if open == "[[" {
		return "]]"
	}
	return open
}

// closingQuote returns the index of the quote byte q closing a literal whose
// body starts at from, or -1 when the literal runs to the end of the line.
func closingQuote(line string, from int, q byte) int {
	for j := from; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}
