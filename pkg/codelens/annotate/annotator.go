// Package annotate inserts one-line documentation comments above function
// and class declarations. Existing lines are never modified: the output is
// the input with whole lines added.
package annotate

import (
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/codelens/structure"
)

// maxBodyLines bounds how much of a body is read to phrase a purpose.
const maxBodyLines = 50

// Annotate scans text with p and returns the annotated copy.
func Annotate(text string, p registry.Profile) string {
	if !p.HasConstructs() {
		return text
	}
	return AnnotateScanned(text, structure.Scan(text, p), p)
}

// AnnotateScanned annotates text using lines already produced by
// structure.Scan for the same text and profile.
//
// A declaration is skipped when the line right above it is a comment, which
// makes annotation idempotent. Comments use the profile's single-line marker,
// or its first block pair when it has none.
func AnnotateScanned(text string, lines []structure.Line, p registry.Profile) string {
	open, end, ok := p.CommentMarker()
	if !ok || !p.HasConstructs() {
		return text
	}

	targets := make(map[int]string)
	for i, l := range lines {
		if !l.Declaration() || !l.Start.Clean() {
			continue
		}
		if i > 0 && lines[i-1].Kind == structure.KindComment {
			continue
		}
		targets[i] = describe(lines, i, p)
	}
	if len(targets) == 0 {
		return text
	}

	raw := strings.SplitAfter(text, "\n")
	var b strings.Builder
	b.Grow(len(text) + len(targets)*48)
	for i, r := range raw {
		if purpose, ok := targets[i]; ok {
			l := lines[i]
			b.WriteString(l.Indent())
			b.WriteString(open)
			b.WriteByte(' ')
			b.WriteString(purpose)
			if end != "" {
				b.WriteByte(' ')
				b.WriteString(end)
			}
			if l.CR {
				b.WriteString("\r\n")
			} else {
				b.WriteString("\n")
			}
		}
		b.WriteString(r)
	}
	return b.String()
}

func describe(lines []structure.Line, i int, p registry.Profile) string {
	l := lines[i]
	if !l.Function {
		return ClassPurpose(l.Name, l.DeclKind)
	}
	return Purpose(l.Name, body(lines, i, p))
}

// body returns the code of the declaration line and the lines belonging to
// its body, found by brace depth or, without braces, by indentation.
func body(lines []structure.Line, i int, p registry.Profile) []string {
	decl := lines[i]
	out := []string{decl.Code}
	limit := min(len(lines), i+maxBodyLines)

	braces := !p.IndentBlocks && strings.Contains(decl.Code, "{")
	if !p.IndentBlocks && !braces && i+1 < len(lines) {
		braces = strings.HasPrefix(strings.TrimSpace(lines[i+1].Code), "{")
	}

	if braces {
		depth := strings.Count(decl.Code, "{") - strings.Count(decl.Code, "}")
		opened := depth > 0
		for j := i + 1; j < limit; j++ {
			if opened && depth <= 0 {
				break
			}
			code := lines[j].Code
			out = append(out, code)
			depth += strings.Count(code, "{") - strings.Count(code, "}")
			if depth > 0 {
				opened = true
			}
		}
		return out
	}

	indent := len(decl.Indent())
	for j := i + 1; j < limit; j++ {
		l := lines[j]
		if l.Kind != structure.KindBlank && l.Kind != structure.KindString && len(l.Indent()) <= indent {
			break
		}
		out = append(out, l.Code)
	}
	return out
}
