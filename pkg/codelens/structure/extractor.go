// Package structure computes line-oriented structural statistics for source
// text without parsing it. Every line gets exactly one kind (blank, comment,
// code, string) and code lines are matched against the construct rules of a
// registry profile.
package structure

import "github.com/stackvity/codelens/pkg/codelens/registry"

// Summary is the per-text structural breakdown. For every summary,
// CommentLines+EmptyLines <= TotalLines and each count is <= TotalLines.
type Summary struct {
	TotalLines           int `json:"total_lines" yaml:"total_lines"`
	EmptyLines           int `json:"empty_lines" yaml:"empty_lines"`
	CommentLines         int `json:"comment_lines" yaml:"comment_lines"`
	ImportStatements     int `json:"import_statements" yaml:"import_statements"`
	FunctionDefinitions  int `json:"function_definitions" yaml:"function_definitions"`
	ClassDefinitions     int `json:"class_definitions" yaml:"class_definitions"`
	VariableDeclarations int `json:"variable_declarations" yaml:"variable_declarations"`
	Loops                int `json:"loops" yaml:"loops"`
	Conditionals         int `json:"conditionals" yaml:"conditionals"`
}

// Extract scans text with p and folds the lines into a Summary.
func Extract(text string, p registry.Profile) Summary {
	return Summarize(Scan(text, p))
}

// Summarize folds already scanned lines into a Summary.
func Summarize(lines []Line) Summary {
	s := Summary{TotalLines: len(lines)}
	for _, l := range lines {
		switch l.Kind {
		case KindBlank:
			s.EmptyLines++
		case KindComment:
			s.CommentLines++
		}
		s.ImportStatements += b2i(l.Import)
		s.FunctionDefinitions += b2i(l.Function)
		s.ClassDefinitions += b2i(l.Class)
		s.VariableDeclarations += b2i(l.Variable)
		s.Loops += b2i(l.Loop)
		s.Conditionals += b2i(l.Conditional)
	}
	return s
}

// Declarations returns the function and class lines that start outside any
// block comment or multi-line string.
func Declarations(lines []Line) []Line {
	var out []Line
	for _, l := range lines {
		if l.Declaration() && l.Start.Clean() {
			out = append(out, l)
		}
	}
	return out
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
