// Package detail builds an inventory of what a source text declares: named
// functions and classes with their line numbers, import lines, a short
// documentation summary and signs of machine-learning usage. The inventory
// feeds the explanation; it never changes structural counts.
package detail

import (
	"go/ast"
	"go/parser"
	"go/token"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/codelens/structure"
)

// Declaration is one named function or class.
type Declaration struct {
	Name string `json:"name" yaml:"name"`
	Kind string `json:"kind" yaml:"kind"`
	Line int    `json:"line" yaml:"line"`
}

// Report is the declaration inventory of one text.
type Report struct {
	Functions []Declaration `json:"functions,omitempty" yaml:"functions,omitempty"`
	Classes   []Declaration `json:"classes,omitempty" yaml:"classes,omitempty"`
	Imports   []string      `json:"imports,omitempty" yaml:"imports,omitempty"`
	// DocSummary is the first sentence of the file-level documentation.
	DocSummary string   `json:"doc_summary,omitempty" yaml:"doc_summary,omitempty"`
	ML         *MLUsage `json:"machine_learning,omitempty" yaml:"machine_learning,omitempty"`
}

// FunctionNames returns the function names in declaration order.
func (r Report) FunctionNames() []string { return names(r.Functions) }

// ClassNames returns the class names in declaration order.
func (r Report) ClassNames() []string { return names(r.Classes) }

func names(decls []Declaration) []string {
	out := make([]string, 0, len(decls))
	for _, d := range decls {
		if d.Name != "" {
			out = append(out, d.Name)
		}
	}
	return out
}

// Extractor builds a Report from a text and its scanned lines.
type Extractor interface {
	Extract(text string, lines []structure.Line, p registry.Profile) Report
}

// DefaultExtractor uses the line scan for every language and refines Go
// sources with the standard library parser.
type DefaultExtractor struct {
	logger *slog.Logger
}

// NewDefaultExtractor creates a DefaultExtractor logging through handler.
func NewDefaultExtractor(handler slog.Handler) *DefaultExtractor {
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &DefaultExtractor{logger: slog.New(handler).With(slog.String("component", "detailExtractor"))}
}

// Extract implements Extractor.
func (e *DefaultExtractor) Extract(text string, lines []structure.Line, p registry.Profile) Report {
	if !p.HasConstructs() {
		return Report{}
	}

	var r Report
	if p.ID == "Go" {
		if goReport, ok := e.fromGoAST(text); ok {
			r = goReport
		}
	}
	if r.Functions == nil && r.Classes == nil {
		r.Functions, r.Classes = fromScan(lines)
	}
	if r.Imports == nil {
		for _, l := range lines {
			if l.Import {
				r.Imports = append(r.Imports, strings.TrimSpace(l.Text))
			}
		}
	}
	if r.DocSummary == "" && p.ID == "Python" {
		r.DocSummary = pythonModuleDoc(text)
	}
	r.ML = DetectML(text)
	return r
}

func fromScan(lines []structure.Line) (functions, classes []Declaration) {
	for _, l := range structure.Declarations(lines) {
		if l.Function {
			functions = append(functions, Declaration{Name: l.Name, Kind: "function", Line: l.Number})
		}
		if l.Class {
			kind := l.DeclKind
			if kind == "" {
				kind = "class"
			}
			classes = append(classes, Declaration{Name: l.Name, Kind: kind, Line: l.Number})
		}
	}
	return functions, classes
}

// fromGoAST reports top-level Go declarations. ok is false when the source
// does not parse, in which case the line scan is used instead.
func (e *DefaultExtractor) fromGoAST(text string) (Report, bool) {
	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "", text, parser.ParseComments|parser.SkipObjectResolution)
	if err != nil {
		e.logger.Debug("Go source did not parse, using line scan", slog.String("error", err.Error()))
		return Report{}, false
	}

	r := Report{Functions: []Declaration{}, Classes: []Declaration{}}
	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			kind := "function"
			if d.Recv != nil {
				kind = "method"
			}
			r.Functions = append(r.Functions, Declaration{
				Name: d.Name.Name,
				Kind: kind,
				Line: fset.Position(d.Pos()).Line,
			})
		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				kind := "type"
				switch ts.Type.(type) {
				case *ast.StructType:
					kind = "struct"
				case *ast.InterfaceType:
					kind = "interface"
				}
				r.Classes = append(r.Classes, Declaration{
					Name: ts.Name.Name,
					Kind: kind,
					Line: fset.Position(ts.Name.Pos()).Line,
				})
			}
		}
	}
	for _, imp := range f.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			path = imp.Path.Value
		}
		r.Imports = append(r.Imports, path)
	}
	if f.Doc != nil {
		r.DocSummary = firstSentence(f.Doc.Text())
	}
	return r, true
}

var moduleDocstring = regexp.MustCompile(`(?s)^\s*(?:"""|''')(.*?)(?:"""|''')`)

func pythonModuleDoc(text string) string {
	m := moduleDocstring.FindStringSubmatch(text)
	if len(m) < 2 {
		return ""
	}
	return firstSentence(m[1])
}

// firstSentence returns the text up to the first sentence end, flattened to a
// single line.
func firstSentence(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if i := strings.Index(s, ". "); i >= 0 {
		return s[:i+1]
	}
	return s
}
