package codelens_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/codelens/internal/testutil"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/detail"
	"github.com/stackvity/codelens/pkg/codelens/encoding"
	"github.com/stackvity/codelens/pkg/codelens/language"
	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/codelens/structure"
)

const addPy = "def add(a, b):\n    return a + b\n"

func newAnalyzer(t *testing.T, opts codelens.AnalyzerOptions) *codelens.Analyzer {
	t.Helper()
	a, err := codelens.NewAnalyzer(opts)
	require.NoError(t, err)
	return a
}

func pythonClassifier() language.Classifier {
	return language.ClassifierFunc(func(context.Context, string, string) ([]language.Guess, error) {
		return []language.Guess{{Language: "Python", Confidence: 0.9}}, nil
	})
}

func TestNewAnalyzer_Validation(t *testing.T) {
	_, err := codelens.NewAnalyzer(codelens.AnalyzerOptions{MaxInputBytes: -1})
	assert.ErrorIs(t, err, codelens.ErrConfigValidation)

	_, err = codelens.NewAnalyzer(codelens.AnalyzerOptions{Classifier: "magic"})
	assert.ErrorIs(t, err, codelens.ErrConfigValidation)

	a, err := codelens.NewAnalyzer(codelens.AnalyzerOptions{})
	require.NoError(t, err)
	assert.Equal(t, codelens.DefaultMaxInputBytes, a.MaxInputBytes())
}

func TestAnalyzer_SettingsHash(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})
	b := newAnalyzer(t, codelens.AnalyzerOptions{})
	c := newAnalyzer(t, codelens.AnalyzerOptions{IncludeDetails: true})
	d := newAnalyzer(t, codelens.AnalyzerOptions{Classifier: codelens.ClassifierHeuristic})

	assert.Equal(t, a.SettingsHash(), b.SettingsHash())
	assert.NotEqual(t, a.SettingsHash(), c.SettingsHash())
	assert.NotEqual(t, a.SettingsHash(), d.SettingsHash())
}

func TestAnalyze_PythonFunction(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
	require.NoError(t, err)

	assert.Equal(t, "Python", res.Language)
	assert.Equal(t, structure.Summary{TotalLines: 2, FunctionDefinitions: 1}, res.Structure)
	assert.Equal(t, "# Adds data.\n"+addPy, res.DocumentedCode)
	assert.True(t, strings.HasPrefix(res.Explanation, "This is a Python file with 2 lines, 1 function, 0 classes and 0 imports."), res.Explanation)
	assert.True(t, res.Meta.Degraded, "no generator means a template-only explanation")
	assert.Equal(t, language.SourceExtension, res.Meta.LanguageSource)
	assert.Equal(t, "utf-8", res.Meta.Encoding)
	assert.Nil(t, res.Details)
}

func TestAnalyze_PythonFunctionWithoutFilename(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy})
	require.NoError(t, err)

	assert.Equal(t, "Python", res.Language)
	assert.Equal(t, language.SourceClassifier, res.Meta.LanguageSource)
	assert.Equal(t, structure.Summary{TotalLines: 2, FunctionDefinitions: 1}, res.Structure)
	assert.Equal(t, "# Adds data.\n"+addPy, res.DocumentedCode)
}

func TestAnalyze_ProseIsPlainText(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: "hello world this is prose"})
	require.NoError(t, err)
	assert.Equal(t, registry.PlainText, res.Language)
	assert.Equal(t, "hello world this is prose", res.DocumentedCode)
}

func TestAnalyze_ClassifierWithoutFilename(t *testing.T) {
	classifier := &testutil.MockClassifier{}
	classifier.On("Classify", mock.Anything, addPy, "").Return([]language.Guess{{Language: "Python", Confidence: 0.9}}, nil)

	a := newAnalyzer(t, codelens.AnalyzerOptions{LanguageClassifier: classifier})
	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy})
	require.NoError(t, err)
	assert.Equal(t, "Python", res.Language)
	assert.Equal(t, language.SourceClassifier, res.Meta.LanguageSource)
	assert.InDelta(t, 0.9, res.Meta.Confidence, 1e-9)
	classifier.AssertExpectations(t)
}

func TestAnalyze_ClassifierFailureFallsBack(t *testing.T) {
	classifier := &testutil.MockClassifier{}
	classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("model missing"))

	a := newAnalyzer(t, codelens.AnalyzerOptions{LanguageClassifier: classifier})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
	require.NoError(t, err)
	assert.Equal(t, "Python", res.Language)

	res, err = a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy})
	require.NoError(t, err)
	assert.Equal(t, registry.Unknown, res.Language)
	assert.Equal(t, language.SourceFallback, res.Meta.LanguageSource)
}

func TestAnalyze_InputErrors(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{MaxInputBytes: 64})

	testCases := []struct {
		name     string
		code     string
		expected error
	}{
		{name: "Empty", code: "", expected: codelens.ErrEmptyInput},
		{name: "Whitespace", code: " \n\t\n", expected: codelens.ErrEmptyInput},
		{name: "TooLarge", code: strings.Repeat("x = 1\n", 20), expected: codelens.ErrInputTooLarge},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: tc.code})
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestAnalyze_AtLimitIsAccepted(t *testing.T) {
	code := strings.Repeat("x = 1\n", 10)
	a := newAnalyzer(t, codelens.AnalyzerOptions{MaxInputBytes: len(code), LanguageClassifier: pythonClassifier()})
	_, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: code})
	assert.NoError(t, err)
}

func TestAnalyze_Binary(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})
	code := string([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: code, Filename: "logo.png"})
	require.NoError(t, err)
	assert.Equal(t, registry.Unknown, res.Language)
	assert.Equal(t, codelens.UnsupportedNotice, res.Explanation)
	assert.Equal(t, code, res.DocumentedCode)
	assert.True(t, res.Meta.Unsupported)
	assert.Equal(t, codelens.Unsupported(code).Structure, res.Structure)
}

func TestAnalyze_Generator(t *testing.T) {
	t.Run("Elaborates", func(t *testing.T) {
		gen := &testutil.MockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("It returns the sum of two values.", nil)

		a := newAnalyzer(t, codelens.AnalyzerOptions{Generator: gen})
		res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
		require.NoError(t, err)
		assert.False(t, res.Meta.Degraded)
		assert.True(t, strings.HasSuffix(res.Explanation, "\n\nIt returns the sum of two values."), res.Explanation)

		prompt, _ := gen.Calls[0].Arguments.Get(1).(string)
		excerpt, _ := gen.Calls[0].Arguments.Get(2).(string)
		assert.Contains(t, prompt, "Python")
		assert.Equal(t, addPy, excerpt)
	})

	t.Run("FailureDegrades", func(t *testing.T) {
		gen := &testutil.MockGenerator{}
		gen.On("Generate", mock.Anything, mock.Anything, mock.Anything).Return("", codelens.ErrGeneratorUnavailable)

		a := newAnalyzer(t, codelens.AnalyzerOptions{Generator: gen})
		res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
		require.NoError(t, err)
		assert.True(t, res.Meta.Degraded)
		assert.Equal(t, "# Adds data.\n"+addPy, res.DocumentedCode)
		assert.NotContains(t, res.Explanation, "\n\n")
	})
}

func TestAnalyze_Cancelled(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Analyze(ctx, codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
	assert.ErrorIs(t, err, context.Canceled)
}

type panickingExtractor struct{}

func (panickingExtractor) Extract(string, []structure.Line, registry.Profile) detail.Report {
	panic("extractor bug")
}

func TestAnalyze_PanicIsContained(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{DetailExtractor: panickingExtractor{}})

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: addPy, Filename: "add.py"})
	assert.ErrorIs(t, err, codelens.ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "extractor bug")
	assert.Empty(t, res.Language)
}

func TestAnalyze_PreservesBOM(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})
	code := encoding.UTF8BOM + addPy

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: code, Filename: "add.py"})
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8BOM+"# Adds data.\n"+addPy, res.DocumentedCode)
	assert.Equal(t, 2, res.Structure.TotalLines)
}

func TestAnalyze_Structure(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{})

	testCases := []struct {
		name     string
		filename string
		code     string
		check    func(t *testing.T, s structure.Summary)
	}{
		{
			name:     "KeywordInsideString",
			filename: "s.py",
			code:     "s = \"for x in y\"\n",
			check: func(t *testing.T, s structure.Summary) {
				assert.Equal(t, 0, s.Loops)
				assert.Equal(t, 1, s.VariableDeclarations)
			},
		},
		{
			name:     "BlockComment",
			filename: "main.c",
			code:     "/* header\n   more */\nint main(void) {\n  return 0;\n}\n",
			check: func(t *testing.T, s structure.Summary) {
				assert.Equal(t, 5, s.TotalLines)
				assert.Equal(t, 2, s.CommentLines)
				assert.Equal(t, 1, s.FunctionDefinitions)
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: tc.code, Filename: tc.filename})
			require.NoError(t, err)
			tc.check(t, res.Structure)
		})
	}
}

func TestAnalyze_IncludeDetails(t *testing.T) {
	a := newAnalyzer(t, codelens.AnalyzerOptions{IncludeDetails: true})
	code := "import os\n\nclass Loader:\n    pass\n\ndef load(path):\n    return os.path.exists(path)\n"

	res, err := a.Analyze(context.Background(), codelens.AnalysisRequest{Code: code, Filename: "loader.py"})
	require.NoError(t, err)
	require.NotNil(t, res.Details)
	assert.NotEmpty(t, res.Details.Functions)
	assert.NotEmpty(t, res.Details.Classes)
	assert.Contains(t, res.Explanation, "Main classes include: Loader")
}
