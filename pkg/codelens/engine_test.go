package codelens_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/codelens/internal/testutil"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/cache"
)

const goSrc = "package b\n\nfunc B() {}\n"

var pngBytes = string([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'})

// scanFixture creates an input tree and returns options scanning it into a
// fresh output directory.
func scanFixture(t *testing.T, files map[string]string) codelens.ScanOptions {
	t.Helper()
	in := t.TempDir()
	testutil.CreateTree(t, in, files)
	return codelens.ScanOptions{
		InputPath:    in,
		OutputPath:   filepath.Join(t.TempDir(), "out"),
		Concurrency:  2,
		CacheEnabled: true,
		AppVersion:   "test",
	}
}

func runScan(t *testing.T, opts codelens.ScanOptions) (codelens.Report, error) {
	t.Helper()
	engine, err := codelens.NewEngine(context.Background(), opts)
	require.NoError(t, err)
	return engine.Run()
}

func skippedReasons(r codelens.Report) map[string]string {
	out := make(map[string]string, len(r.SkippedFiles))
	for _, s := range r.SkippedFiles {
		out[s.Path] = s.Reason
	}
	return out
}

func readOutput(t *testing.T, path string, format codelens.OutputFormat) codelens.FileOutput {
	t.Helper()
	var out codelens.FileOutput
	require.NoError(t, codelens.Decode([]byte(testutil.ReadFile(t, path)), format, &out))
	return out
}

func TestEngine_Run(t *testing.T) {
	opts := scanFixture(t, map[string]string{
		"a.py":      addPy,
		"src/b.go":  goSrc,
		"notes.xyz": "not source",
		"empty.py":  "\n\n",
	})

	report, err := runScan(t, opts)
	require.NoError(t, err)

	s := report.Summary
	assert.Equal(t, 2, s.ProcessedCount)
	assert.Equal(t, 1, s.SkippedCount)
	assert.Equal(t, 0, s.ErrorCount)
	assert.Equal(t, 3, s.TotalFilesScanned)
	assert.Equal(t, map[string]int{"Python": 1, "Go": 1}, s.Languages)
	assert.Equal(t, 2, s.DegradedCount)
	assert.Equal(t, codelens.ReportSchemaVersion, s.SchemaVersion)
	assert.False(t, s.FatalErrorOccurred)
	assert.Equal(t, map[string]string{"empty.py": codelens.SkipReasonEmpty}, skippedReasons(report))

	require.Len(t, report.ProcessedFiles, 2)
	assert.Equal(t, "a.py", report.ProcessedFiles[0].Path)
	assert.Equal(t, "a.py.json", report.ProcessedFiles[0].OutputPath)
	assert.Equal(t, codelens.CacheStatusMiss, report.ProcessedFiles[0].CacheStatus)
	assert.Equal(t, "src/b.go", report.ProcessedFiles[1].Path)

	out := readOutput(t, filepath.Join(opts.OutputPath, "a.py.json"), codelens.OutputFormatJSON)
	assert.Equal(t, "a.py", out.Path)
	assert.Equal(t, "Python", out.Language)
	assert.Equal(t, 1, out.Structure.FunctionDefinitions)
	assert.Equal(t, "# Adds data.\n"+addPy, out.DocumentedCode)
	assert.Nil(t, out.Git)

	_, err = os.Stat(filepath.Join(opts.OutputPath, "a.py"))
	assert.ErrorIs(t, err, os.ErrNotExist, "documented copies are opt-in")
	assert.FileExists(t, filepath.Join(opts.OutputPath, "src", "b.go.json"))
	assert.FileExists(t, filepath.Join(opts.OutputPath, cache.FileName))
}

func TestEngine_CacheReuse(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy, "b.go": goSrc})

	first, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, first.Summary.CachedCount)

	second, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, second.Summary.CachedCount)
	assert.Equal(t, 2, second.Summary.ProcessedCount)
	assert.Equal(t, "Python", second.ProcessedFiles[0].Language)

	path := filepath.Join(opts.InputPath, "a.py")
	require.NoError(t, os.WriteFile(path, []byte(addPy+"\nprint(add(1, 2))\n"), 0o644))
	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))

	third, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, third.Summary.CachedCount)

	t.Run("MissingOutputIsRegenerated", func(t *testing.T) {
		require.NoError(t, os.Remove(filepath.Join(opts.OutputPath, "b.go.json")))
		report, err := runScan(t, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Summary.CachedCount)
		assert.FileExists(t, filepath.Join(opts.OutputPath, "b.go.json"))
	})

	t.Run("IgnoreCacheRead", func(t *testing.T) {
		o := opts
		o.IgnoreCacheRead = true
		report, err := runScan(t, o)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Summary.CachedCount)
	})

	t.Run("Disabled", func(t *testing.T) {
		o := opts
		o.CacheEnabled = false
		report, err := runScan(t, o)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Summary.CachedCount)
		assert.Equal(t, codelens.CacheStatusDisabled, report.ProcessedFiles[0].CacheStatus)
	})
}

func TestEngine_InjectedCacheManager(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	mgr := &testutil.MockCacheManager{}
	mgr.On("Check", "a.py", mock.Anything, mock.Anything, mock.Anything).Return(false, "")
	mgr.On("Update", "a.py", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	mgr.On("Persist", mock.Anything).Return(nil)
	opts.CacheManager = mgr

	report, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)
	mgr.AssertExpectations(t)
	mgr.AssertNotCalled(t, "Load", mock.Anything)
}

func TestEngine_Ignore(t *testing.T) {
	opts := scanFixture(t, map[string]string{
		codelens.IgnoreFileName: "# generated\nbuild/\n*.rb\n!keep.rb\n",
		"a.py":                  addPy,
		"build/gen.py":          addPy,
		"tool.rb":               "puts 1\n",
		"keep.rb":               "puts 2\n",
		"scripts/run.sh":        "echo hi\n",
	})
	opts.IgnorePatterns = []string{"scripts/"}

	report, err := runScan(t, opts)
	require.NoError(t, err)

	processed := make([]string, 0, len(report.ProcessedFiles))
	for _, f := range report.ProcessedFiles {
		processed = append(processed, f.Path)
	}
	assert.Equal(t, []string{"a.py", "keep.rb"}, processed)
	assert.Equal(t, map[string]string{"tool.rb": codelens.SkipReasonIgnored}, skippedReasons(report))
}

func TestEngine_Vendored(t *testing.T) {
	files := map[string]string{"a.py": addPy, "vendor/lib.go": goSrc, "node_modules/x/index.js": "const x = 1;\n"}

	opts := scanFixture(t, files)
	report, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)

	opts = scanFixture(t, files)
	opts.IncludeVendored = true
	report, err = runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Summary.ProcessedCount)
}

func TestEngine_OutputInsideInput(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	opts.OutputPath = filepath.Join(opts.InputPath, "docs")

	for range 2 {
		report, err := runScan(t, opts)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Summary.ProcessedCount)
		assert.Equal(t, 1, report.Summary.TotalFilesScanned)
	}
}

func TestEngine_BinaryModes(t *testing.T) {
	files := map[string]string{"a.py": addPy, "blob.c": pngBytes}

	t.Run("Skip", func(t *testing.T) {
		report, err := runScan(t, scanFixture(t, files))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"blob.c": codelens.SkipReasonBinary}, skippedReasons(report))
	})

	t.Run("Notice", func(t *testing.T) {
		opts := scanFixture(t, files)
		opts.BinaryMode = codelens.BinaryNotice
		report, err := runScan(t, opts)
		require.NoError(t, err)
		assert.Equal(t, 2, report.Summary.ProcessedCount)

		out := readOutput(t, filepath.Join(opts.OutputPath, "blob.c.json"), codelens.OutputFormatJSON)
		assert.Equal(t, "Unknown", out.Language)
		assert.Equal(t, codelens.UnsupportedNotice, out.Explanation)
	})

	t.Run("Error", func(t *testing.T) {
		opts := scanFixture(t, files)
		opts.BinaryMode = codelens.BinaryError
		report, err := runScan(t, opts)
		require.NoError(t, err)
		require.Len(t, report.Errors, 1)
		assert.Equal(t, "blob.c", report.Errors[0].Path)
		assert.False(t, report.Errors[0].IsFatal)
		assert.Equal(t, 1, report.Summary.ProcessedCount)
	})

	t.Run("ErrorStops", func(t *testing.T) {
		opts := scanFixture(t, files)
		opts.BinaryMode = codelens.BinaryError
		opts.OnErrorMode = codelens.OnErrorStop
		opts.Concurrency = 1
		report, err := runScan(t, opts)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "blob.c")
		assert.True(t, report.Summary.FatalErrorOccurred)
		require.NotEmpty(t, report.Errors)
		assert.True(t, report.Errors[0].IsFatal)
	})
}

func TestEngine_LargeFile(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy, "big.py": addPy + addPy + addPy})
	opts.Analyzer.MaxInputBytes = len(addPy) + 1

	report, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"big.py": codelens.SkipReasonLarge}, skippedReasons(report))
}

func TestEngine_GitDiffFilter(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy, "src/b.go": goSrc})
	client := &testutil.MockGitClient{}
	client.On("ChangedFiles", mock.Anything, mock.Anything, string(codelens.GitDiffModeSince), "main").Return([]string{"a.py"}, nil)
	client.On("FileMetadata", mock.Anything, mock.Anything, mock.Anything).Return(map[string]string{"author": "Ada"}, nil)
	opts.GitClient = client
	opts.GitDiffMode = codelens.GitDiffModeSince
	opts.GitSinceRef = "main"
	opts.GitMetadataEnabled = true

	report, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)
	assert.Equal(t, map[string]string{"src/b.go": codelens.SkipReasonGitExclude}, skippedReasons(report))

	out := readOutput(t, filepath.Join(opts.OutputPath, "a.py.json"), codelens.OutputFormatJSON)
	assert.Equal(t, map[string]string{"author": "Ada"}, out.Git)
	client.AssertExpectations(t)
}

func TestEngine_GitErrors(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	opts.GitDiffMode = codelens.GitDiffModeDiffOnly
	_, err := codelens.NewEngine(context.Background(), opts)
	assert.ErrorIs(t, err, codelens.ErrConfigValidation, "diff mode needs a client")

	client := &testutil.MockGitClient{}
	client.On("ChangedFiles", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, codelens.ErrGitOperation)
	opts.GitClient = client
	_, err = codelens.NewEngine(context.Background(), opts)
	assert.ErrorIs(t, err, codelens.ErrGitOperation)
}

func TestEngine_WriteDocumentedYAML(t *testing.T) {
	opts := scanFixture(t, map[string]string{"pkg/a.py": addPy})
	opts.WriteDocumented = true
	opts.OutputFormat = codelens.OutputFormatYAML

	report, err := runScan(t, opts)
	require.NoError(t, err)
	require.Len(t, report.ProcessedFiles, 1)
	assert.Equal(t, "pkg/a.py", report.ProcessedFiles[0].DocumentedPath)
	assert.Equal(t, "pkg/a.py.yaml", report.ProcessedFiles[0].OutputPath)

	assert.Equal(t, "# Adds data.\n"+addPy, testutil.ReadFile(t, filepath.Join(opts.OutputPath, "pkg", "a.py")))
	out := readOutput(t, filepath.Join(opts.OutputPath, "pkg", "a.py.yaml"), codelens.OutputFormatYAML)
	assert.Equal(t, "Python", out.Language)
	assert.Equal(t, 2, out.Structure.TotalLines)

	again, err := runScan(t, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Summary.CachedCount)
}

func TestEngine_Hooks(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy, "empty.py": ""})
	hooks := &testutil.MockHooks{}
	hooks.On("OnFileDiscovered", mock.Anything).Return(nil)
	hooks.On("OnFileStatusUpdate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	hooks.On("OnRunComplete", mock.Anything).Return(nil).Once()
	opts.EventHooks = hooks

	_, err := runScan(t, opts)
	require.NoError(t, err)

	hooks.AssertCalled(t, "OnFileDiscovered", "a.py")
	hooks.AssertCalled(t, "OnFileStatusUpdate", "a.py", codelens.StatusProcessing, "", time.Duration(0))
	hooks.AssertCalled(t, "OnFileStatusUpdate", "a.py", codelens.StatusSuccess, "", mock.Anything)
	hooks.AssertCalled(t, "OnFileStatusUpdate", "empty.py", codelens.StatusSkipped, mock.Anything, mock.Anything)
	hooks.AssertExpectations(t)
}

func TestEngine_Cancelled(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	ctx, cancel := context.WithCancel(context.Background())
	engine, err := codelens.NewEngine(ctx, opts)
	require.NoError(t, err)
	cancel()

	report, err := engine.Run()
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Summary.ProcessedCount)
}

func TestNewEngine_Validation(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file.py")
	testutil.CreateDummyFile(t, file, addPy)
	out := filepath.Join(t.TempDir(), "out")

	testCases := []struct {
		name string
		opts codelens.ScanOptions
	}{
		{name: "NoInput", opts: codelens.ScanOptions{OutputPath: out}},
		{name: "NoOutput", opts: codelens.ScanOptions{InputPath: dir}},
		{name: "MissingInput", opts: codelens.ScanOptions{InputPath: filepath.Join(dir, "nope"), OutputPath: out}},
		{name: "InputIsFile", opts: codelens.ScanOptions{InputPath: file, OutputPath: out}},
		{name: "NegativeConcurrency", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, Concurrency: -1}},
		{name: "OnErrorMode", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, OnErrorMode: "panic"}},
		{name: "BinaryMode", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, BinaryMode: "convert"}},
		{name: "OutputFormat", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, OutputFormat: "xml"}},
		{name: "SinceWithoutRef", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, GitDiffMode: codelens.GitDiffModeSince}},
		{name: "Analyzer", opts: codelens.ScanOptions{InputPath: dir, OutputPath: out, Analyzer: codelens.AnalyzerOptions{Classifier: "magic"}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codelens.NewEngine(context.Background(), tc.opts)
			assert.ErrorIs(t, err, codelens.ErrConfigValidation)
		})
	}
}
