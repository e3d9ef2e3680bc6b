package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/codelens/internal/cli/config"
	"github.com/stackvity/codelens/internal/testutil"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/generator"
)

// newFlags returns a FlagSet carrying every flag a command can define.
func newFlags(t *testing.T) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	config.AddGlobalFlags(fs)
	config.AddAnalyzerFlags(fs)
	config.AddScanFlags(fs)
	config.AddServerFlags(fs)
	// Keep a stray .env in the working directory out of the results.
	require.NoError(t, fs.Set(config.FlagEnvFile, ""))
	return fs
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "codelens.yaml")
	testutil.CreateDummyFile(t, path, content)
	return path
}

func load(t *testing.T, cfgFile, profile string, fs *pflag.FlagSet) (config.Config, error) {
	t.Helper()
	cfg, _, err := config.Load(cfgFile, profile, "test", fs, &bytes.Buffer{})
	return cfg, err
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "", "", newFlags(t))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.AppVersion)
	assert.Equal(t, codelens.DefaultOnErrorMode, cfg.OnErrorMode)
	assert.Equal(t, codelens.DefaultBinaryMode, cfg.BinaryMode)
	assert.Equal(t, codelens.DefaultOutputFormat, cfg.OutputFormat)
	assert.Equal(t, codelens.DefaultWatchDebounce, cfg.WatchDebounce)
	assert.True(t, cfg.CacheEnabled)
	assert.True(t, cfg.TuiEnabled)
	assert.Equal(t, codelens.DefaultClassifier, cfg.Analyzer.Classifier)
	assert.Equal(t, codelens.DefaultMaxInputBytes, cfg.Analyzer.MaxInputBytes)
	assert.Equal(t, 15*time.Second, cfg.Analyzer.Explain.Timeout)
	assert.Equal(t, generator.ProviderNone, cfg.Generator.Provider)
	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, 1_000_000, cfg.Server.MaxCodeChars)
	assert.Equal(t, 10*time.Minute, cfg.Server.CacheTTL)
	assert.Equal(t, config.LogFormatText, cfg.LogFormat)
	assert.NotNil(t, cfg.Logger)
	assert.Equal(t, cfg.Logger, cfg.Analyzer.Logger)
}

func TestLoad_FileAndProfile(t *testing.T) {
	path := writeConfig(t, `
concurrency: 4
binaryMode: notice
watchDebounce: 1s
ignore:
  - "build/**"
analyzer:
  includeDetails: true
server:
  addr: ":9000"
profiles:
  ci:
    concurrency: 1
    onError: stop
    generator:
      provider: openai
      model: gpt-test
`)

	cfg, err := load(t, path, "", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, path, cfg.ConfigFilePath)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, codelens.BinaryNotice, cfg.BinaryMode)
	assert.Equal(t, time.Second, cfg.WatchDebounce)
	assert.Equal(t, []string{"build/**"}, cfg.IgnorePatterns)
	assert.True(t, cfg.Analyzer.IncludeDetails)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, codelens.OnErrorContinue, cfg.OnErrorMode)

	cfg, err = load(t, path, "ci", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "ci", cfg.ProfileName)
	assert.Equal(t, 1, cfg.Concurrency)
	assert.Equal(t, codelens.OnErrorStop, cfg.OnErrorMode)
	assert.Equal(t, generator.ProviderOpenAI, cfg.Generator.Provider)
	assert.Equal(t, "gpt-test", cfg.Generator.Model)
	assert.Equal(t, codelens.BinaryNotice, cfg.BinaryMode, "keys absent from the profile keep the file value")
}

func TestLoad_FileErrors(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "missing.yaml"), "", newFlags(t))
	assert.Error(t, err)

	_, err = load(t, writeConfig(t, "concurrency: [\n"), "", newFlags(t))
	assert.Error(t, err)

	_, err = load(t, writeConfig(t, "concurrency: 2\n"), "nope", newFlags(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "profile 'nope' not found")
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("CODELENS_CONCURRENCY", "3")
	t.Setenv("CODELENS_SERVER_ADDR", ":8080")
	t.Setenv("CODELENS_ANALYZER_CLASSIFIER", "heuristic")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := load(t, writeConfig(t, "concurrency: 2\n"), "", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Concurrency, "environment overrides the file")
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, codelens.ClassifierHeuristic, cfg.Analyzer.Classifier)
	assert.Equal(t, "sk-test", cfg.Generator.APIKey)

	t.Setenv("CODELENS_GENERATOR_API_KEY", "sk-own")
	cfg, err = load(t, "", "", newFlags(t))
	require.NoError(t, err)
	assert.Equal(t, "sk-own", cfg.Generator.APIKey)
}

func TestLoad_FlagsWin(t *testing.T) {
	t.Setenv("CODELENS_CONCURRENCY", "3")
	fs := newFlags(t)
	require.NoError(t, fs.Set("concurrency", "5"))
	require.NoError(t, fs.Set("ignore", "a/**"))
	require.NoError(t, fs.Set("ignore", "b/**"))
	require.NoError(t, fs.Set("watch-debounce", "2s"))
	require.NoError(t, fs.Set("generator", "exec"))
	require.NoError(t, fs.Set("generator-cmd", "./gen.sh"))
	require.NoError(t, fs.Set(config.FlagNoTUI, "true"))
	require.NoError(t, fs.Set(config.FlagNoCache, "true"))

	cfg, err := load(t, writeConfig(t, "concurrency: 2\n"), "", fs)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Concurrency)
	assert.Equal(t, []string{"a/**", "b/**"}, cfg.IgnorePatterns)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, generator.ProviderExec, cfg.Generator.Provider)
	assert.Equal(t, []string{"./gen.sh"}, cfg.Generator.Command)
	assert.False(t, cfg.TuiEnabled)
	assert.True(t, cfg.IgnoreCacheRead)
}

func TestLoad_EnvFile(t *testing.T) {
	const key = "CODELENS_REPORTFORMAT"
	t.Cleanup(func() { _ = os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), "test.env")
	testutil.CreateDummyFile(t, path, key+"=json\n")

	fs := newFlags(t)
	require.NoError(t, fs.Set(config.FlagEnvFile, path))
	cfg, err := load(t, "", "", fs)
	require.NoError(t, err)
	assert.Equal(t, codelens.OutputFormatJSON, cfg.ReportFormat)

	fs = newFlags(t)
	require.NoError(t, fs.Set(config.FlagEnvFile, filepath.Join(t.TempDir(), "missing.env")))
	_, err = load(t, "", "", fs)
	assert.Error(t, err, "an explicit env file must exist")
}

func TestLoad_Validation(t *testing.T) {
	testCases := []struct {
		name string
		flag string
		val  string
	}{
		{name: "LogFormat", flag: "log-format", val: "xml"},
		{name: "Classifier", flag: "classifier", val: "magic"},
		{name: "Provider", flag: "generator", val: "llama"},
		{name: "ExecWithoutCommand", flag: "generator", val: "exec"},
		{name: "NegativeMaxInput", flag: "max-input-bytes", val: "-1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFlags(t)
			require.NoError(t, fs.Set(tc.flag, tc.val))
			_, err := load(t, "", "", fs)
			assert.ErrorIs(t, err, codelens.ErrConfigValidation)
		})
	}
}

func TestLoad_JSONLogs(t *testing.T) {
	fs := newFlags(t)
	require.NoError(t, fs.Set("log-format", "json"))
	require.NoError(t, fs.Set("verbose", "true"))

	stderr := &bytes.Buffer{}
	_, logger, err := config.Load("", "", "test", fs, stderr)
	require.NoError(t, err)
	logger.Debug("probe")
	assert.Contains(t, stderr.String(), `"msg":"probe"`)
}

func scanConfig(t *testing.T, fs *pflag.FlagSet) config.Config {
	t.Helper()
	cfg, err := load(t, "", "", fs)
	require.NoError(t, err)
	return cfg
}

func TestValidateScan(t *testing.T) {
	input := t.TempDir()
	output := filepath.Join(t.TempDir(), "out")

	fs := newFlags(t)
	require.NoError(t, fs.Set("input", input))
	require.NoError(t, fs.Set("output", output))
	cfg := scanConfig(t, fs)

	require.NoError(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()))
	assert.Equal(t, input, cfg.InputPath)
	assert.Equal(t, output, cfg.OutputPath)
	assert.DirExists(t, output)
	assert.Equal(t, codelens.GitDiffModeNone, cfg.GitDiffMode)
	assert.True(t, cfg.TuiEnabled)
}

func TestValidateScan_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file.py")
	testutil.CreateDummyFile(t, file, "x = 1\n")

	testCases := []struct {
		name  string
		flags map[string]string
	}{
		{name: "NoInput", flags: map[string]string{"output": t.TempDir()}},
		{name: "NoOutput", flags: map[string]string{"input": t.TempDir()}},
		{name: "MissingInput", flags: map[string]string{"input": filepath.Join(t.TempDir(), "nope"), "output": t.TempDir()}},
		{name: "InputIsFile", flags: map[string]string{"input": file, "output": t.TempDir()}},
		{name: "OnError", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "onError": "panic"}},
		{name: "BinaryMode", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "binary-mode": "placeholder"}},
		{name: "OutputFormat", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "output-format": "text"}},
		{name: "ReportFormat", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "report-format": "yaml"}},
		{name: "CacheFormat", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "cache-format": "xml"}},
		{name: "Concurrency", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), "concurrency": "-2"}},
		{name: "GitFlagsTogether", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), config.FlagGitDiff: "true", config.FlagGitSince: "v1"}},
		{name: "EmptyGitSince", flags: map[string]string{"input": t.TempDir(), "output": t.TempDir(), config.FlagGitSince: ""}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			fs := newFlags(t)
			for name, val := range tc.flags {
				require.NoError(t, fs.Set(name, val))
			}
			cfg := scanConfig(t, fs)
			assert.ErrorIs(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()), codelens.ErrConfigValidation)
		})
	}
}

func TestValidateScan_Derivations(t *testing.T) {
	base := func(t *testing.T) *pflag.FlagSet {
		fs := newFlags(t)
		require.NoError(t, fs.Set("input", t.TempDir()))
		require.NoError(t, fs.Set("output", t.TempDir()))
		return fs
	}

	t.Run("GitDiffOnly", func(t *testing.T) {
		fs := base(t)
		require.NoError(t, fs.Set(config.FlagGitDiff, "true"))
		cfg := scanConfig(t, fs)
		require.NoError(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()))
		assert.Equal(t, codelens.GitDiffModeDiffOnly, cfg.GitDiffMode)
	})

	t.Run("GitSince", func(t *testing.T) {
		fs := base(t)
		require.NoError(t, fs.Set(config.FlagGitSince, "v1.2.0"))
		cfg := scanConfig(t, fs)
		require.NoError(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()))
		assert.Equal(t, codelens.GitDiffModeSince, cfg.GitDiffMode)
		assert.Equal(t, "v1.2.0", cfg.GitSinceRef)
	})

	t.Run("VerboseDisablesTUI", func(t *testing.T) {
		fs := base(t)
		require.NoError(t, fs.Set("verbose", "true"))
		cfg := scanConfig(t, fs)
		require.NoError(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()))
		assert.False(t, cfg.TuiEnabled)
	})

	t.Run("WatchDisablesTUI", func(t *testing.T) {
		fs := base(t)
		require.NoError(t, fs.Set("watch", "true"))
		cfg := scanConfig(t, fs)
		require.NoError(t, config.ValidateScan(&cfg, fs, testutil.DiscardLogger()))
		assert.True(t, cfg.WatchMode)
		assert.False(t, cfg.TuiEnabled)
	})
}
