package config

import (
	"github.com/spf13/pflag"

	"github.com/stackvity/codelens/internal/server"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/generator"
)

// Flag names read directly by Load rather than bound to a config key.
const (
	FlagConfig     = "config"
	FlagProfile    = "profile"
	FlagEnvFile    = "env-file"
	FlagNoTUI      = "no-tui"
	FlagNoCache    = "no-cache"
	FlagClearCache = "clear-cache"
	FlagGitDiff    = "git-diff-only"
	FlagGitSince   = "git-since"
)

// flagKeys maps flag names to the config keys they override.
var flagKeys = map[string]string{
	"verbose":          "verbose",
	"log-format":       "logFormat",
	"input":            "inputPath",
	"output":           "outputPath",
	"output-format":    "outputFormat",
	"report-format":    "reportFormat",
	"binary-mode":      "binaryMode",
	"onError":          "onError",
	"concurrency":      "concurrency",
	"ignore":           "ignore",
	"include-vendored": "includeVendored",
	"write-documented": "writeDocumented",
	"cache-format":     "cacheFormat",
	"git-metadata":     "gitMetadata",
	FlagGitSince:       "gitSinceRef",
	"watch":            "watch",
	"watch-debounce":   "watchDebounce",
	"classifier":       "analyzer.classifier",
	"details":          "analyzer.includeDetails",
	"max-input-bytes":  "analyzer.maxInputBytes",
	"default-encoding": "analyzer.defaultEncoding",
	"generator":        "generator.provider",
	"model":            "generator.model",
	"generator-url":    "generator.baseURL",
	"generator-cmd":    "generator.command",
	"addr":             "server.addr",
	"max-code-chars":   "server.maxCodeChars",
}

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(fs *pflag.FlagSet) {
	fs.String(FlagConfig, "", "Configuration file path (default: search ., $HOME/.config/codelens, $HOME/.codelens)")
	fs.String(FlagProfile, "", "Name of the configuration profile to apply")
	fs.String(FlagEnvFile, DefaultEnvFile, "Environment file loaded before reading the environment")
	fs.BoolP("verbose", "v", false, "Enable debug logging (disables the TUI)")
	fs.String("log-format", LogFormatText, `Log format ("text", "json")`)
}

// AddAnalyzerFlags registers the flags that tune the analysis pipeline and
// the explanation generator.
func AddAnalyzerFlags(fs *pflag.FlagSet) {
	fs.String("classifier", string(codelens.DefaultClassifier), `Language classifier ("enry", "heuristic")`)
	fs.Bool("details", false, "Include the declaration inventory in results")
	fs.Int("max-input-bytes", codelens.DefaultMaxInputBytes, "Largest input analyzed, in bytes")
	fs.String("default-encoding", "", "Encoding assumed when detection is uncertain (e.g. windows-1252)")
	fs.String("generator", string(generator.ProviderNone), `Explanation generator ("none", "openai", "gemini", "exec")`)
	fs.String("model", "", "Model name for the openai and gemini generators")
	fs.String("generator-url", "", "Base URL of an OpenAI-compatible endpoint")
	fs.StringArray("generator-cmd", nil, "Command of the exec generator, one argument per use")
}

// AddScanFlags registers the batch scan flags.
func AddScanFlags(fs *pflag.FlagSet) {
	fs.StringP("input", "i", "", "Source directory to scan")
	fs.StringP("output", "o", "", "Directory receiving one result file per source file")
	fs.String("output-format", string(codelens.DefaultOutputFormat), `Result file format ("json", "yaml")`)
	fs.String("report-format", string(codelens.OutputFormatText), `Final report format ("text", "json")`)
	fs.String("binary-mode", string(codelens.DefaultBinaryMode), `Binary file handling ("skip", "notice", "error")`)
	fs.String("onError", string(codelens.DefaultOnErrorMode), `Behavior after a file fails ("continue", "stop")`)
	fs.Int("concurrency", codelens.DefaultConcurrency, "Parallel workers (0 uses the CPU count)")
	fs.StringArray("ignore", nil, "Doublestar pattern to ignore, repeatable")
	fs.Bool("include-vendored", false, "Also scan vendored and dependency directories")
	fs.Bool("write-documented", false, "Also write the annotated copy of every source file")
	fs.String("cache-format", "", `Cache file encoding ("gob", "json")`)
	fs.Bool(FlagNoTUI, false, "Disable the terminal UI even on a terminal")
	fs.Bool(FlagNoCache, false, "Ignore cached results (the cache is still written)")
	fs.Bool(FlagClearCache, false, "Delete the cache file before scanning")
	fs.Bool("git-metadata", false, "Record the last commit of every file")
	fs.Bool(FlagGitDiff, false, "Scan only files changed in the working tree against HEAD")
	fs.String(FlagGitSince, "", "Scan only files changed since the given commit, tag or branch")
	fs.Bool("watch", false, "Re-run the scan when files change")
	fs.Duration("watch-debounce", codelens.DefaultWatchDebounce, "Quiet period before a watch re-run")
}

// AddServerFlags registers the HTTP server flags.
func AddServerFlags(fs *pflag.FlagSet) {
	fs.String("addr", server.DefaultAddr, "Listen address")
	fs.Int("max-code-chars", server.DefaultMaxCodeChars, "Largest accepted code field, in characters")
}
