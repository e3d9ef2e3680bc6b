// Package config loads the CLI configuration. Sources are merged in
// increasing precedence: defaults, the config file, the selected profile,
// the environment (after an optional .env file) and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/stackvity/codelens/internal/server"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stackvity/codelens/pkg/codelens/explain"
	"github.com/stackvity/codelens/pkg/codelens/generator"
	"github.com/stackvity/codelens/pkg/codelens/language"
)

const (
	EnvPrefix         = "CODELENS"
	DefaultConfigName = "codelens"
	DefaultEnvFile    = ".env"

	LogFormatText = "text"
	LogFormatJSON = "json"
)

// apiKeyEnv lists the variables consulted for generator.apiKey, first match
// wins.
var apiKeyEnv = []string{EnvPrefix + "_GENERATOR_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "GOOGLE_API_KEY"}

// Config is the merged CLI configuration. The embedded ScanOptions carry
// the batch scan settings, including the analyzer options.
type Config struct {
	codelens.ScanOptions `mapstructure:",squash"`

	Generator generator.Config `mapstructure:"generator"`
	Server    server.Config    `mapstructure:"server"`

	Verbose    bool   `mapstructure:"verbose"`
	LogFormat  string `mapstructure:"logFormat"`
	TuiEnabled bool   `mapstructure:"tuiEnabled"`
	WatchMode  bool   `mapstructure:"watch"`
	// ReportFormat is how the final scan report is printed.
	ReportFormat codelens.OutputFormat `mapstructure:"reportFormat"`
}

// Load merges every configuration source and builds the logger writing to
// stderr. Scan-specific checks are left to ValidateScan.
func Load(cfgFile, profileName, appVersion string, flags *pflag.FlagSet, stderr io.Writer) (Config, *slog.Logger, error) {
	var cfg Config
	v := viper.New()

	// Temporary logger for problems found before the final one exists.
	tempLogger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	setDefaults(v)

	if err := loadEnvFile(flags); err != nil {
		tempLogger.Error("Error loading environment file", slog.Any("error", err))
		return cfg, tempLogger, err
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(DefaultConfigName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", DefaultConfigName))
			v.AddConfigPath(filepath.Join(home, "."+DefaultConfigName))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			used := cfgFile
			if used == "" {
				used = "searched locations for " + DefaultConfigName + ".yaml"
			}
			tempLogger.Error("Error reading configuration file", slog.String("path", used), slog.Any("error", err))
			return cfg, tempLogger, fmt.Errorf("error reading config file '%s': %w", used, err)
		}
		tempLogger.Debug("No configuration file found, using defaults/env/flags.")
	} else {
		cfg.ConfigFilePath = v.ConfigFileUsed()
	}

	cfg.ProfileName = profileName
	if profileName != "" {
		if err := applyProfile(v, profileName); err != nil {
			tempLogger.Error(err.Error())
			return cfg, tempLogger, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv(append([]string{"generator.apiKey"}, apiKeyEnv...)...); err != nil {
		return cfg, tempLogger, fmt.Errorf("error binding environment: %w", err)
	}

	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			tempLogger.Error("Error binding flag", slog.String("flag", name), slog.Any("error", err))
			return cfg, tempLogger, fmt.Errorf("error binding flag '--%s': %w", name, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		tempLogger.Error("Error unmarshalling configuration", slog.Any("error", err))
		return cfg, tempLogger, fmt.Errorf("error unmarshalling configuration: %w", err)
	}
	cfg.AppVersion = appVersion

	// Negated flags have no config key of their own.
	if noTUI, _ := flags.GetBool(FlagNoTUI); noTUI {
		cfg.TuiEnabled = false
	}
	if flags.Changed(FlagNoCache) {
		cfg.IgnoreCacheRead, _ = flags.GetBool(FlagNoCache)
	}
	if flags.Changed(FlagClearCache) {
		cfg.ClearCache, _ = flags.GetBool(FlagClearCache)
	}

	logger := NewLogger(stderr, cfg.LogFormat, cfg.Verbose)
	cfg.Logger = logger.Handler()
	cfg.Analyzer.Logger = cfg.Logger

	if err := validate(&cfg); err != nil {
		logger.Error(err.Error())
		return cfg, logger, err
	}

	logger.Debug("Configuration loaded",
		slog.String("configFile", cfg.ConfigFilePath),
		slog.String("profile", cfg.ProfileName),
		slog.Bool("verbose", cfg.Verbose),
		slog.String("generator", string(cfg.Generator.Provider)),
	)
	return cfg, logger, nil
}

// NewLogger returns the CLI logger: text or JSON records on w, debug level
// when verbose.
func NewLogger(w io.Writer, format string, verbose bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if verbose {
		opts.Level = slog.LevelDebug
	}
	if format == LogFormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// loadEnvFile exports the variables of the --env-file file that are not
// already set. A missing default file is ignored; a missing explicit one is
// an error.
func loadEnvFile(flags *pflag.FlagSet) error {
	path := DefaultEnvFile
	if flags.Lookup(FlagEnvFile) != nil {
		path, _ = flags.GetString(FlagEnvFile)
	}
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrNotExist) && !flags.Changed(FlagEnvFile) {
		return nil
	}
	return fmt.Errorf("error reading env file '%s': %w", path, err)
}

func applyProfile(v *viper.Viper, name string) error {
	key := "profiles." + name
	configPath := v.ConfigFileUsed()
	if configPath == "" {
		configPath = "(no config file found)"
	}
	if !v.IsSet(key) {
		return fmt.Errorf("profile '%s' not found in config file '%s'", name, configPath)
	}
	sub := v.Sub(key)
	if sub == nil {
		return fmt.Errorf("profile '%s' in config file '%s' is not a map", name, configPath)
	}
	if err := v.MergeConfigMap(sub.AllSettings()); err != nil {
		return fmt.Errorf("error merging profile '%s': %w", name, err)
	}
	return nil
}

// setDefaults registers every key so that environment variables reach
// Unmarshal even when no file or flag mentions them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("verbose", false)
	v.SetDefault("logFormat", LogFormatText)
	v.SetDefault("tuiEnabled", codelens.DefaultTuiEnabled)
	v.SetDefault("watch", false)
	v.SetDefault("reportFormat", string(codelens.OutputFormatText))

	// --- Scan ---
	v.SetDefault("inputPath", "")
	v.SetDefault("outputPath", "")
	v.SetDefault("concurrency", codelens.DefaultConcurrency)
	v.SetDefault("onError", string(codelens.DefaultOnErrorMode))
	v.SetDefault("binaryMode", string(codelens.DefaultBinaryMode))
	v.SetDefault("outputFormat", string(codelens.DefaultOutputFormat))
	v.SetDefault("writeDocumented", false)
	v.SetDefault("cache", codelens.DefaultCacheEnabled)
	v.SetDefault("cacheFormat", cache.DefaultFormat)
	v.SetDefault("ignore", []string{})
	v.SetDefault("includeVendored", false)
	v.SetDefault("gitMetadata", false)
	v.SetDefault("gitSinceRef", codelens.DefaultGitSinceRef)
	v.SetDefault("watchDebounce", codelens.DefaultWatchDebounce.String())

	// --- Analyzer ---
	v.SetDefault("analyzer.maxInputBytes", codelens.DefaultMaxInputBytes)
	v.SetDefault("analyzer.defaultEncoding", "")
	v.SetDefault("analyzer.classifier", string(codelens.DefaultClassifier))
	v.SetDefault("analyzer.includeDetails", false)
	v.SetDefault("analyzer.language.topK", language.DefaultTopK)
	v.SetDefault("analyzer.language.acceptanceThreshold", language.DefaultAcceptanceThreshold)
	v.SetDefault("analyzer.language.confidenceFloor", language.DefaultConfidenceFloor)
	v.SetDefault("analyzer.language.minLength", language.DefaultMinLength)
	v.SetDefault("analyzer.language.sampleLines", language.DefaultSampleLines)
	v.SetDefault("analyzer.language.timeout", language.DefaultClassifierTimeout.String())
	v.SetDefault("analyzer.explain.excerptLimit", explain.DefaultExcerptLimit)
	v.SetDefault("analyzer.explain.timeout", explain.DefaultTimeout.String())

	// --- Generator ---
	v.SetDefault("generator.provider", string(generator.ProviderNone))
	v.SetDefault("generator.model", "")
	v.SetDefault("generator.baseURL", "")
	v.SetDefault("generator.maxTokens", generator.DefaultMaxTokens)
	v.SetDefault("generator.command", []string{})
	v.SetDefault("generator.requestsPerSecond", 0.0)
	v.SetDefault("generator.burst", 1)

	// --- Server ---
	srv := server.DefaultConfig()
	v.SetDefault("server.addr", srv.Addr)
	v.SetDefault("server.maxCodeChars", srv.MaxCodeChars)
	v.SetDefault("server.requestsPerMinute", srv.RequestsPerMinute)
	v.SetDefault("server.burst", srv.Burst)
	v.SetDefault("server.cacheSize", srv.CacheSize)
	v.SetDefault("server.cacheTTL", srv.CacheTTL.String())
	v.SetDefault("server.readTimeout", srv.ReadTimeout.String())
	v.SetDefault("server.writeTimeout", srv.WriteTimeout.String())
	v.SetDefault("server.shutdownTimeout", srv.ShutdownTimeout.String())
}

// isValidEnumValue checks if a given string value is present in a slice of allowed enum values.
func isValidEnumValue[T ~string](value T, allowedValues []T) bool {
	return slices.Contains(allowedValues, value)
}

func enumError[T ~string](key string, value T, allowed []T) error {
	return fmt.Errorf("%w: invalid value '%s' for key '%s'. Allowed: %v", codelens.ErrConfigValidation, value, key, allowed)
}

// validate checks the settings every command depends on.
func validate(cfg *Config) error {
	if allowed := []string{LogFormatText, LogFormatJSON}; !isValidEnumValue(cfg.LogFormat, allowed) {
		return enumError("logFormat", cfg.LogFormat, allowed)
	}
	if allowed := []codelens.ClassifierKind{codelens.ClassifierEnry, codelens.ClassifierHeuristic}; !isValidEnumValue(cfg.Analyzer.Classifier, allowed) {
		return enumError("analyzer.classifier", cfg.Analyzer.Classifier, allowed)
	}
	allowedProviders := []generator.Provider{generator.ProviderNone, generator.ProviderOpenAI, generator.ProviderGemini, generator.ProviderExec}
	if !isValidEnumValue(cfg.Generator.Provider, allowedProviders) {
		return enumError("generator.provider", cfg.Generator.Provider, allowedProviders)
	}
	if cfg.Generator.Provider == generator.ProviderExec && len(cfg.Generator.Command) == 0 {
		return fmt.Errorf("%w: generator.command is required for the exec generator (--generator-cmd)", codelens.ErrConfigValidation)
	}
	if cfg.Analyzer.MaxInputBytes < 0 {
		return fmt.Errorf("%w: invalid value '%d' for key 'analyzer.maxInputBytes'. Must be >= 0", codelens.ErrConfigValidation, cfg.Analyzer.MaxInputBytes)
	}
	if cfg.Generator.RequestsPerSecond < 0 {
		return fmt.Errorf("%w: invalid value '%g' for key 'generator.requestsPerSecond'. Must be >= 0", codelens.ErrConfigValidation, cfg.Generator.RequestsPerSecond)
	}
	return nil
}

// ValidateScan checks and derives the batch scan settings: absolute,
// existing paths, enum values, the git diff mode and the effective TUI
// state.
func ValidateScan(cfg *Config, flags *pflag.FlagSet, logger *slog.Logger) error {
	if err := validateScan(cfg, flags); err != nil {
		logger.Error(err.Error())
		return err
	}
	logger.Debug("Scan settings validated",
		slog.String("input", cfg.InputPath),
		slog.String("output", cfg.OutputPath),
		slog.String("gitDiffMode", string(cfg.GitDiffMode)),
		slog.Bool("tuiEnabledEffective", cfg.TuiEnabled),
	)
	return nil
}

func validateScan(cfg *Config, flags *pflag.FlagSet) error {
	if cfg.InputPath == "" {
		return fmt.Errorf("%w: input path is required (-i, --input)", codelens.ErrConfigValidation)
	}
	absInput, err := filepath.Abs(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("%w: cannot resolve absolute input path '%s': %w", codelens.ErrConfigValidation, cfg.InputPath, err)
	}
	cfg.InputPath = absInput
	info, err := os.Stat(cfg.InputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: input path '%s' does not exist", codelens.ErrConfigValidation, cfg.InputPath)
		}
		return fmt.Errorf("%w: cannot access input path '%s': %w", codelens.ErrConfigValidation, cfg.InputPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: input path '%s' is not a directory", codelens.ErrConfigValidation, cfg.InputPath)
	}

	if cfg.OutputPath == "" {
		return fmt.Errorf("%w: output path is required (-o, --output)", codelens.ErrConfigValidation)
	}
	if cfg.OutputPath, err = filepath.Abs(cfg.OutputPath); err != nil {
		return fmt.Errorf("%w: cannot resolve absolute output path: %w", codelens.ErrConfigValidation, err)
	}
	if err := os.MkdirAll(cfg.OutputPath, 0o755); err != nil {
		return fmt.Errorf("%w: cannot create or access output directory '%s': %w", codelens.ErrConfigValidation, cfg.OutputPath, err)
	}

	if allowed := []codelens.OnErrorMode{codelens.OnErrorContinue, codelens.OnErrorStop}; !isValidEnumValue(cfg.OnErrorMode, allowed) {
		return enumError("onError", cfg.OnErrorMode, allowed)
	}
	if allowed := []codelens.BinaryMode{codelens.BinarySkip, codelens.BinaryNotice, codelens.BinaryError}; !isValidEnumValue(cfg.BinaryMode, allowed) {
		return enumError("binaryMode", cfg.BinaryMode, allowed)
	}
	if allowed := []codelens.OutputFormat{codelens.OutputFormatJSON, codelens.OutputFormatYAML}; !isValidEnumValue(cfg.OutputFormat, allowed) {
		return enumError("outputFormat", cfg.OutputFormat, allowed)
	}
	if allowed := []codelens.OutputFormat{codelens.OutputFormatText, codelens.OutputFormatJSON}; !isValidEnumValue(cfg.ReportFormat, allowed) {
		return enumError("reportFormat", cfg.ReportFormat, allowed)
	}
	if allowed := []string{cache.FormatGob, cache.FormatJSON}; !isValidEnumValue(cfg.CacheFormat, allowed) {
		return enumError("cacheFormat", cfg.CacheFormat, allowed)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("%w: invalid value '%d' for key 'concurrency' (flag --concurrency). Must be >= 0", codelens.ErrConfigValidation, cfg.Concurrency)
	}
	if cfg.WatchDebounce < 0 {
		return fmt.Errorf("%w: invalid negative watch debounce '%s'", codelens.ErrConfigValidation, cfg.WatchDebounce)
	}

	cfg.GitDiffMode = codelens.GitDiffModeNone
	diffOnly, _ := flags.GetBool(FlagGitDiff)
	switch {
	case diffOnly && flags.Changed(FlagGitSince):
		return fmt.Errorf("%w: cannot use --%s and --%s simultaneously", codelens.ErrConfigValidation, FlagGitDiff, FlagGitSince)
	case diffOnly:
		cfg.GitDiffMode = codelens.GitDiffModeDiffOnly
	case flags.Changed(FlagGitSince):
		if cfg.GitSinceRef == "" {
			return fmt.Errorf("%w: flag --%s requires a non-empty reference (commit/tag/branch)", codelens.ErrConfigValidation, FlagGitSince)
		}
		cfg.GitDiffMode = codelens.GitDiffModeSince
	}

	// Debug output and the TUI share stderr.
	if cfg.Verbose || cfg.WatchMode {
		cfg.TuiEnabled = false
	}
	return nil
}
