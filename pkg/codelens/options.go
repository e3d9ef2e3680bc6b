package codelens

import (
	"log/slog"
	"time"

	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stackvity/codelens/pkg/codelens/detail"
	"github.com/stackvity/codelens/pkg/codelens/encoding"
	"github.com/stackvity/codelens/pkg/codelens/explain"
	"github.com/stackvity/codelens/pkg/codelens/git"
	"github.com/stackvity/codelens/pkg/codelens/language"
)

// AnalyzerOptions configures an Analyzer.
type AnalyzerOptions struct {
	// MaxInputBytes is the input ceiling. 0 selects DefaultMaxInputBytes.
	MaxInputBytes   int             `mapstructure:"maxInputBytes"`
	DefaultEncoding string          `mapstructure:"defaultEncoding"`
	Classifier      ClassifierKind  `mapstructure:"classifier"`
	Language        language.Config `mapstructure:"language"`
	Explain         explain.Config  `mapstructure:"explain"`
	// IncludeDetails adds the declaration inventory to results.
	IncludeDetails bool `mapstructure:"includeDetails"`

	// --- Injected dependencies ---
	Logger slog.Handler `mapstructure:"-"`
	// LanguageClassifier overrides Classifier.
	LanguageClassifier language.Classifier `mapstructure:"-"`
	// Generator elaborates explanations. Nil gives template-only explanations.
	Generator       explain.Generator `mapstructure:"-"`
	EncodingHandler encoding.Handler  `mapstructure:"-"`
	DetailExtractor detail.Extractor  `mapstructure:"-"`
}

// Hooks receives status updates during a batch scan. Implementations must
// be safe for concurrent use.
type Hooks interface {
	OnFileDiscovered(path string) error
	OnFileStatusUpdate(path string, status Status, message string, duration time.Duration) error
	OnRunComplete(report Report) error
}

// NoOpHooks implements Hooks by doing nothing.
type NoOpHooks struct{}

func (h *NoOpHooks) OnFileDiscovered(string) error { return nil }

func (h *NoOpHooks) OnFileStatusUpdate(string, Status, string, time.Duration) error { return nil }

func (h *NoOpHooks) OnRunComplete(Report) error { return nil }

// NoOpCacheManager implements cache.Manager with permanent misses.
type NoOpCacheManager struct{}

func (c *NoOpCacheManager) Load(string) error { return nil }

func (c *NoOpCacheManager) Check(string, time.Time, string, string) (bool, string) {
	return false, ""
}

func (c *NoOpCacheManager) Update(string, time.Time, string, string, string) error { return nil }

func (c *NoOpCacheManager) Persist(string) error { return nil }

// ScanOptions configures a batch scan of a directory tree.
type ScanOptions struct {
	// --- Core paths ---
	InputPath  string `mapstructure:"inputPath"`
	OutputPath string `mapstructure:"outputPath"`

	// AppVersion is recorded in the cache; "dev" matches any version.
	AppVersion     string `mapstructure:"-"`
	ConfigFilePath string `mapstructure:"-"`
	ProfileName    string `mapstructure:"-"`

	// --- Behavior & control ---
	Concurrency  int          `mapstructure:"concurrency"`
	OnErrorMode  OnErrorMode  `mapstructure:"onError"`
	BinaryMode   BinaryMode   `mapstructure:"binaryMode"`
	OutputFormat OutputFormat `mapstructure:"outputFormat"`
	// WriteDocumented also writes the annotated copy of every source file.
	WriteDocumented bool `mapstructure:"writeDocumented"`

	// --- Caching ---
	CacheEnabled    bool   `mapstructure:"cache"`
	CacheFormat     string `mapstructure:"cacheFormat"`
	IgnoreCacheRead bool   `mapstructure:"-"`
	ClearCache      bool   `mapstructure:"-"`
	CacheFilePath   string `mapstructure:"-"`

	// --- Filtering ---
	IgnorePatterns  []string `mapstructure:"ignore"`
	IncludeVendored bool     `mapstructure:"includeVendored"`

	// --- Git ---
	GitMetadataEnabled bool        `mapstructure:"gitMetadata"`
	GitDiffMode        GitDiffMode `mapstructure:"-"`
	GitSinceRef        string      `mapstructure:"gitSinceRef"`

	// --- Watch ---
	WatchDebounce time.Duration `mapstructure:"watchDebounce"`

	Analyzer AnalyzerOptions `mapstructure:"analyzer"`

	// --- Injected dependencies & internal state ---
	EventHooks   Hooks         `mapstructure:"-"`
	Logger       slog.Handler  `mapstructure:"-"`
	GitClient    git.Client    `mapstructure:"-"`
	CacheManager cache.Manager `mapstructure:"-"`
	// AnalyzerInstance overrides Analyzer.
	AnalyzerInstance *Analyzer `mapstructure:"-"`
	// GitChangedFiles is filled by NewEngine when GitDiffMode is active.
	GitChangedFiles map[string]struct{} `mapstructure:"-"`
}
