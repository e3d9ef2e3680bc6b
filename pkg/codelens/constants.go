package codelens

import "time"

// Defaults used when options are left at their zero value and when the CLI
// seeds its configuration.
const (
	// DefaultMaxInputBytes is the input ceiling enforced before any analysis.
	DefaultMaxInputBytes = 1_000_000
	DefaultClassifier    = ClassifierEnry
	DefaultConcurrency   = 0
	DefaultCacheEnabled  = true
	DefaultTuiEnabled    = true
	DefaultOnErrorMode   = OnErrorContinue
	DefaultBinaryMode    = BinarySkip
	DefaultOutputFormat  = OutputFormatJSON
	DefaultGitSinceRef   = "main"
	// DefaultWatchDebounce is how long watch mode waits for filesystem events
	// to settle before re-running a scan.
	DefaultWatchDebounce = 300 * time.Millisecond
)

// UnsupportedNotice is the explanation given for content that is not text.
const UnsupportedNotice = "The input appears to be binary or otherwise unsupported content and was not analyzed."

// IgnoreFileName is the per-tree ignore file read by batch scans. It holds
// one doublestar pattern per line.
const IgnoreFileName = ".codelensignore"

// ReportSchemaVersion is the version of the JSON scan report layout.
const ReportSchemaVersion = "1"

// Cache statuses recorded per processed file.
const (
	CacheStatusHit      = "hit"
	CacheStatusMiss     = "miss"
	CacheStatusDisabled = "disabled"
)

// Reasons recorded for skipped files.
const (
	SkipReasonBinary     = "binary_file"
	SkipReasonLarge      = "large_file"
	SkipReasonIgnored    = "ignored_pattern"
	SkipReasonVendored   = "vendored"
	SkipReasonGitExclude = "excluded_by_git_diff"
	SkipReasonEmpty      = "empty_file"
)
