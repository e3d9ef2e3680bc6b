package codelens

// Status is the processing state of one file in a batch scan.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSuccess    Status = "success"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
	StatusCached     Status = "cached"
)

// OnErrorMode selects what a batch scan does after a per-file failure.
type OnErrorMode string

const (
	OnErrorContinue OnErrorMode = "continue"
	OnErrorStop     OnErrorMode = "stop"
)

// BinaryMode selects how a batch scan treats binary files.
type BinaryMode string

const (
	// BinarySkip records the file as skipped.
	BinarySkip BinaryMode = "skip"
	// BinaryNotice writes the unsupported-content result for the file.
	BinaryNotice BinaryMode = "notice"
	// BinaryError records the file as failed.
	BinaryError BinaryMode = "error"
)

// OutputFormat is the serialization used for results and reports.
type OutputFormat string

const (
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
	OutputFormatText OutputFormat = "text"
)

// GitDiffMode restricts a batch scan to files changed in a git repository.
type GitDiffMode string

const (
	GitDiffModeNone     GitDiffMode = "none"
	GitDiffModeDiffOnly GitDiffMode = "diffOnly"
	GitDiffModeSince    GitDiffMode = "since"
)

// ClassifierKind names a built-in language classifier.
type ClassifierKind string

const (
	ClassifierEnry      ClassifierKind = "enry"
	ClassifierHeuristic ClassifierKind = "heuristic"
)
