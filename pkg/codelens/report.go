package codelens

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Report summarizes a batch scan.
type Report struct {
	Summary        ReportSummary `json:"summary" yaml:"summary"`
	ProcessedFiles []FileInfo    `json:"processedFiles" yaml:"processedFiles"`
	SkippedFiles   []SkippedInfo `json:"skippedFiles" yaml:"skippedFiles"`
	Errors         []ErrorInfo   `json:"errors" yaml:"errors"`
}

// ReportSummary holds the aggregate counts of a scan.
type ReportSummary struct {
	InputPath          string         `json:"inputPath" yaml:"inputPath"`
	OutputPath         string         `json:"outputPath" yaml:"outputPath"`
	ProfileUsed        string         `json:"profileUsed,omitempty" yaml:"profileUsed,omitempty"`
	ConfigFilePath     string         `json:"configFilePath,omitempty" yaml:"configFilePath,omitempty"`
	TotalFilesScanned  int            `json:"totalFilesScanned" yaml:"totalFilesScanned"`
	ProcessedCount     int            `json:"processedCount" yaml:"processedCount"`
	CachedCount        int            `json:"cachedCount" yaml:"cachedCount"`
	SkippedCount       int            `json:"skippedCount" yaml:"skippedCount"`
	ErrorCount         int            `json:"errorCount" yaml:"errorCount"`
	DegradedCount      int            `json:"degradedCount" yaml:"degradedCount"`
	Languages          map[string]int `json:"languages" yaml:"languages"`
	FatalErrorOccurred bool           `json:"fatalError" yaml:"fatalError"`
	DurationSeconds    float64        `json:"durationSeconds" yaml:"durationSeconds"`
	CacheEnabled       bool           `json:"cacheEnabled" yaml:"cacheEnabled"`
	Concurrency        int            `json:"concurrency" yaml:"concurrency"`
	Timestamp          time.Time      `json:"timestamp" yaml:"timestamp"`
	SchemaVersion      string         `json:"schemaVersion" yaml:"schemaVersion"`
}

// FileInfo describes one analyzed or cached file.
type FileInfo struct {
	Path           string    `json:"path" yaml:"path"`
	OutputPath     string    `json:"outputPath" yaml:"outputPath"`
	DocumentedPath string    `json:"documentedPath,omitempty" yaml:"documentedPath,omitempty"`
	Language       string    `json:"language" yaml:"language"`
	Encoding       string    `json:"encoding,omitempty" yaml:"encoding,omitempty"`
	SizeBytes      int64     `json:"sizeBytes" yaml:"sizeBytes"`
	ModTime        time.Time `json:"modTime" yaml:"modTime"`
	CacheStatus    string    `json:"cacheStatus" yaml:"cacheStatus"`
	Degraded       bool      `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	DurationMs     int64     `json:"durationMs" yaml:"durationMs"`
}

// SkippedInfo describes a file that was not analyzed.
type SkippedInfo struct {
	Path    string `json:"path" yaml:"path"`
	Reason  string `json:"reason" yaml:"reason"`
	Details string `json:"details" yaml:"details"`
}

// ErrorInfo describes a file that failed.
type ErrorInfo struct {
	Path    string `json:"path" yaml:"path"`
	Error   string `json:"error" yaml:"error"`
	IsFatal bool   `json:"isFatal" yaml:"isFatal"`
}

// WriteText prints a human-readable summary of r.
func (r Report) WriteText(w io.Writer) error {
	s := r.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "Scanned %d files in %.2fs: %d processed (%d cached), %d skipped, %d errors\n",
		s.TotalFilesScanned, s.DurationSeconds, s.ProcessedCount, s.CachedCount, s.SkippedCount, s.ErrorCount)
	if s.DegradedCount > 0 {
		fmt.Fprintf(&b, "%d explanations fell back to the template\n", s.DegradedCount)
	}
	langs := make([]string, 0, len(s.Languages))
	for l := range s.Languages {
		langs = append(langs, l)
	}
	sort.Strings(langs)
	for _, l := range langs {
		fmt.Fprintf(&b, "  %-12s %d\n", l, s.Languages[l])
	}
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s: %s\n", e.Path, e.Error)
	}
	_, err := io.WriteString(w, b.String())
	return err
}
