package ui

import (
	"time"

	"github.com/stackvity/codelens/pkg/codelens"
)

// FileDiscoveredMsg reports a source file found by the walker.
type FileDiscoveredMsg struct{ Path string }

// FileStatusUpdateMsg reports a status change of one file.
type FileStatusUpdateMsg struct {
	Path     string
	Status   codelens.Status
	Message  string
	Duration time.Duration
}

// RunCompleteMsg carries the final report of a scan.
type RunCompleteMsg struct{ Report codelens.Report }

// refreshListMsg asks the model to rebuild the list items.
type refreshListMsg struct{}
