// Package hooks bridges scan events to the terminal: a bubbletea program
// when the TUI runs, structured log records otherwise.
package hooks

import (
	"context"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stackvity/codelens/internal/cli/ui"
	"github.com/stackvity/codelens/pkg/codelens"
)

// TUIProgram is the part of tea.Program the hooks use.
type TUIProgram interface {
	Send(msg tea.Msg)
}

// NoOpTUIProgram drops every message.
type NoOpTUIProgram struct{}

func (n *NoOpTUIProgram) Send(tea.Msg) {}

// CLIHooks implements codelens.Hooks for the command line.
type CLIHooks struct {
	logger     *slog.Logger
	tuiEnabled bool
	verbose    bool
	program    TUIProgram
}

// NewCLIHooks creates CLIHooks. A nil program selects NoOpTUIProgram.
func NewCLIHooks(logger *slog.Logger, tuiEnabled, verbose bool, program TUIProgram) *CLIHooks {
	if program == nil {
		program = &NoOpTUIProgram{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &CLIHooks{
		logger:     logger.With(slog.String("component", "cliHooks")),
		tuiEnabled: tuiEnabled,
		verbose:    verbose,
		program:    program,
	}
}

func (h *CLIHooks) OnFileDiscovered(path string) error {
	if h.tuiEnabled {
		h.program.Send(ui.FileDiscoveredMsg{Path: path})
	} else if h.verbose {
		h.logger.Debug("File discovered", slog.String("path", path))
	}
	return nil
}

// OnFileStatusUpdate is called from every worker concurrently. tea.Program.Send
// and slog handlers are both safe for that.
func (h *CLIHooks) OnFileStatusUpdate(path string, status codelens.Status, message string, duration time.Duration) error {
	if h.tuiEnabled {
		h.program.Send(ui.FileStatusUpdateMsg{Path: path, Status: status, Message: message, Duration: duration})
		return nil
	}

	if status == codelens.StatusFailed {
		h.logger.Error("File analysis failed", slog.String("path", path), slog.String("error", message))
		return nil
	}
	if !h.verbose || status == codelens.StatusProcessing {
		return nil
	}

	attrs := []any{slog.String("path", path), slog.String("status", string(status))}
	if duration > 0 {
		attrs = append(attrs, slog.Duration("duration", duration))
	}
	if message != "" {
		attrs = append(attrs, slog.String("message", message))
	}
	h.logger.Log(context.Background(), slog.LevelInfo, "File status updated", attrs...)
	return nil
}

func (h *CLIHooks) OnRunComplete(report codelens.Report) error {
	if h.tuiEnabled {
		h.program.Send(ui.RunCompleteMsg{Report: report})
		return nil
	}
	s := report.Summary
	h.logger.Info("Scan complete",
		slog.Int("processed", s.ProcessedCount),
		slog.Int("cached", s.CachedCount),
		slog.Int("skipped", s.SkippedCount),
		slog.Int("errors", s.ErrorCount),
		slog.Int("degraded", s.DegradedCount))
	return nil
}

var _ codelens.Hooks = (*CLIHooks)(nil)
