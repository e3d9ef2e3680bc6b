// Package cli wires configuration to the library: it builds the analyzer
// with its generator, the git client and the progress hooks, runs the
// requested operation and prints the outcome.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/stackvity/codelens/internal/cli/config"
	"github.com/stackvity/codelens/internal/cli/git"
	"github.com/stackvity/codelens/internal/cli/hooks"
	"github.com/stackvity/codelens/internal/cli/runner"
	"github.com/stackvity/codelens/internal/cli/ui"
	"github.com/stackvity/codelens/internal/server"
	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/generator"
)

// NewAnalyzer builds the analyzer described by cfg, including its
// explanation generator.
func NewAnalyzer(ctx context.Context, cfg config.Config) (*codelens.Analyzer, error) {
	gen, err := generator.New(ctx, cfg.Generator, runner.NewExecRunner(cfg.Logger), cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", codelens.ErrConfigValidation, err)
	}
	opts := cfg.Analyzer
	opts.Logger = cfg.Logger
	if _, none := gen.(generator.Unavailable); !none {
		opts.Generator = gen
	}
	return codelens.NewAnalyzer(opts)
}

// Analyze runs a single analysis and writes the result to w in format.
func Analyze(ctx context.Context, cfg config.Config, req codelens.AnalysisRequest, format codelens.OutputFormat, w io.Writer) error {
	analyzer, err := NewAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	res, err := analyzer.Analyze(ctx, req)
	if err != nil {
		return err
	}
	data, err := codelens.Encode(res, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// scanOptions completes cfg.ScanOptions with the injected dependencies.
func scanOptions(ctx context.Context, cfg config.Config, eventHooks codelens.Hooks) (codelens.ScanOptions, error) {
	analyzer, err := NewAnalyzer(ctx, cfg)
	if err != nil {
		return codelens.ScanOptions{}, err
	}
	opts := cfg.ScanOptions
	opts.AnalyzerInstance = analyzer
	opts.EventHooks = eventHooks
	if opts.GitMetadataEnabled || opts.GitDiffMode != codelens.GitDiffModeNone {
		opts.GitClient = git.NewGoGitClient(cfg.Logger)
	}
	return opts, nil
}

// RunScan runs one batch scan and prints its report to stdout. Progress is
// shown in a terminal UI on stderr when enabled and stderr is a terminal;
// quitting the UI cancels the scan.
func RunScan(ctx context.Context, cfg config.Config, stdout, stderr io.Writer, logger *slog.Logger) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		program *tea.Program
		tuiDone chan struct{}
	)
	useTUI := cfg.TuiEnabled && isTerminal(stderr)
	if useTUI {
		model := ui.NewModel(cfg.AppVersion)
		program = tea.NewProgram(&model, tea.WithOutput(stderr), tea.WithContext(ctx), tea.WithAltScreen())
		tuiDone = make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				logger.Warn("Terminal UI stopped", slog.Any("error", err))
			}
			cancel()
		}()
	}
	stopTUI := func() {
		if program != nil {
			program.Quit()
			<-tuiDone
		}
	}

	opts, err := scanOptions(runCtx, cfg, hooks.NewCLIHooks(logger, useTUI, cfg.Verbose, tuiProgram(program)))
	if err != nil {
		stopTUI()
		return err
	}
	engine, err := codelens.NewEngine(runCtx, opts)
	if err != nil {
		stopTUI()
		return err
	}

	report, runErr := engine.Run()
	if program != nil {
		// The final screen stays up until the user quits it.
		<-tuiDone
	}
	if err := PrintReport(stdout, report, cfg.ReportFormat); err != nil {
		logger.Error("Failed to print report", slog.Any("error", err))
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

// Watch scans, then re-scans on every change under the input tree until ctx
// ends, printing each report.
func Watch(ctx context.Context, cfg config.Config, stdout io.Writer, logger *slog.Logger) error {
	opts, err := scanOptions(ctx, cfg, hooks.NewCLIHooks(logger, false, cfg.Verbose, nil))
	if err != nil {
		return err
	}
	logger.Info("Watching for changes", slog.String("input", opts.InputPath), slog.Duration("debounce", opts.WatchDebounce))
	return codelens.Watch(ctx, opts, func(report codelens.Report, err error) {
		if err != nil {
			logger.Error("Scan failed", slog.Any("error", err))
		}
		if perr := PrintReport(stdout, report, cfg.ReportFormat); perr != nil {
			logger.Error("Failed to print report", slog.Any("error", perr))
		}
	})
}

// Serve runs the HTTP server until ctx ends.
func Serve(ctx context.Context, cfg config.Config) error {
	analyzer, err := NewAnalyzer(ctx, cfg)
	if err != nil {
		return err
	}
	srv, err := server.New(analyzer, cfg.Server, cfg.Logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// PrintReport writes report to w as text or JSON.
func PrintReport(w io.Writer, report codelens.Report, format codelens.OutputFormat) error {
	if format == codelens.OutputFormatText || format == "" {
		return report.WriteText(w)
	}
	data, err := codelens.Encode(report, format)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// tuiProgram keeps a nil *tea.Program from becoming a non-nil interface.
func tuiProgram(p *tea.Program) hooks.TUIProgram {
	if p == nil {
		return nil
	}
	return p
}
