package codelens

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-enry/go-enry/v2"

	"github.com/stackvity/codelens/pkg/codelens/registry"
	"github.com/stackvity/codelens/pkg/util"
)

// Walker traverses the input tree and sends every candidate source file to
// the worker channel. Files it rejects are reported through the hooks and
// the skipped channel.
type Walker struct {
	opts       *ScanOptions
	workerChan chan<- string
	skipped    chan<- any
	hooks      Hooks
	logger     *slog.Logger
	ignores    util.IgnoreList
}

// NewWalker creates a Walker. Patterns come from the input tree's ignore file
// followed by opts.IgnorePatterns, so flags can re-include what the file
// excludes.
func NewWalker(opts *ScanOptions, workerChan chan<- string, skipped chan<- any, handler slog.Handler) (*Walker, error) {
	logger := slog.New(handler).With(slog.String("component", "walker"))
	ignores, err := scanIgnores(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Ignore patterns loaded", slog.Int("count", len(ignores)))

	return &Walker{
		opts:       opts,
		workerChan: workerChan,
		skipped:    skipped,
		hooks:      opts.EventHooks,
		logger:     logger,
		ignores:    ignores,
	}, nil
}

// scanIgnores combines the ignore file of the input tree with the configured
// patterns.
func scanIgnores(opts *ScanOptions) (util.IgnoreList, error) {
	patterns, err := loadIgnoreFile(filepath.Join(opts.InputPath, IgnoreFileName))
	if err != nil {
		return nil, fmt.Errorf("load ignore file: %w", err)
	}
	return util.NewIgnoreList(append(patterns, opts.IgnorePatterns...)...), nil
}

func loadIgnoreFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patterns []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		patterns = append(patterns, scanner.Text())
	}
	return patterns, scanner.Err()
}

// Ignored reports whether relPath is excluded by the ignore patterns.
func (w *Walker) Ignored(relPath string, isDir bool) bool {
	ignored, _ := w.ignores.Match(relPath, isDir)
	return ignored
}

// StartWalk walks the tree and closes the worker channel when done.
func (w *Walker) StartWalk(ctx context.Context) error {
	defer close(w.workerChan)
	w.logger.Info("Starting directory walk", slog.String("path", w.opts.InputPath))
	err := filepath.WalkDir(w.opts.InputPath, w.walkFunc(ctx))
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			w.logger.Info("Directory walk cancelled", slog.String("reason", err.Error()))
			return err
		}
		return fmt.Errorf("directory walk failed: %w", err)
	}
	w.logger.Info("Directory walk completed")
	return nil
}

func (w *Walker) walkFunc(ctx context.Context) fs.WalkDirFunc {
	gitFilter := w.opts.GitDiffMode == GitDiffModeDiffOnly || w.opts.GitDiffMode == GitDiffModeSince
	return func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == w.opts.InputPath {
				return fmt.Errorf("read input directory %q: %w", path, err)
			}
			w.logger.Warn("Error accessing path during walk", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}

		rel, err := filepath.Rel(w.opts.InputPath, path)
		if err != nil {
			w.logger.Warn("Could not calculate relative path", slog.String("path", path), slog.String("error", err.Error()))
			return nil
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}

		isDir := d.IsDir()
		if isDir && (d.Name() == ".git" || w.isOutputDir(path)) {
			return filepath.SkipDir
		}
		if !isDir {
			if _, err := registry.ProfileForExtension(filepath.Ext(rel)); err != nil {
				return nil
			}
		}
		if w.skipVendored(rel, isDir) {
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if ignored, pattern := w.ignores.Match(rel, isDir); ignored {
			w.logger.Debug("Path ignored", slog.String("path", rel), slog.String("pattern", pattern))
			if !isDir {
				w.skip(rel, SkipReasonIgnored, "Matched pattern: "+pattern)
			}
			if isDir {
				return filepath.SkipDir
			}
			return nil
		}
		if isDir {
			return nil
		}

		if hookErr := w.hooks.OnFileDiscovered(rel); hookErr != nil {
			w.logger.Warn("OnFileDiscovered hook failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
		}
		if gitFilter {
			if _, ok := w.opts.GitChangedFiles[rel]; !ok {
				w.skip(rel, SkipReasonGitExclude, fmt.Sprintf("Not changed (git diff mode %s)", w.opts.GitDiffMode))
				return nil
			}
		}

		select {
		case w.workerChan <- path:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// skipVendored applies enry's vendor and dot-file heuristics unless vendored
// paths were requested.
func (w *Walker) skipVendored(rel string, isDir bool) bool {
	if w.opts.IncludeVendored {
		return false
	}
	probe := rel
	if isDir {
		probe += "/"
	}
	if !enry.IsVendor(probe) && !enry.IsDotFile(rel) {
		return false
	}
	w.logger.Debug("Skipping vendored path", slog.String("path", rel))
	if !isDir {
		w.skip(rel, SkipReasonVendored, "Vendored or hidden path")
	}
	return true
}

// isOutputDir keeps scans whose output lives inside the input tree from
// reading their own results.
func (w *Walker) isOutputDir(path string) bool {
	if w.opts.OutputPath == "" {
		return false
	}
	out, err := filepath.Abs(w.opts.OutputPath)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	return err == nil && filepath.Clean(abs) == filepath.Clean(out)
}

func (w *Walker) skip(rel, reason, details string) {
	if hookErr := w.hooks.OnFileStatusUpdate(rel, StatusSkipped, details, 0); hookErr != nil {
		w.logger.Warn("OnFileStatusUpdate hook failed", slog.String("path", rel), slog.String("error", hookErr.Error()))
	}
	w.skipped <- SkippedInfo{Path: rel, Reason: reason, Details: details}
}
