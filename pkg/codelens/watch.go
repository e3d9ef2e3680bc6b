package codelens

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stackvity/codelens/pkg/util"
)

// Watch runs a scan and then re-runs it each time files under the input tree
// change, until ctx ends. Events are coalesced for opts.WatchDebounce. onRun
// receives every scan outcome. Watch returns nil when ctx is cancelled.
func Watch(ctx context.Context, opts ScanOptions, onRun func(Report, error)) error {
	if opts.Logger == nil {
		opts.Logger = slog.DiscardHandler
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "watcher"))
	if err := validateScanOptions(&opts); err != nil {
		return err
	}
	debounce := opts.WatchDebounce
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}
	ignores, err := scanIgnores(&opts)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer fsw.Close()

	w := &treeWatcher{opts: &opts, fsw: fsw, ignores: ignores, logger: logger}
	if err := w.addTree(opts.InputPath); err != nil {
		return err
	}

	run := func() {
		engine, err := NewEngine(ctx, opts)
		if err != nil {
			onRun(Report{}, err)
			return
		}
		onRun(engine.Run())
	}
	run()

	timer := time.NewTimer(debounce)
	timer.Stop()
	pending := false
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("Watch stopped")
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			logger.Debug("Change detected", slog.String("path", event.Name), slog.String("op", event.Op.String()))
			if !pending {
				pending = true
			} else if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", slog.String("error", err.Error()))
		case <-timer.C:
			pending = false
			logger.Info("Re-running scan after changes")
			run()
		}
	}
}

type treeWatcher struct {
	opts    *ScanOptions
	fsw     *fsnotify.Watcher
	ignores util.IgnoreList
	logger  *slog.Logger
}

// addTree watches dir and every directory below it that a scan would visit.
func (w *treeWatcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.opts.InputPath && w.excluded(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Debug("Failed to watch directory", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	})
}

func (w *treeWatcher) excluded(path string, isDir bool) bool {
	if w.within(path, w.opts.OutputPath) {
		return true
	}
	rel, err := filepath.Rel(w.opts.InputPath, path)
	if err != nil {
		return true
	}
	rel = filepath.ToSlash(rel)
	if rel == ".git" || strings.HasPrefix(rel, ".git/") {
		return true
	}
	ignored, _ := w.ignores.Match(rel, isDir)
	return ignored
}

func (w *treeWatcher) within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// relevant filters events down to changes a scan would see and starts
// watching new directories.
func (w *treeWatcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	info, err := os.Stat(event.Name)
	isDir := err == nil && info.IsDir()
	if w.excluded(event.Name, isDir) {
		return false
	}
	if isDir && event.Has(fsnotify.Create) {
		if err := w.addTree(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
			w.logger.Debug("Failed to watch new directory", slog.String("path", event.Name), slog.String("error", err.Error()))
		}
	}
	return true
}
