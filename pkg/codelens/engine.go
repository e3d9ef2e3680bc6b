package codelens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stackvity/codelens/pkg/codelens/cache"
)

// Engine runs one batch scan: a walker feeds a bounded pool of workers whose
// results are gathered by a single aggregator.
type Engine struct {
	opts          *ScanOptions
	logger        *slog.Logger
	analyzer      *Analyzer
	cacheManager  cache.Manager
	processor     *FileProcessor
	aggregator    *reportAggregator
	ctx           context.Context
	cancelFunc    context.CancelFunc
	concurrency   int
	fatalOccurred atomic.Bool
}

// NewEngine validates opts, resolves default dependencies, loads the cache
// and, for git diff modes, the changed-file set.
func NewEngine(ctx context.Context, opts ScanOptions) (*Engine, error) {
	if opts.Logger == nil {
		opts.Logger = slog.DiscardHandler
	}
	if opts.EventHooks == nil {
		opts.EventHooks = &NoOpHooks{}
	}
	logger := slog.New(opts.Logger).With(slog.String("component", "engine"))

	if err := validateScanOptions(&opts); err != nil {
		logger.Error("Invalid scan options", slog.String("error", err.Error()))
		return nil, err
	}
	info, err := os.Stat(opts.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot access input path %q: %w", ErrConfigValidation, opts.InputPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: input path %q is not a directory", ErrConfigValidation, opts.InputPath)
	}
	if err := os.MkdirAll(opts.OutputPath, 0o755); err != nil {
		return nil, fmt.Errorf("%w: cannot create output directory %q: %w", ErrConfigValidation, opts.OutputPath, err)
	}

	analyzer := opts.AnalyzerInstance
	if analyzer == nil {
		if opts.Analyzer.Logger == nil {
			opts.Analyzer.Logger = opts.Logger
		}
		if analyzer, err = NewAnalyzer(opts.Analyzer); err != nil {
			return nil, err
		}
	}

	cacheMgr := resolveCache(&opts, logger)

	if opts.GitDiffMode == GitDiffModeDiffOnly || opts.GitDiffMode == GitDiffModeSince {
		if opts.GitClient == nil {
			return nil, fmt.Errorf("%w: git diff mode %q requires a git client", ErrConfigValidation, opts.GitDiffMode)
		}
		files, err := opts.GitClient.ChangedFiles(ctx, opts.InputPath, string(opts.GitDiffMode), opts.GitSinceRef)
		if err != nil {
			return nil, err
		}
		opts.GitChangedFiles = make(map[string]struct{}, len(files))
		for _, f := range files {
			opts.GitChangedFiles[f] = struct{}{}
		}
		logger.Debug("Git filter loaded", slog.String("mode", string(opts.GitDiffMode)), slog.Int("files", len(files)))
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
		opts.Concurrency = concurrency
	}

	engineCtx, cancel := context.WithCancel(ctx)
	return &Engine{
		opts:         &opts,
		logger:       logger,
		analyzer:     analyzer,
		cacheManager: cacheMgr,
		aggregator:   newReportAggregator(),
		ctx:          engineCtx,
		cancelFunc:   cancel,
		concurrency:  concurrency,
	}, nil
}

func validateScanOptions(opts *ScanOptions) error {
	if opts.InputPath == "" {
		return fmt.Errorf("%w: input path cannot be empty", ErrConfigValidation)
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("%w: output path cannot be empty", ErrConfigValidation)
	}
	if opts.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency cannot be negative", ErrConfigValidation)
	}
	if opts.OnErrorMode == "" {
		opts.OnErrorMode = DefaultOnErrorMode
	}
	if opts.OnErrorMode != OnErrorContinue && opts.OnErrorMode != OnErrorStop {
		return fmt.Errorf("%w: invalid onError mode %q", ErrConfigValidation, opts.OnErrorMode)
	}
	if opts.BinaryMode == "" {
		opts.BinaryMode = DefaultBinaryMode
	}
	switch opts.BinaryMode {
	case BinarySkip, BinaryNotice, BinaryError:
	default:
		return fmt.Errorf("%w: invalid binary mode %q", ErrConfigValidation, opts.BinaryMode)
	}
	if opts.OutputFormat == "" {
		opts.OutputFormat = DefaultOutputFormat
	}
	if opts.OutputFormat != OutputFormatJSON && opts.OutputFormat != OutputFormatYAML {
		return fmt.Errorf("%w: invalid output format %q", ErrConfigValidation, opts.OutputFormat)
	}
	if opts.GitDiffMode == "" {
		opts.GitDiffMode = GitDiffModeNone
	}
	switch opts.GitDiffMode {
	case GitDiffModeNone, GitDiffModeDiffOnly:
	case GitDiffModeSince:
		if opts.GitSinceRef == "" {
			return fmt.Errorf("%w: git diff mode %q requires a reference", ErrConfigValidation, opts.GitDiffMode)
		}
	default:
		return fmt.Errorf("%w: invalid git diff mode %q", ErrConfigValidation, opts.GitDiffMode)
	}
	var err error
	if opts.InputPath, err = filepath.Abs(opts.InputPath); err != nil {
		return fmt.Errorf("%w: input path: %w", ErrConfigValidation, err)
	}
	if opts.OutputPath, err = filepath.Abs(opts.OutputPath); err != nil {
		return fmt.Errorf("%w: output path: %w", ErrConfigValidation, err)
	}
	return nil
}

// resolveCache picks the cache manager for a run. Load problems are logged
// and leave the run with an empty cache.
func resolveCache(opts *ScanOptions, logger *slog.Logger) cache.Manager {
	if !opts.CacheEnabled {
		return &NoOpCacheManager{}
	}
	if opts.CacheFilePath == "" {
		opts.CacheFilePath = filepath.Join(opts.OutputPath, cache.FileName)
	}
	if opts.ClearCache {
		if err := os.Remove(opts.CacheFilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Failed to clear cache file", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		}
	}
	if opts.CacheManager != nil {
		return opts.CacheManager
	}
	version := opts.AppVersion
	if version == "" {
		version = "dev"
	}
	mgr := cache.NewFileManager(opts.Logger, version, opts.CacheFormat)
	if err := mgr.Load(opts.CacheFilePath); err != nil {
		logger.Warn("Failed to load cache, starting empty", slog.String("path", opts.CacheFilePath), slog.String("error", err.Error()))
		return cache.NewFileManager(opts.Logger, version, opts.CacheFormat)
	}
	return mgr
}

// Run executes the scan. The returned Report is complete even when err is
// non-nil.
func (e *Engine) Run() (report Report, err error) {
	start := time.Now()
	e.logger.Info("Starting scan", slog.String("input", e.opts.InputPath), slog.Int("concurrency", e.concurrency), slog.Bool("cacheEnabled", e.opts.CacheEnabled))

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Panic recovered during scan", slog.Any("panicValue", r))
			e.fatalOccurred.Store(true)
			err = fmt.Errorf("%w: panic during scan: %v", ErrAnalysisFailed, r)
		}
		e.cancelFunc()

		if e.opts.CacheEnabled {
			if persistErr := e.cacheManager.Persist(e.opts.CacheFilePath); persistErr != nil {
				e.logger.Error("Failed to persist cache", slog.String("path", e.opts.CacheFilePath), slog.String("error", persistErr.Error()))
				if err == nil {
					err = persistErr
				}
			}
		}

		report = e.aggregator.report(e.opts, start, e.fatalOccurred.Load())
		e.logger.Info("Scan finished",
			slog.Duration("duration", time.Since(start)),
			slog.Int("processed", report.Summary.ProcessedCount),
			slog.Int("cached", report.Summary.CachedCount),
			slog.Int("skipped", report.Summary.SkippedCount),
			slog.Int("errors", report.Summary.ErrorCount))
		if hookErr := e.opts.EventHooks.OnRunComplete(report); hookErr != nil {
			e.logger.Warn("OnRunComplete hook failed", slog.String("error", hookErr.Error()))
		}
	}()

	e.processor = NewFileProcessor(e.opts, e.analyzer, e.cacheManager, e.opts.GitClient, e.opts.Logger)

	workerChan := make(chan string, e.concurrency)
	resultsChan := make(chan any, e.concurrency)

	walker, err := NewWalker(e.opts, workerChan, resultsChan, e.opts.Logger)
	if err != nil {
		e.fatalOccurred.Store(true)
		return Report{}, fmt.Errorf("%w: %w", ErrConfigValidation, err)
	}

	var wg sync.WaitGroup
	for i := range e.concurrency {
		wg.Add(1)
		go e.worker(&wg, i, workerChan, resultsChan)
	}

	aggregatorDone := make(chan struct{})
	go e.aggregate(resultsChan, aggregatorDone)

	walkErr := walker.StartWalk(e.ctx)
	wg.Wait()
	close(resultsChan)
	<-aggregatorDone

	switch {
	case e.fatalOccurred.Load():
		if first := e.aggregator.firstFatal(); first != nil {
			return Report{}, fmt.Errorf("processing stopped: %w", first)
		}
		return Report{}, errors.New("processing stopped due to fatal error")
	case e.ctx.Err() != nil:
		return Report{}, e.ctx.Err()
	case walkErr != nil:
		e.fatalOccurred.Store(true)
		return Report{}, walkErr
	}
	return Report{}, nil
}

func (e *Engine) worker(wg *sync.WaitGroup, id int, workerChan <-chan string, resultsChan chan<- any) {
	defer wg.Done()
	logger := e.logger.With(slog.Int("workerID", id))
	for path := range workerChan {
		result := e.process(logger, path)
		resultsChan <- result
	}
}

// process handles one file, converting panics and errors into ErrorInfo.
// Under OnErrorStop the first failure cancels the run.
func (e *Engine) process(logger *slog.Logger, path string) (result any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in worker", slog.String("path", path), slog.Any("panicValue", r))
			rel, relErr := filepath.Rel(e.opts.InputPath, path)
			if relErr != nil {
				rel = path
			}
			result = ErrorInfo{Path: filepath.ToSlash(rel), Error: fmt.Sprintf("panic: %v", r), IsFatal: true}
			e.stop()
		}
	}()

	if e.ctx.Err() != nil {
		return nil
	}
	res, status, err := e.processor.ProcessFile(e.ctx, path)
	if err == nil {
		return res
	}
	if e.ctx.Err() != nil && errors.Is(err, e.ctx.Err()) {
		return nil
	}
	info, _ := res.(ErrorInfo)
	info.IsFatal = status == StatusFailed && e.opts.OnErrorMode == OnErrorStop
	if info.IsFatal {
		logger.Info("Fatal file error, stopping scan", slog.String("path", info.Path), slog.String("error", err.Error()))
		e.stop()
	}
	return info
}

func (e *Engine) stop() {
	e.fatalOccurred.Store(true)
	e.cancelFunc()
}

func (e *Engine) aggregate(resultsChan <-chan any, done chan<- struct{}) {
	defer close(done)
	for result := range resultsChan {
		switch r := result.(type) {
		case nil:
		case FileInfo:
			e.aggregator.addProcessed(r)
		case SkippedInfo:
			e.aggregator.addSkipped(r)
		case ErrorInfo:
			e.aggregator.addError(r)
		default:
			e.logger.Warn("Aggregator received unknown result type", slog.String("type", fmt.Sprintf("%T", result)))
		}
	}
}

// reportAggregator collects per-file results. Only the aggregator goroutine
// writes to it; the mutex guards reads from Run.
type reportAggregator struct {
	mu        sync.Mutex
	processed []FileInfo
	skipped   []SkippedInfo
	errors    []ErrorInfo
}

func newReportAggregator() *reportAggregator {
	return &reportAggregator{}
}

func (a *reportAggregator) addProcessed(info FileInfo) {
	a.mu.Lock()
	a.processed = append(a.processed, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addSkipped(info SkippedInfo) {
	a.mu.Lock()
	a.skipped = append(a.skipped, info)
	a.mu.Unlock()
}

func (a *reportAggregator) addError(info ErrorInfo) {
	a.mu.Lock()
	a.errors = append(a.errors, info)
	a.mu.Unlock()
}

func (a *reportAggregator) firstFatal() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.errors {
		if e.IsFatal {
			return fmt.Errorf("fatal error processing %q: %s", e.Path, e.Error)
		}
	}
	return nil
}

func (a *reportAggregator) report(opts *ScanOptions, start time.Time, fatal bool) Report {
	a.mu.Lock()
	defer a.mu.Unlock()

	processed := append([]FileInfo{}, a.processed...)
	skipped := append([]SkippedInfo{}, a.skipped...)
	errs := append([]ErrorInfo{}, a.errors...)
	sort.Slice(processed, func(i, j int) bool { return processed[i].Path < processed[j].Path })
	sort.Slice(skipped, func(i, j int) bool { return skipped[i].Path < skipped[j].Path })
	sort.Slice(errs, func(i, j int) bool { return errs[i].Path < errs[j].Path })

	languages := make(map[string]int)
	cached, degraded := 0, 0
	for _, f := range processed {
		languages[f.Language]++
		if f.CacheStatus == CacheStatusHit {
			cached++
		}
		if f.Degraded {
			degraded++
		}
	}

	return Report{
		Summary: ReportSummary{
			InputPath:          opts.InputPath,
			OutputPath:         opts.OutputPath,
			ProfileUsed:        opts.ProfileName,
			ConfigFilePath:     opts.ConfigFilePath,
			TotalFilesScanned:  len(processed) + len(skipped) + len(errs),
			ProcessedCount:     len(processed),
			CachedCount:        cached,
			SkippedCount:       len(skipped),
			ErrorCount:         len(errs),
			DegradedCount:      degraded,
			Languages:          languages,
			FatalErrorOccurred: fatal,
			DurationSeconds:    time.Since(start).Seconds(),
			CacheEnabled:       opts.CacheEnabled,
			Concurrency:        opts.Concurrency,
			Timestamp:          time.Now().UTC(),
			SchemaVersion:      ReportSchemaVersion,
		},
		ProcessedFiles: processed,
		SkippedFiles:   skipped,
		Errors:         errs,
	}
}
