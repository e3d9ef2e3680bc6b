package codelens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stackvity/codelens/pkg/codelens/git"
)

// FileOutput is the document written for each analyzed file.
type FileOutput struct {
	Path           string `json:"path" yaml:"path"`
	AnalysisResult `yaml:",inline"`
	Git            map[string]string `json:"git,omitempty" yaml:"git,omitempty"`
}

// FileProcessor analyzes one file of a scan and writes its outputs.
type FileProcessor struct {
	opts         *ScanOptions
	analyzer     *Analyzer
	cacheManager cache.Manager
	gitClient    git.Client
	hooks        Hooks
	logger       *slog.Logger
}

// NewFileProcessor creates a FileProcessor.
func NewFileProcessor(opts *ScanOptions, analyzer *Analyzer, cacheMgr cache.Manager, gitClient git.Client, handler slog.Handler) *FileProcessor {
	hooks := opts.EventHooks
	if hooks == nil {
		hooks = &NoOpHooks{}
	}
	return &FileProcessor{
		opts:         opts,
		analyzer:     analyzer,
		cacheManager: cacheMgr,
		gitClient:    gitClient,
		hooks:        hooks,
		logger:       slog.New(handler).With(slog.String("component", "fileProcessor")),
	}
}

// outputFile maps a source path to its result document path.
func (p *FileProcessor) outputFile(relPath string) string {
	return relPath + "." + string(p.opts.OutputFormat)
}

// ProcessFile runs the analysis for absPath. result is a FileInfo,
// SkippedInfo or ErrorInfo; err is non-nil only for failures.
func (p *FileProcessor) ProcessFile(ctx context.Context, absPath string) (result any, status Status, err error) {
	start := time.Now()
	relPath, relErr := filepath.Rel(p.opts.InputPath, absPath)
	if relErr != nil {
		relPath = filepath.Base(absPath)
	}
	relPath = filepath.ToSlash(relPath)
	logArgs := []any{slog.String("path", relPath)}

	defer func() {
		message := ""
		switch r := result.(type) {
		case SkippedInfo:
			message = r.Details
		case ErrorInfo:
			message = r.Error
		}
		if err != nil {
			status = StatusFailed
			if _, ok := result.(ErrorInfo); !ok {
				result = ErrorInfo{Path: relPath, Error: err.Error()}
			}
			message = err.Error()
		}
		level := slog.LevelDebug
		if status == StatusFailed {
			level = slog.LevelError
		}
		d := time.Since(start)
		p.logger.Log(ctx, level, "Processor finished file", append(logArgs, slog.String("status", string(status)), slog.Duration("duration", d), slog.String("message", message))...)
		if hookErr := p.hooks.OnFileStatusUpdate(relPath, status, message, d); hookErr != nil {
			p.logger.Warn("OnFileStatusUpdate hook failed", append(logArgs, slog.String("error", hookErr.Error()))...)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, StatusFailed, err
	}
	if hookErr := p.hooks.OnFileStatusUpdate(relPath, StatusProcessing, "", 0); hookErr != nil {
		p.logger.Warn("OnFileStatusUpdate hook failed", append(logArgs, slog.String("error", hookErr.Error()))...)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrStatFailed, err)
	}
	if info.Size() > int64(p.analyzer.MaxInputBytes()) {
		details := fmt.Sprintf("File size %d bytes > limit %d bytes", info.Size(), p.analyzer.MaxInputBytes())
		return SkippedInfo{Path: relPath, Reason: SkipReasonLarge, Details: details}, StatusSkipped, nil
	}
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, StatusFailed, fmt.Errorf("%w: %w", ErrReadFailed, err)
	}

	outRel := p.outputFile(relPath)
	outAbs := filepath.Join(p.opts.OutputPath, filepath.FromSlash(outRel))
	sourceHash := cache.Fingerprint(string(content))
	settingsHash := p.settingsHash()
	cacheStatus := CacheStatusDisabled

	if p.opts.CacheEnabled {
		cacheStatus = CacheStatusMiss
		if !p.opts.IgnoreCacheRead {
			if hit, outputHash := p.cacheManager.Check(relPath, info.ModTime(), sourceHash, settingsHash); hit {
				if cached, ok := p.cachedOutput(outAbs, outputHash); ok {
					p.logger.Debug("Cache hit", logArgs...)
					return FileInfo{
						Path:        relPath,
						OutputPath:  outRel,
						Language:    cached.Language,
						SizeBytes:   info.Size(),
						ModTime:     info.ModTime(),
						CacheStatus: CacheStatusHit,
						DurationMs:  time.Since(start).Milliseconds(),
					}, StatusCached, nil
				}
				p.logger.Debug("Cache entry has no matching output, reprocessing", logArgs...)
			}
		}
	}

	res, err := p.analyzer.Analyze(ctx, AnalysisRequest{Code: string(content), Filename: relPath})
	switch {
	case errors.Is(err, ErrEmptyInput):
		return SkippedInfo{Path: relPath, Reason: SkipReasonEmpty, Details: "File has no content"}, StatusSkipped, nil
	case errors.Is(err, ErrInputTooLarge):
		return SkippedInfo{Path: relPath, Reason: SkipReasonLarge, Details: err.Error()}, StatusSkipped, nil
	case err != nil:
		return nil, StatusFailed, err
	}

	if res.Meta.Unsupported {
		switch p.opts.BinaryMode {
		case BinaryError:
			return nil, StatusFailed, fmt.Errorf("%w: binary file", ErrUnsupportedContent)
		case BinaryNotice:
		default:
			return SkippedInfo{Path: relPath, Reason: SkipReasonBinary, Details: "Binary file detected"}, StatusSkipped, nil
		}
	}

	doc := FileOutput{Path: relPath, AnalysisResult: res}
	if p.opts.GitMetadataEnabled && p.gitClient != nil {
		meta, gitErr := p.gitClient.FileMetadata(ctx, p.opts.InputPath, absPath)
		if gitErr != nil {
			p.logger.Warn("Git metadata unavailable", append(logArgs, slog.String("error", gitErr.Error()))...)
		} else if len(meta) > 0 {
			doc.Git = meta
		}
	}

	data, err := Encode(doc, p.opts.OutputFormat)
	if err != nil {
		return nil, StatusFailed, err
	}
	if err := writeFile(outAbs, data); err != nil {
		return nil, StatusFailed, err
	}

	fi := FileInfo{
		Path:        relPath,
		OutputPath:  outRel,
		Language:    res.Language,
		Encoding:    res.Meta.Encoding,
		SizeBytes:   info.Size(),
		ModTime:     info.ModTime(),
		CacheStatus: cacheStatus,
		Degraded:    res.Meta.Degraded,
	}
	if p.opts.WriteDocumented && !res.Meta.Unsupported {
		if err := writeFile(filepath.Join(p.opts.OutputPath, filepath.FromSlash(relPath)), []byte(res.DocumentedCode)); err != nil {
			return nil, StatusFailed, err
		}
		fi.DocumentedPath = relPath
	}

	if p.opts.CacheEnabled {
		if err := p.cacheManager.Update(relPath, info.ModTime(), sourceHash, settingsHash, cache.Fingerprint(string(data))); err != nil {
			p.logger.Warn("Cache update failed", append(logArgs, slog.String("error", err.Error()))...)
		}
	}
	fi.DurationMs = time.Since(start).Milliseconds()
	return fi, StatusSuccess, nil
}

// settingsHash covers the analyzer and the options that shape outputs.
func (p *FileProcessor) settingsHash() string {
	return cache.Fingerprint(
		p.analyzer.SettingsHash(),
		string(p.opts.OutputFormat),
		string(p.opts.BinaryMode),
		fmt.Sprintf("%t/%t", p.opts.WriteDocumented, p.opts.GitMetadataEnabled),
	)
}

// cachedOutput reads a previous result document and checks it against the
// fingerprint recorded in the cache.
func (p *FileProcessor) cachedOutput(path, outputHash string) (FileOutput, bool) {
	data, err := os.ReadFile(path)
	if err != nil || cache.Fingerprint(string(data)) != outputHash {
		return FileOutput{}, false
	}
	var out FileOutput
	if err := Decode(data, p.opts.OutputFormat, &out); err != nil {
		return FileOutput{}, false
	}
	if p.opts.WriteDocumented {
		if _, err := os.Stat(filepath.Join(p.opts.OutputPath, filepath.FromSlash(out.Path))); err != nil {
			return FileOutput{}, false
		}
	}
	return out, true
}

// Encode serializes v as JSON (indented, newline-terminated) or YAML.
func Encode(v any, format OutputFormat) ([]byte, error) {
	switch format {
	case OutputFormatYAML:
		data, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return data, nil
	case OutputFormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(data, '\n'), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q", ErrConfigValidation, format)
	}
}

// Decode is the inverse of Encode.
func Decode(data []byte, format OutputFormat, v any) error {
	if format == OutputFormatYAML {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrMkdirFailed, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWriteFailed, err)
	}
	return nil
}
