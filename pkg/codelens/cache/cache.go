// Package cache holds the result caches: a file-backed index that lets batch
// scans skip unchanged files, and an expiring in-memory LRU for repeated
// requests.
package cache

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// FileName is the name of the index file written into the output directory.
const FileName = ".codelens.cache"

// SchemaVersion is the version of the index layout. Indexes written with a
// different version are discarded on Load.
const SchemaVersion = "1"

const (
	FormatGob     = "gob"
	FormatJSON    = "json"
	DefaultFormat = FormatGob
)

// devVersion matches any tool version.
const devVersion = "dev"

var (
	ErrCacheLoad    = errors.New("failed to load cache index")
	ErrCachePersist = errors.New("failed to persist cache index")
)

// Entry is the state recorded for one analyzed file.
type Entry struct {
	SourceModTime time.Time `json:"sourceModTime"`
	SourceHash    string    `json:"sourceHash"`
	// SettingsHash fingerprints the analyzer settings that shaped the output.
	SettingsHash  string `json:"settingsHash"`
	OutputHash    string `json:"outputHash"`
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type header struct {
	SchemaVersion string `json:"schemaVersion"`
	ToolVersion   string `json:"toolVersion"`
}

type jsonFile struct {
	Header header           `json:"header"`
	Index  map[string]Entry `json:"index"`
}

// Manager loads, queries and persists a cache index.
//
// Load treats a missing, empty, corrupt or outdated index as empty and only
// fails on I/O errors. Update must be safe for concurrent use.
type Manager interface {
	Load(path string) error
	Check(relPath string, modTime time.Time, sourceHash, settingsHash string) (hit bool, outputHash string)
	Update(relPath string, modTime time.Time, sourceHash, settingsHash, outputHash string) error
	Persist(path string) error
}

// FileManager is a Manager persisted as a single gob or JSON file.
type FileManager struct {
	mu          sync.RWMutex
	index       map[string]Entry
	logger      *slog.Logger
	toolVersion string
	format      string
}

// NewFileManager creates a FileManager. An unknown format selects gob and an
// empty toolVersion selects "dev".
func NewFileManager(handler slog.Handler, toolVersion, format string) *FileManager {
	if handler == nil {
		handler = slog.DiscardHandler
	}
	format = strings.ToLower(format)
	if format != FormatJSON && format != FormatGob {
		format = DefaultFormat
	}
	if toolVersion == "" {
		toolVersion = devVersion
	}
	return &FileManager{
		index:       make(map[string]Entry),
		logger:      slog.New(handler).With(slog.String("component", "cacheManager"), slog.String("format", format)),
		toolVersion: toolVersion,
		format:      format,
	}
}

func (c *FileManager) compatible(schema, tool string) bool {
	if schema != SchemaVersion {
		return false
	}
	return c.toolVersion == devVersion || tool == devVersion || tool == c.toolVersion
}

// Load implements Manager.
func (c *FileManager) Load(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index = make(map[string]Entry)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			c.logger.Debug("Cache file not found, starting empty", slog.String("path", path))
			return nil
		}
		return fmt.Errorf("%w: open %s: %w", ErrCacheLoad, path, err)
	}
	defer f.Close()

	var (
		h     header
		index map[string]Entry
	)
	if c.format == FormatJSON {
		var data jsonFile
		err = json.NewDecoder(f).Decode(&data)
		h, index = data.Header, data.Index
	} else {
		dec := gob.NewDecoder(f)
		if err = dec.Decode(&h); err == nil {
			err = dec.Decode(&index)
		}
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			c.logger.Warn("Cache file unreadable, treating as miss", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}
	if !c.compatible(h.SchemaVersion, h.ToolVersion) {
		c.logger.Warn("Cache file version mismatch, invalidating",
			slog.String("path", path), slog.String("schema", h.SchemaVersion), slog.String("tool", h.ToolVersion))
		return nil
	}
	if index != nil {
		c.index = index
	}
	c.logger.Debug("Cache loaded", slog.String("path", path), slog.Int("entries", len(c.index)))
	return nil
}

// Check implements Manager.
func (c *FileManager) Check(relPath string, modTime time.Time, sourceHash, settingsHash string) (bool, string) {
	c.mu.RLock()
	e, ok := c.index[relPath]
	c.mu.RUnlock()

	switch {
	case !ok:
		return false, ""
	case !c.compatible(e.SchemaVersion, e.ToolVersion):
		return false, ""
	case !e.SourceModTime.Equal(modTime), e.SourceHash != sourceHash, e.SettingsHash != settingsHash:
		c.logger.Debug("Cache miss", slog.String("path", relPath))
		return false, ""
	}
	return true, e.OutputHash
}

// Update implements Manager.
func (c *FileManager) Update(relPath string, modTime time.Time, sourceHash, settingsHash, outputHash string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.index[relPath] = Entry{
		SourceModTime: modTime,
		SourceHash:    sourceHash,
		SettingsHash:  settingsHash,
		OutputHash:    outputHash,
		SchemaVersion: SchemaVersion,
		ToolVersion:   c.toolVersion,
	}
	return nil
}

// Len returns the number of entries in the index.
func (c *FileManager) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.index)
}

// Persist implements Manager. The index is written to a temporary file which
// is then renamed over path. An empty index removes path instead.
func (c *FileManager) Persist(path string) error {
	c.mu.RLock()
	index := maps.Clone(c.index)
	c.mu.RUnlock()

	if len(index) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			c.logger.Warn("Failed to remove empty cache file", slog.String("path", path), slog.String("error", err.Error()))
		}
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrCachePersist, dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary file in %s: %w", ErrCachePersist, dir, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if _, statErr := os.Stat(tmpPath); statErr == nil {
			_ = os.Remove(tmpPath)
		}
	}()

	h := header{SchemaVersion: SchemaVersion, ToolVersion: c.toolVersion}
	if c.format == FormatJSON {
		enc := json.NewEncoder(tmp)
		enc.SetIndent("", "  ")
		err = enc.Encode(jsonFile{Header: h, Index: index})
	} else {
		enc := gob.NewEncoder(tmp)
		if err = enc.Encode(h); err == nil {
			err = enc.Encode(index)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: encode %s index: %w", ErrCachePersist, c.format, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %w", ErrCachePersist, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("%w: rename %s to %s: %w", ErrCachePersist, tmpPath, path, err)
	}
	c.logger.Debug("Cache persisted", slog.String("path", path), slog.Int("entries", len(index)))
	return nil
}

// Fingerprint returns the hex xxhash of parts, each length-prefixed so that
// different splits of the same bytes differ.
func Fingerprint(parts ...string) string {
	d := xxhash.New()
	for _, p := range parts {
		_, _ = d.WriteString(strconv.Itoa(len(p)))
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(p)
	}
	return strconv.FormatUint(d.Sum64(), 16)
}
