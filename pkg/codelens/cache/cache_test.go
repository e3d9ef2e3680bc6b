package cache_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stackvity/codelens/pkg/codelens/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestFileManager_RoundTrip(t *testing.T) {
	for _, format := range []string{cache.FormatGob, cache.FormatJSON} {
		t.Run(format, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", cache.FileName)

			w := cache.NewFileManager(nil, "v1.0.0", format)
			require.NoError(t, w.Update("src/a.py", modTime, "h1", "s1", "o1"))
			require.NoError(t, w.Persist(path))

			r := cache.NewFileManager(nil, "v1.0.0", format)
			require.NoError(t, r.Load(path))
			assert.Equal(t, 1, r.Len())

			hit, out := r.Check("src/a.py", modTime, "h1", "s1")
			assert.True(t, hit)
			assert.Equal(t, "o1", out)
		})
	}
}

func TestFileManager_Check(t *testing.T) {
	c := cache.NewFileManager(nil, "v1", "")
	require.NoError(t, c.Update("a.go", modTime, "h", "s", "o"))

	testCases := []struct {
		name    string
		path    string
		modTime time.Time
		source  string
		setting string
		hit     bool
	}{
		{name: "Hit", path: "a.go", modTime: modTime, source: "h", setting: "s", hit: true},
		{name: "UnknownPath", path: "b.go", modTime: modTime, source: "h", setting: "s"},
		{name: "ModTimeChanged", path: "a.go", modTime: modTime.Add(time.Second), source: "h", setting: "s"},
		{name: "ContentChanged", path: "a.go", modTime: modTime, source: "x", setting: "s"},
		{name: "SettingsChanged", path: "a.go", modTime: modTime, source: "h", setting: "x"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hit, _ := c.Check(tc.path, tc.modTime, tc.source, tc.setting)
			assert.Equal(t, tc.hit, hit)
		})
	}
}

func TestFileManager_Load(t *testing.T) {
	t.Run("Missing", func(t *testing.T) {
		c := cache.NewFileManager(nil, "", "")
		require.NoError(t, c.Load(filepath.Join(t.TempDir(), "nope")))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("EmptyAndCorrupt", func(t *testing.T) {
		for _, content := range []string{"", "not a cache"} {
			path := filepath.Join(t.TempDir(), cache.FileName)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			for _, format := range []string{cache.FormatGob, cache.FormatJSON} {
				c := cache.NewFileManager(nil, "", format)
				require.NoError(t, c.Load(path))
				assert.Equal(t, 0, c.Len())
			}
		}
	})

	t.Run("FormatMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), cache.FileName)
		w := cache.NewFileManager(nil, "", cache.FormatJSON)
		require.NoError(t, w.Update("a", modTime, "h", "s", "o"))
		require.NoError(t, w.Persist(path))

		r := cache.NewFileManager(nil, "", cache.FormatGob)
		require.NoError(t, r.Load(path))
		assert.Equal(t, 0, r.Len())
	})

	t.Run("SchemaMismatch", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), cache.FileName)
		raw, err := json.Marshal(map[string]any{
			"header": map[string]string{"schemaVersion": "0", "toolVersion": "dev"},
			"index":  map[string]any{"a": map[string]string{"sourceHash": "h"}},
		})
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(path, raw, 0o644))

		c := cache.NewFileManager(nil, "", cache.FormatJSON)
		require.NoError(t, c.Load(path))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("ToolVersions", func(t *testing.T) {
		testCases := []struct {
			writer, reader string
			kept           bool
		}{
			{writer: "v1", reader: "v1", kept: true},
			{writer: "v1", reader: "v2", kept: false},
			{writer: "dev", reader: "v2", kept: true},
			{writer: "v1", reader: "dev", kept: true},
		}
		for _, tc := range testCases {
			t.Run(tc.writer+"_"+tc.reader, func(t *testing.T) {
				path := filepath.Join(t.TempDir(), cache.FileName)
				w := cache.NewFileManager(nil, tc.writer, "")
				require.NoError(t, w.Update("a", modTime, "h", "s", "o"))
				require.NoError(t, w.Persist(path))

				r := cache.NewFileManager(nil, tc.reader, "")
				require.NoError(t, r.Load(path))
				hit, _ := r.Check("a", modTime, "h", "s")
				assert.Equal(t, tc.kept, hit)
			})
		}
	})

	t.Run("Unreadable", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("permissions are not enforced")
		}
		path := filepath.Join(t.TempDir(), cache.FileName)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o000))
		err := cache.NewFileManager(nil, "", "").Load(path)
		assert.ErrorIs(t, err, cache.ErrCacheLoad)
	})
}

func TestFileManager_PersistEmptyRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), cache.FileName)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	require.NoError(t, cache.NewFileManager(nil, "", "").Persist(path))
	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileManager_PersistError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	c := cache.NewFileManager(nil, "", "")
	require.NoError(t, c.Update("a", modTime, "h", "s", "o"))
	err := c.Persist(filepath.Join(blocker, cache.FileName))
	assert.ErrorIs(t, err, cache.ErrCachePersist)
}

func TestFileManager_ConcurrentUpdates(t *testing.T) {
	c := cache.NewFileManager(nil, "", "")
	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("f%d", i)
			_ = c.Update(path, modTime, "h", "s", "o")
			c.Check(path, modTime, "h", "s")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, c.Len())
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, cache.Fingerprint("a", "b"), cache.Fingerprint("a", "b"))
	assert.NotEqual(t, cache.Fingerprint("ab", ""), cache.Fingerprint("a", "b"))
	assert.NotEmpty(t, cache.Fingerprint())
}

func TestMemory(t *testing.T) {
	m := cache.NewMemory[string](2, time.Hour)
	m.Add("a", "1")
	m.Add("b", "2")
	_, _ = m.Get("a")
	m.Add("c", "3")

	_, ok := m.Get("b")
	assert.False(t, ok, "least recently used entry is evicted")
	v, ok := m.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, 2, m.Len())

	m.Purge()
	assert.Equal(t, 0, m.Len())
}

func TestMemory_Expiry(t *testing.T) {
	m := cache.NewMemory[int](0, 20*time.Millisecond)
	m.Add("k", 1)
	_, ok := m.Get("k")
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := m.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}
