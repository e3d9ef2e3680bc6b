package codelens_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/codelens/pkg/codelens"
)

type runRecorder struct {
	mu      sync.Mutex
	reports []codelens.Report
	errs    []error
}

func (r *runRecorder) record(report codelens.Report, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
	r.errs = append(r.errs, err)
}

func (r *runRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *runRecorder) last() (codelens.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports[len(r.reports)-1], r.errs[len(r.errs)-1]
}

func TestWatch_RerunsOnChange(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	opts.WatchDebounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &runRecorder{}
	done := make(chan error, 1)
	go func() { done <- codelens.Watch(ctx, opts, rec.record) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	report, err := rec.last()
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.ProcessedCount)

	require.NoError(t, os.MkdirAll(filepath.Join(opts.InputPath, "pkg"), 0o755))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(opts.InputPath, "pkg", "b.go"), []byte(goSrc), 0o644))

	require.Eventually(t, func() bool {
		if rec.count() < 2 {
			return false
		}
		report, err := rec.last()
		return err == nil && report.Summary.ProcessedCount == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}
}

func TestWatch_IgnoresOutputDirectory(t *testing.T) {
	opts := scanFixture(t, map[string]string{"a.py": addPy})
	opts.OutputPath = filepath.Join(opts.InputPath, "out")
	opts.WatchDebounce = 50 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec := &runRecorder{}
	done := make(chan error, 1)
	go func() { done <- codelens.Watch(ctx, opts, rec.record) }()

	require.Eventually(t, func() bool { return rec.count() == 1 }, 5*time.Second, 10*time.Millisecond)
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 1, rec.count(), "writing results must not trigger another scan")

	cancel()
	assert.NoError(t, <-done)
}

func TestWatch_InvalidOptions(t *testing.T) {
	err := codelens.Watch(context.Background(), codelens.ScanOptions{}, func(codelens.Report, error) {})
	assert.ErrorIs(t, err, codelens.ErrConfigValidation)
}
