// Package testutil provides testify mocks for the codelens interfaces and
// small filesystem helpers for tests.
package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/stackvity/codelens/pkg/codelens"
	"github.com/stackvity/codelens/pkg/codelens/language"
)

type MockCacheManager struct {
	mock.Mock
}

func (m *MockCacheManager) Load(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

func (m *MockCacheManager) Check(relPath string, modTime time.Time, sourceHash, settingsHash string) (hit bool, outputHash string) {
	args := m.Called(relPath, modTime, sourceHash, settingsHash)
	hit, _ = args.Get(0).(bool)
	outputHash, _ = args.Get(1).(string)
	return
}

func (m *MockCacheManager) Update(relPath string, modTime time.Time, sourceHash, settingsHash, outputHash string) error {
	args := m.Called(relPath, modTime, sourceHash, settingsHash, outputHash)
	return args.Error(0)
}

func (m *MockCacheManager) Persist(cachePath string) error {
	args := m.Called(cachePath)
	return args.Error(0)
}

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, text, filenameHint string) (guesses []language.Guess, err error) {
	args := m.Called(ctx, text, filenameHint)
	guesses, _ = args.Get(0).([]language.Guess)
	err = args.Error(1)
	return
}

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt, excerpt string) (text string, err error) {
	args := m.Called(ctx, prompt, excerpt)
	text, _ = args.Get(0).(string)
	err = args.Error(1)
	return
}

type MockGitClient struct {
	mock.Mock
}

func (m *MockGitClient) ChangedFiles(ctx context.Context, repoPath, mode, ref string) (files []string, err error) {
	args := m.Called(ctx, repoPath, mode, ref)
	files, _ = args.Get(0).([]string)
	err = args.Error(1)
	return
}

func (m *MockGitClient) FileMetadata(ctx context.Context, repoPath, filePath string) (meta map[string]string, err error) {
	args := m.Called(ctx, repoPath, filePath)
	meta, _ = args.Get(0).(map[string]string)
	err = args.Error(1)
	return
}

// MockHooks records hook calls. Tests usually set broad expectations with
// mock.Anything since workers report in any order.
type MockHooks struct {
	mock.Mock
}

func (m *MockHooks) OnFileDiscovered(path string) error {
	args := m.Called(path)
	return args.Error(0)
}

func (m *MockHooks) OnFileStatusUpdate(path string, status codelens.Status, message string, duration time.Duration) error {
	args := m.Called(path, status, message, duration)
	return args.Error(0)
}

func (m *MockHooks) OnRunComplete(report codelens.Report) error {
	args := m.Called(report)
	return args.Error(0)
}
