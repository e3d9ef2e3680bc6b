// Package git declares the changed-file discovery interface used by batch
// scans.
package git

import (
	"context"
	"errors"
	"fmt"
)

// ErrGitOperation marks a failed repository operation: the path is not a
// repository, a reference does not resolve, or the backend failed.
var ErrGitOperation = errors.New("git operation failed")

// Client reports files changed in a repository.
type Client interface {
	// ChangedFiles returns slash-separated paths relative to repoPath, which
	// may be any directory inside a worktree. mode is "diffOnly" (staged and
	// unstaged changes, untracked excluded) or "since" (changes between ref
	// and HEAD).
	ChangedFiles(ctx context.Context, repoPath, mode, ref string) ([]string, error)

	// FileMetadata describes the last commit touching filePath. A file
	// outside any repository yields an empty map and no error.
	FileMetadata(ctx context.Context, repoPath, filePath string) (map[string]string, error)
}

// Errorf returns a formatted error wrapping ErrGitOperation.
func Errorf(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrGitOperation}, args...)...)
}
