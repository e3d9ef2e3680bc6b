// Package git implements the changed-file and metadata lookups behind
// `codelens scan --git-diff-mode` with go-git.
package git

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/stackvity/codelens/pkg/codelens"
	lensgit "github.com/stackvity/codelens/pkg/codelens/git"
)

// GoGitClient implements lensgit.Client on top of go-git.
type GoGitClient struct {
	logger *slog.Logger
}

// NewGoGitClient creates a GoGitClient logging through handler.
func NewGoGitClient(handler slog.Handler) *GoGitClient {
	if handler == nil {
		handler = slog.DiscardHandler
	}
	return &GoGitClient{
		logger: slog.New(handler).With(slog.String("component", "gitClient"), slog.String("backend", "go-git")),
	}
}

func (c *GoGitClient) openRepo(repoPath string) (*git.Repository, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, lensgit.Errorf("absolute path for %q: %w", repoPath, err)
	}
	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, lensgit.Errorf("no repository at or above %q: %w", abs, err)
		}
		return nil, lensgit.Errorf("open repository %q: %w", abs, err)
	}
	return repo, nil
}

func (c *GoGitClient) resolveRevision(repo *git.Repository, ref string) (*plumbing.Hash, error) {
	hash, err := repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		c.logger.Error("Failed to resolve revision", slog.String("ref", ref), slog.Any("error", err))
		if errors.Is(err, plumbing.ErrReferenceNotFound) || errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, lensgit.Errorf("invalid reference %q: %w", ref, err)
		}
		return nil, lensgit.Errorf("resolve reference %q: %w", ref, err)
	}
	return hash, nil
}

// ChangedFiles implements lensgit.Client.
func (c *GoGitClient) ChangedFiles(ctx context.Context, repoPath, mode, ref string) ([]string, error) {
	logArgs := []any{slog.String("repo", repoPath), slog.String("mode", mode), slog.String("ref", ref)}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := c.openRepo(repoPath)
	if err != nil {
		c.logger.Error("Failed to open repository", append(logArgs, slog.Any("error", err))...)
		return nil, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, lensgit.Errorf("worktree of %q: %w", repoPath, err)
	}
	prefix, err := scopePrefix(worktree.Filesystem.Root(), repoPath)
	if err != nil {
		return nil, err
	}

	changed := make(map[string]struct{})
	switch mode {
	case string(codelens.GitDiffModeDiffOnly):
		status, err := worktree.Status()
		if err != nil {
			return nil, lensgit.Errorf("status of %q: %w", repoPath, err)
		}
		for path, fs := range status {
			untracked := fs.Staging == git.Untracked && fs.Worktree == git.Untracked
			if untracked || (fs.Staging == git.Unmodified && fs.Worktree == git.Unmodified) {
				continue
			}
			changed[filepath.ToSlash(path)] = struct{}{}
			c.logger.Debug("Changed file", append(logArgs, slog.String("path", path),
				slog.String("status", fmt.Sprintf("%c%c", fs.Staging, fs.Worktree)))...)
		}

	case string(codelens.GitDiffModeSince):
		if ref == "" {
			return nil, lensgit.Errorf("mode %q requires a reference", mode)
		}
		head, err := repo.Head()
		if err != nil {
			if errors.Is(err, plumbing.ErrReferenceNotFound) {
				c.logger.Warn("HEAD not found, repository has no commits", logArgs...)
				return []string{}, nil
			}
			return nil, lensgit.Errorf("HEAD of %q: %w", repoPath, err)
		}
		headCommit, err := repo.CommitObject(head.Hash())
		if err != nil {
			return nil, lensgit.Errorf("HEAD commit of %q: %w", repoPath, err)
		}
		sinceHash, err := c.resolveRevision(repo, ref)
		if err != nil {
			return nil, err
		}
		sinceCommit, err := repo.CommitObject(*sinceHash)
		if err != nil {
			return nil, lensgit.Errorf("commit %q: %w", ref, err)
		}
		patch, err := sinceCommit.PatchContext(ctx, headCommit)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, lensgit.Errorf("diff %q..HEAD: %w", ref, err)
		}
		for _, fp := range patch.FilePatches() {
			from, to := fp.Files()
			switch {
			case to != nil:
				changed[filepath.ToSlash(to.Path())] = struct{}{}
			case from != nil:
				changed[filepath.ToSlash(from.Path())] = struct{}{}
			}
		}

	default:
		return nil, lensgit.Errorf("unsupported diff mode %q", mode)
	}

	files := make([]string, 0, len(changed))
	for path := range changed {
		if prefix == "" {
			files = append(files, path)
		} else if rel, ok := strings.CutPrefix(path, prefix+"/"); ok {
			files = append(files, rel)
		}
	}
	slices.Sort(files)
	c.logger.Debug("Changed files resolved", append(logArgs, slog.Int("count", len(files)))...)
	return files, nil
}

// scopePrefix returns repoPath relative to the worktree root, empty for the
// root itself.
func scopePrefix(root, repoPath string) (string, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return "", lensgit.Errorf("absolute path for %q: %w", repoPath, err)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", lensgit.Errorf("%q is outside worktree %q: %w", repoPath, root, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == "." {
		return "", nil
	}
	return rel, nil
}

// FileMetadata implements lensgit.Client. Missing history is not an error.
func (c *GoGitClient) FileMetadata(ctx context.Context, repoPath, filePath string) (map[string]string, error) {
	logArgs := []any{slog.String("repo", repoPath), slog.String("file", filePath)}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	repo, err := c.openRepo(repoPath)
	if err != nil {
		c.logger.Debug("Skipping git metadata", append(logArgs, slog.Any("error", err))...)
		return map[string]string{}, nil
	}
	worktree, err := repo.Worktree()
	if err != nil {
		c.logger.Debug("Skipping git metadata", append(logArgs, slog.Any("error", err))...)
		return map[string]string{}, nil
	}

	absFile, err := filepath.Abs(filePath)
	if err != nil {
		return map[string]string{}, nil
	}
	rel, err := filepath.Rel(worktree.Filesystem.Root(), absFile)
	if err != nil || strings.HasPrefix(filepath.Clean(rel), "..") {
		c.logger.Debug("File is outside the worktree", logArgs...)
		return map[string]string{}, nil
	}
	rel = filepath.ToSlash(rel)

	iter, err := repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		c.logger.Debug("No log for file", append(logArgs, slog.Any("error", err))...)
		return map[string]string{}, nil
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		if !errors.Is(err, io.EOF) && !errors.Is(err, storer.ErrStop) {
			c.logger.Debug("Failed to read log", append(logArgs, slog.Any("error", err))...)
		}
		return map[string]string{}, nil
	}
	return metadata(commit), nil
}

func metadata(commit *object.Commit) map[string]string {
	return map[string]string{
		"commit":      commit.Hash.String(),
		"author":      commit.Author.Name,
		"authorEmail": commit.Author.Email,
		"dateISO":     commit.Author.When.UTC().Format(time.RFC3339),
		"dateUnix":    fmt.Sprintf("%d", commit.Author.When.Unix()),
	}
}

var _ lensgit.Client = (*GoGitClient)(nil)
