// Package gitcommit commits and diffs through the git CLI in the workspace
// checkout.
package gitcommit

import (
	"context"
	"log/slog"

	"github.com/nathantilsley/chart-publisher/internal/platform/gitrepo"
	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Adapter implements ports.CommitterPort and ports.ChangedFilesPort on top
// of a local checkout. It needs push credentials configured for origin,
// which actions/checkout provides.
type Adapter struct {
	repo   *gitrepo.GitRepo
	logger *slog.Logger
}

// New creates a new git CLI adapter.
func New(repo *gitrepo.GitRepo, logger *slog.Logger) *Adapter {
	return &Adapter{
		repo:   repo,
		logger: logger,
	}
}

// Commit stages files, commits them and pushes to branch. When git finds
// nothing to commit the result has an empty SHA and zero files.
func (a *Adapter) Commit(ctx context.Context, branch string, files []string, message string) (domain.CommitResult, error) {
	sha, err := a.repo.CommitAndPush(ctx, branch, files, message)
	if err != nil {
		return domain.CommitResult{}, err
	}
	if sha == "" {
		return domain.CommitResult{}, nil
	}

	a.logger.Debug("commit pushed", "sha", sha, "branch", branch, "files", len(files))
	return domain.CommitResult{SHA: sha, Updated: len(files)}, nil
}

// ChangedFiles implements ports.ChangedFilesPort with git diff.
func (a *Adapter) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	return a.repo.ChangedFiles(ctx, base, head)
}
