// Package dryruncommit provides a committer that only logs.
package dryruncommit

import (
	"context"
	"log/slog"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Adapter implements ports.CommitterPort without touching the repository.
type Adapter struct {
	logger *slog.Logger
}

// New creates a dry-run committer.
func New(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

// Commit logs the commit that would have been made and reports success.
func (a *Adapter) Commit(_ context.Context, branch string, files []string, message string) (domain.CommitResult, error) {
	a.logger.Info("dry run: would commit",
		"branch", branch,
		"message", message,
		"files", files,
	)
	return domain.CommitResult{Updated: len(files)}, nil
}
