package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// Commit kinds passed to the commit message template as {{ .Type }}.
const (
	KindMetadata    = "metadata"
	KindIndex       = "index"
	KindLock        = "lock"
	KindApplication = "application"
)

// CommitGate persists the files changed by a batch as a single commit, or
// does nothing when the batch changed nothing.
type CommitGate struct {
	committer ports.CommitterPort
	branch    string
	message   *domain.Template
	logger    *slog.Logger
}

// NewCommitGate creates a CommitGate committing to branch with messages
// rendered from message.
func NewCommitGate(committer ports.CommitterPort, branch string, message *domain.Template, logger *slog.Logger) *CommitGate {
	return &CommitGate{
		committer: committer,
		branch:    branch,
		message:   message,
		logger:    logger,
	}
}

// CommitIfChanged commits files in one commit. An empty list is a
// successful no-op and returns a nil result. A commit failure is returned
// as is; callers treat it as fatal for the whole batch.
func (g *CommitGate) CommitIfChanged(ctx context.Context, files []string, kind string) (*domain.CommitResult, error) {
	if len(files) == 0 {
		g.logger.Info("nothing to commit", "type", kind)
		return nil, nil
	}

	files = slices.Clone(files)
	slices.Sort(files)
	files = slices.Compact(files)

	message, err := g.message.Render(domain.CommitData{Type: kind})
	if err != nil {
		return nil, err
	}

	g.logger.Info("committing changes", "type", kind, "branch", g.branch, "files", files)
	res, err := g.committer.Commit(ctx, g.branch, files, message)
	if err != nil {
		return nil, fmt.Errorf("committing %d %s file(s) to %s: %w", len(files), kind, g.branch, err)
	}

	g.logger.Info("changes committed", "type", kind, "sha", res.SHA, "updated", res.Updated)
	return &res, nil
}
