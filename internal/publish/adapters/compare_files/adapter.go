// Package comparefiles lists the files changed by a push through the GitHub
// compare API.
package comparefiles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/go-github/v68/github"
)

// Adapter implements ports.ChangedFilesPort by comparing two commits with
// the GitHub API. It needs no local history, so shallow checkouts work.
type Adapter struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// New creates a new compare API adapter.
func New(client *github.Client, owner, repo string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// ChangedFiles returns every path touched between base and head. Renamed
// files contribute both their old and new path.
func (a *Adapter) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	var changed []string
	opts := &github.ListOptions{PerPage: 100}

	for {
		cmp, resp, err := a.client.Repositories.CompareCommits(ctx, a.owner, a.repo, base, head, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s...%s: %w", base, head, err)
		}

		for _, f := range cmp.Files {
			changed = append(changed, f.GetFilename())
			if prev := f.GetPreviousFilename(); prev != "" {
				changed = append(changed, prev)
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	a.logger.Debug("found changed files in push", "base", base, "head", head, "count", len(changed))
	return changed, nil
}
