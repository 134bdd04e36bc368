// Package githubcommit commits workspace files through the GitHub Git Data
// API: one tree on top of the branch head, one commit, one ref update.
package githubcommit

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

const fileMode = "100644"

// Adapter implements ports.CommitterPort using the GitHub API. Commits made
// this way are signed by GitHub as the token's identity and never touch the
// local checkout's HEAD.
type Adapter struct {
	client    *github.Client
	owner     string
	repo      string
	workspace string
	logger    *slog.Logger
}

// New creates a new GitHub API committer reading file contents from
// workspace.
func New(client *github.Client, owner, repo, workspace string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client:    client,
		owner:     owner,
		repo:      repo,
		workspace: workspace,
		logger:    logger,
	}
}

// Commit creates one commit on branch containing the current workspace
// content of files. Files missing from the workspace are deleted. The
// branch ref is fast-forwarded, so a concurrent push to the branch makes
// the commit fail rather than overwrite it.
func (a *Adapter) Commit(ctx context.Context, branch string, files []string, message string) (domain.CommitResult, error) {
	ref, _, err := a.client.Git.GetRef(ctx, a.owner, a.repo, "heads/"+branch)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("getting ref heads/%s: %w", branch, err)
	}
	parentSHA := ref.GetObject().GetSHA()

	parent, _, err := a.client.Git.GetCommit(ctx, a.owner, a.repo, parentSHA)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("getting commit %s: %w", parentSHA, err)
	}
	baseTree := parent.GetTree().GetSHA()

	entries, err := a.treeEntries(ctx, files)
	if err != nil {
		return domain.CommitResult{}, err
	}

	tree, _, err := a.client.Git.CreateTree(ctx, a.owner, a.repo, baseTree, entries)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("creating tree: %w", err)
	}
	if tree.GetSHA() == baseTree {
		a.logger.Info("tree unchanged, skipping commit", "branch", branch, "head", parentSHA)
		return domain.CommitResult{SHA: parentSHA}, nil
	}

	commit, _, err := a.client.Git.CreateCommit(ctx, a.owner, a.repo, &github.Commit{
		Message: github.Ptr(message),
		Tree:    &github.Tree{SHA: tree.SHA},
		Parents: []*github.Commit{{SHA: github.Ptr(parentSHA)}},
	}, nil)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("creating commit: %w", err)
	}

	_, _, err = a.client.Git.UpdateRef(ctx, a.owner, a.repo, &github.Reference{
		Ref:    github.Ptr("refs/heads/" + branch),
		Object: &github.GitObject{SHA: commit.SHA},
	}, false)
	if err != nil {
		return domain.CommitResult{}, fmt.Errorf("updating ref heads/%s: %w", branch, err)
	}

	a.logger.Debug("commit created via API", "sha", commit.GetSHA(), "parent", parentSHA, "files", len(files))
	return domain.CommitResult{SHA: commit.GetSHA(), Updated: len(files)}, nil
}

// treeEntries uploads a blob per existing file and emits a deletion entry
// (nil SHA) for each missing one.
func (a *Adapter) treeEntries(ctx context.Context, files []string) ([]*github.TreeEntry, error) {
	entries := make([]*github.TreeEntry, 0, len(files))
	for _, f := range files {
		content, err := os.ReadFile(filepath.Join(a.workspace, filepath.FromSlash(f)))
		if errors.Is(err, fs.ErrNotExist) {
			entries = append(entries, &github.TreeEntry{
				Path: github.Ptr(f),
				Mode: github.Ptr(fileMode),
				Type: github.Ptr("blob"),
			})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", f, err)
		}

		blob, _, err := a.client.Git.CreateBlob(ctx, a.owner, a.repo, &github.Blob{
			Content:  github.Ptr(base64.StdEncoding.EncodeToString(content)),
			Encoding: github.Ptr("base64"),
		})
		if err != nil {
			return nil, fmt.Errorf("creating blob for %s: %w", f, err)
		}

		entries = append(entries, &github.TreeEntry{
			Path: github.Ptr(f),
			Mode: github.Ptr(fileMode),
			Type: github.Ptr("blob"),
			SHA:  blob.SHA,
		})
	}
	return entries, nil
}
