// Package gitrepo runs git against a local checkout: staging, committing,
// pushing and diffing commit ranges.
package gitrepo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// Identity is the author and committer recorded on commits.
type Identity struct {
	Name  string
	Email string
}

// DefaultIdentity is the identity GitHub shows as github-actions[bot].
var DefaultIdentity = Identity{
	Name:  "github-actions[bot]",
	Email: "41898282+github-actions[bot]@users.noreply.github.com",
}

// GitRepo wraps the git CLI for a single checkout. Commands are serialized.
type GitRepo struct {
	localPath string
	identity  Identity
	logger    *slog.Logger

	mu sync.Mutex
}

// New creates a GitRepo for the checkout at localPath. No I/O is performed.
func New(localPath string, identity Identity, logger *slog.Logger) *GitRepo {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if identity.Name == "" {
		identity = DefaultIdentity
	}
	return &GitRepo{
		localPath: localPath,
		identity:  identity,
		logger:    logger,
	}
}

// Path returns the local filesystem path of the checkout.
func (r *GitRepo) Path() string {
	return r.localPath
}

// CommitAndPush stages files (including deletions), commits them and pushes
// HEAD to branch on origin. It returns the new commit SHA, or "" when the
// files had no staged changes and nothing was committed.
func (r *GitRepo) CommitAndPush(ctx context.Context, branch string, files []string, message string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.run(ctx, append([]string{"add", "-A", "--"}, files...)...); err != nil {
		return "", err
	}

	// diff --cached --quiet exits 1 when something is staged. Both the check
	// and the commit are limited to files so entries staged by earlier
	// workflow steps stay out of the commit.
	_, err := r.run(ctx, append([]string{"diff", "--cached", "--quiet", "--"}, files...)...)
	if err == nil {
		r.logger.Info("no staged changes, skipping commit", "files", files)
		return "", nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		return "", err
	}

	commitArgs := []string{
		"-c", "user.name=" + r.identity.Name,
		"-c", "user.email=" + r.identity.Email,
		"commit", "--no-verify", "-m", message, "--",
	}
	if _, err := r.run(ctx, append(commitArgs, files...)...); err != nil {
		return "", err
	}

	sha, err := r.run(ctx, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}

	if _, err := r.run(ctx, "push", "origin", "HEAD:refs/heads/"+branch); err != nil {
		return "", err
	}

	return strings.TrimSpace(string(sha)), nil
}

// ChangedFiles lists the paths changed between base and head. A base commit
// missing from a shallow checkout is fetched first.
func (r *GitRepo) ChangedFiles(ctx context.Context, base, head string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rev := range []string{base, head} {
		if err := r.ensureCommit(ctx, rev); err != nil {
			return nil, err
		}
	}

	out, err := r.run(ctx, "diff", "--name-only", "--no-renames", base, head)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// ensureCommit fetches rev from origin when it is not present locally.
func (r *GitRepo) ensureCommit(ctx context.Context, rev string) error {
	if _, err := r.run(ctx, "cat-file", "-e", rev+"^{commit}"); err == nil {
		return nil
	}
	r.logger.Debug("commit not in checkout, fetching", "rev", rev)
	if _, err := r.run(ctx, "fetch", "--no-tags", "--depth=1", "origin", rev); err != nil {
		return fmt.Errorf("fetching %s: %w", rev, err)
	}
	return nil
}

// run executes git in the checkout. The returned error wraps the
// *exec.ExitError so callers can inspect the exit code.
func (r *GitRepo) run(ctx context.Context, args ...string) ([]byte, error) {
	//nolint:gosec // G204: args are built internally, not from user input
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", r.localPath}, args...)...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s failed: %w\noutput: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
