// Package githubrelease publishes chart archives as GitHub releases.
package githubrelease

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Adapter implements ports.ReleaserPort using the GitHub Releases API.
type Adapter struct {
	client *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// New creates a new GitHub release adapter.
func New(client *github.Client, owner, repo string, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: client,
		owner:  owner,
		repo:   repo,
		logger: logger,
	}
}

// ReleaseExists reports whether a release tagged tag exists.
func (a *Adapter) ReleaseExists(ctx context.Context, tag string) (bool, error) {
	_, resp, err := a.client.Repositories.GetReleaseByTag(ctx, a.owner, a.repo, tag)
	if err != nil {
		if isNotFound(resp, err) {
			return false, nil
		}
		return false, fmt.Errorf("getting release %s: %w", tag, err)
	}
	return true, nil
}

// CreateRelease creates the release and uploads assetPath to it. If the
// upload fails the release is deleted again, so a retry starts clean.
func (a *Adapter) CreateRelease(ctx context.Context, release domain.Release, assetPath string) error {
	created, _, err := a.client.Repositories.CreateRelease(ctx, a.owner, a.repo, &github.RepositoryRelease{
		TagName:         github.Ptr(release.Tag),
		Name:            github.Ptr(release.Name),
		Body:            github.Ptr(release.Notes),
		TargetCommitish: github.Ptr(release.Target),
	})
	if err != nil {
		return fmt.Errorf("creating release %s: %w", release.Tag, err)
	}

	if err := a.uploadAsset(ctx, created.GetID(), assetPath); err != nil {
		if _, derr := a.client.Repositories.DeleteRelease(ctx, a.owner, a.repo, created.GetID()); derr != nil {
			a.logger.Warn("failed to delete release after upload failure",
				"tag", release.Tag, "releaseID", created.GetID(), "error", derr)
		}
		return err
	}

	a.logger.Info("release created", "tag", release.Tag, "url", created.GetHTMLURL())
	return nil
}

func (a *Adapter) uploadAsset(ctx context.Context, releaseID int64, assetPath string) error {
	f, err := os.Open(assetPath)
	if err != nil {
		return fmt.Errorf("opening asset: %w", err)
	}
	defer f.Close()

	name := filepath.Base(assetPath)
	_, _, err = a.client.Repositories.UploadReleaseAsset(ctx, a.owner, a.repo, releaseID,
		&github.UploadOptions{Name: name}, f)
	if err != nil {
		return fmt.Errorf("uploading asset %s: %w", name, err)
	}
	return nil
}

func isNotFound(resp *github.Response, err error) bool {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return true
	}
	var ghErr *github.ErrorResponse
	return errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound
}
