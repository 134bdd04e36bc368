// Package helmcli packages, indexes, lints and resolves charts by shelling
// out to the helm CLI.
package helmcli

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// runFunc executes helm with args and returns its stdout.
type runFunc func(ctx context.Context, args ...string) ([]byte, error)

// Adapter implements ports.PackagerPort, ports.LinterPort and
// ports.DependencyPort. Chart directories are resolved against the
// workspace root.
type Adapter struct {
	helmBin   string
	workspace string
	logger    *slog.Logger
	run       runFunc
}

// New creates a new Helm CLI adapter. It verifies that the helm binary
// is available on PATH at construction time.
func New(workspace string, logger *slog.Logger) (*Adapter, error) {
	helmBin, err := exec.LookPath("helm")
	if err != nil {
		return nil, fmt.Errorf("helm binary not found: %w", err)
	}
	a := &Adapter{helmBin: helmBin, workspace: workspace, logger: logger}
	a.run = a.exec
	return a, nil
}

// PackageAndIndex runs `helm package` into scratchDir followed by
// `helm repo index --url downloadURL` and returns the generated index.
func (a *Adapter) PackageAndIndex(ctx context.Context, chartDir, scratchDir, downloadURL string) (domain.IndexFragment, error) {
	if _, err := a.Package(ctx, chartDir, scratchDir); err != nil {
		return domain.IndexFragment{}, err
	}

	if _, err := a.run(ctx, "repo", "index", scratchDir, "--url", downloadURL); err != nil {
		return domain.IndexFragment{}, err
	}

	content, err := os.ReadFile(filepath.Join(scratchDir, "index.yaml"))
	if err != nil {
		return domain.IndexFragment{}, fmt.Errorf("reading generated index: %w", err)
	}

	var fragment domain.IndexFragment
	if err := yaml.Unmarshal(content, &fragment); err != nil {
		return domain.IndexFragment{}, fmt.Errorf("parsing generated index: %w", err)
	}
	return fragment, nil
}

// Package runs `helm package` and returns the path of the archive it wrote
// to destDir.
func (a *Adapter) Package(ctx context.Context, chartDir, destDir string) (string, error) {
	if _, err := a.run(ctx, "package", a.path(chartDir), "--destination", destDir); err != nil {
		return "", err
	}

	archives, err := filepath.Glob(filepath.Join(destDir, "*.tgz"))
	if err != nil {
		return "", fmt.Errorf("locating chart archive: %w", err)
	}
	if len(archives) != 1 {
		return "", fmt.Errorf("expected one chart archive in %s, found %d", destDir, len(archives))
	}
	return archives[0], nil
}

// Lint runs `helm lint` on the chart.
func (a *Adapter) Lint(ctx context.Context, chartDir string) error {
	_, err := a.run(ctx, "lint", a.path(chartDir))
	return err
}

// UpdateDependencies registers the chart's HTTP dependency repositories
// and runs `helm dependency update`, which rewrites Chart.lock.
func (a *Adapter) UpdateDependencies(ctx context.Context, chartDir string) error {
	repos, err := a.dependencyRepositories(chartDir)
	if err != nil {
		return err
	}
	for _, repo := range repos {
		if _, err := a.run(ctx, "repo", "add", repoName(repo), repo, "--force-update"); err != nil {
			return err
		}
	}

	_, err = a.run(ctx, "dependency", "update", a.path(chartDir))
	return err
}

// dependencyRepositories lists the distinct http(s) repositories named by
// the chart's dependencies. OCI and file references need no registration.
func (a *Adapter) dependencyRepositories(chartDir string) ([]string, error) {
	content, err := os.ReadFile(filepath.Join(a.path(chartDir), domain.ChartFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", domain.ChartFile, err)
	}

	var chart domain.Chart
	if err := yaml.Unmarshal(content, &chart); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", domain.ChartFile, err)
	}

	seen := make(map[string]bool)
	var repos []string
	for _, dep := range chart.Dependencies {
		r := dep.Repository
		if !strings.HasPrefix(r, "http://") && !strings.HasPrefix(r, "https://") {
			continue
		}
		if !seen[r] {
			seen[r] = true
			repos = append(repos, r)
		}
	}
	return repos, nil
}

func (a *Adapter) path(chartDir string) string {
	if filepath.IsAbs(chartDir) {
		return chartDir
	}
	return filepath.Join(a.workspace, chartDir)
}

func (a *Adapter) exec(ctx context.Context, args ...string) ([]byte, error) {
	a.logger.Debug("running helm", "args", args)

	//nolint:gosec // G204: args are built from repository content, not user input
	cmd := exec.CommandContext(ctx, a.helmBin, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("helm %s failed: %w\nstderr: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// repoName derives a stable local repository name from its URL.
func repoName(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "chart-publisher-" + hex.EncodeToString(sum[:4])
}
