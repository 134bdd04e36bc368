// Package ociregistry pushes packaged charts to an OCI registry in the
// layout helm push uses.
package ociregistry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content/memory"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Media types defined by Helm for charts stored in OCI registries.
const (
	ConfigMediaType     = "application/vnd.cncf.helm.config.v1+json"
	ChartLayerMediaType = "application/vnd.cncf.helm.chart.content.v1.tar.gz"
)

// Config describes the registry charts are pushed to. Charts land at
// <Host>/<Namespace>/<chart name>:<chart version>.
type Config struct {
	Host      string
	Namespace string
	Username  string
	Password  string
	PlainHTTP bool
}

// TargetFunc opens the repository holding the named chart.
type TargetFunc func(ctx context.Context, repository string) (oras.Target, error)

// Adapter implements ports.RegistryPort.
type Adapter struct {
	host      string
	namespace string
	target    TargetFunc
	logger    *slog.Logger
}

// New creates an adapter pushing to a remote registry with static
// credentials.
func New(cfg Config, logger *slog.Logger) *Adapter {
	client := &auth.Client{
		Client: retry.DefaultClient,
		Cache:  auth.NewCache(),
	}
	if cfg.Username != "" || cfg.Password != "" {
		client.Credential = auth.StaticCredential(cfg.Host, auth.Credential{
			Username: cfg.Username,
			Password: cfg.Password,
		})
	}

	target := func(_ context.Context, repository string) (oras.Target, error) {
		repo, err := remote.NewRepository(repository)
		if err != nil {
			return nil, fmt.Errorf("opening repository %s: %w", repository, err)
		}
		repo.Client = client
		repo.PlainHTTP = cfg.PlainHTTP
		return repo, nil
	}
	return NewWithTarget(cfg.Host, cfg.Namespace, target, logger)
}

// NewWithTarget creates an adapter that resolves repositories with target.
func NewWithTarget(host, namespace string, target TargetFunc, logger *slog.Logger) *Adapter {
	return &Adapter{
		host:      host,
		namespace: strings.Trim(namespace, "/"),
		target:    target,
		logger:    logger,
	}
}

// Exists reports whether the chart version is already tagged in the registry.
func (a *Adapter) Exists(ctx context.Context, chart domain.Chart) (bool, error) {
	target, err := a.target(ctx, a.repository(chart))
	if err != nil {
		return false, err
	}
	_, err = target.Resolve(ctx, tag(chart.Version))
	if errors.Is(err, errdef.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resolving %s: %w", a.reference(chart), err)
	}
	return true, nil
}

// Push uploads the chart archive with a Helm config blob and returns the
// pushed reference.
func (a *Adapter) Push(ctx context.Context, chart domain.Chart, archivePath string) (string, error) {
	archive, err := os.ReadFile(archivePath)
	if err != nil {
		return "", fmt.Errorf("reading chart archive: %w", err)
	}
	config, err := json.Marshal(chart)
	if err != nil {
		return "", fmt.Errorf("encoding chart config: %w", err)
	}

	store := memory.New()
	configDesc, err := oras.PushBytes(ctx, store, ConfigMediaType, config)
	if err != nil {
		return "", fmt.Errorf("staging config: %w", err)
	}
	layerDesc, err := oras.PushBytes(ctx, store, ChartLayerMediaType, archive)
	if err != nil {
		return "", fmt.Errorf("staging chart layer: %w", err)
	}

	manifestDesc, err := oras.PackManifest(ctx, store, oras.PackManifestVersion1_1, "", oras.PackManifestOptions{
		Layers:           []ocispec.Descriptor{layerDesc},
		ConfigDescriptor: &configDesc,
		ManifestAnnotations: map[string]string{
			ocispec.AnnotationTitle:       chart.Name,
			ocispec.AnnotationVersion:     chart.Version,
			ocispec.AnnotationDescription: chart.Description,
		},
	})
	if err != nil {
		return "", fmt.Errorf("packing manifest: %w", err)
	}

	ref := tag(chart.Version)
	if err := store.Tag(ctx, manifestDesc, ref); err != nil {
		return "", fmt.Errorf("tagging manifest: %w", err)
	}

	target, err := a.target(ctx, a.repository(chart))
	if err != nil {
		return "", err
	}
	if _, err := oras.Copy(ctx, store, ref, target, ref, oras.DefaultCopyOptions); err != nil {
		return "", fmt.Errorf("pushing %s: %w", a.reference(chart), err)
	}

	a.logger.Info("chart pushed", "reference", a.reference(chart), "digest", manifestDesc.Digest.String())
	return a.reference(chart), nil
}

func (a *Adapter) repository(chart domain.Chart) string {
	return path.Join(a.host, a.namespace, chart.Name)
}

func (a *Adapter) reference(chart domain.Chart) string {
	return a.repository(chart) + ":" + tag(chart.Version)
}

// tag maps a chart version to an OCI tag. Tags cannot contain "+", so
// build metadata is joined with "_" as helm does.
func tag(version string) string {
	return strings.ReplaceAll(version, "+", "_")
}
