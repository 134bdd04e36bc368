// Package chartfs reads and writes chart repository files in the workspace
// checkout: Chart.yaml, metadata.yaml, Chart.lock and the repository index.
package chartfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Adapter implements ports.ChartReaderPort, ports.MetadataStorePort,
// ports.IndexStorePort and ports.LockStorePort on the local filesystem.
// All paths it accepts and returns are relative to the workspace root.
type Adapter struct {
	root string
}

// New creates a filesystem adapter rooted at the workspace checkout.
func New(root string) *Adapter {
	return &Adapter{root: root}
}

// ReadChart parses the Chart.yaml in chartDir.
func (a *Adapter) ReadChart(_ context.Context, chartDir string) (domain.Chart, error) {
	content, err := a.read(path.Join(chartDir, domain.ChartFile))
	if err != nil {
		return domain.Chart{}, err
	}
	if content == nil {
		return domain.Chart{}, domain.NewNotFoundError(domain.ChartFile, chartDir)
	}

	var chart domain.Chart
	if err := yaml.Unmarshal(content, &chart); err != nil {
		return domain.Chart{}, fmt.Errorf("unmarshal %s: %w", domain.ChartFile, err)
	}
	if chart.Name == "" {
		return domain.Chart{}, errors.New("chart name is empty")
	}
	if chart.Version == "" {
		return domain.Chart{}, errors.New("chart version is empty")
	}
	return chart, nil
}

// ListCharts returns every direct subdirectory of chartsDir that holds a
// Chart.yaml, sorted. A missing chartsDir yields no charts.
func (a *Adapter) ListCharts(_ context.Context, chartsDir string) ([]string, error) {
	entries, err := os.ReadDir(a.abs(chartsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", chartsDir, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		dir := path.Join(path.Clean(chartsDir), e.Name())
		if _, err := os.Stat(a.abs(path.Join(dir, domain.ChartFile))); err == nil {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs, nil
}

// ReadMetadata implements ports.MetadataStorePort.
func (a *Adapter) ReadMetadata(_ context.Context, chartDir string) (*domain.ChartMetadata, error) {
	content, err := a.read(domain.MetadataPath(chartDir))
	if err != nil || content == nil {
		return nil, err
	}

	var meta domain.ChartMetadata
	if err := yaml.Unmarshal(content, &meta); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", domain.MetadataPath(chartDir), err)
	}
	return &meta, nil
}

// WriteMetadata implements ports.MetadataStorePort.
func (a *Adapter) WriteMetadata(_ context.Context, chartDir string, meta domain.ChartMetadata) (domain.FileChange, error) {
	return a.writeYAML(domain.MetadataPath(chartDir), meta)
}

// ReadIndex implements ports.IndexStorePort.
func (a *Adapter) ReadIndex(_ context.Context, indexPath string) (*domain.RepositoryIndex, error) {
	content, err := a.read(indexPath)
	if err != nil || content == nil {
		return nil, err
	}

	var idx domain.RepositoryIndex
	if err := yaml.Unmarshal(content, &idx); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", indexPath, err)
	}
	return &idx, nil
}

// WriteIndex implements ports.IndexStorePort.
func (a *Adapter) WriteIndex(_ context.Context, indexPath string, idx domain.RepositoryIndex) (domain.FileChange, error) {
	return a.writeYAML(indexPath, idx)
}

// ReadLock implements ports.LockStorePort.
func (a *Adapter) ReadLock(_ context.Context, chartDir string) ([]byte, *domain.LockDigest, error) {
	content, err := a.read(domain.LockPath(chartDir))
	if err != nil || content == nil {
		return nil, nil, err
	}

	var digest domain.LockDigest
	if err := yaml.Unmarshal(content, &digest); err != nil {
		return nil, nil, fmt.Errorf("unmarshal %s: %w", domain.LockPath(chartDir), err)
	}
	return content, &digest, nil
}

// RestoreLock implements ports.LockStorePort.
func (a *Adapter) RestoreLock(_ context.Context, chartDir string, content []byte) error {
	return a.write(domain.LockPath(chartDir), content)
}

// read returns the file content, or nil without error when it does not exist.
func (a *Adapter) read(rel string) ([]byte, error) {
	content, err := os.ReadFile(a.abs(rel))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", rel, err)
	}
	return content, nil
}

func (a *Adapter) writeYAML(rel string, v any) (domain.FileChange, error) {
	before, err := a.read(rel)
	if err != nil {
		return domain.FileChange{}, err
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return domain.FileChange{}, fmt.Errorf("encoding %s: %w", rel, err)
	}
	if err := enc.Close(); err != nil {
		return domain.FileChange{}, fmt.Errorf("encoding %s: %w", rel, err)
	}

	if err := a.write(rel, buf.Bytes()); err != nil {
		return domain.FileChange{}, err
	}
	return domain.FileChange{Path: rel, Before: before, After: buf.Bytes()}, nil
}

// write replaces the file through a temporary sibling and a rename so a
// crash never leaves a half-written file behind.
func (a *Adapter) write(rel string, content []byte) error {
	target := a.abs(rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("writing %s: %w", rel, err)
	}
	return nil
}

func (a *Adapter) abs(rel string) string {
	return filepath.Join(a.root, filepath.FromSlash(rel))
}
