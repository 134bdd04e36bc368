// Package argoapps keeps the Argo CD Application manifest stored next to a
// chart pointed at the chart's current version.
package argoapps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// DefaultFileName is the manifest looked up in each chart directory.
const DefaultFileName = "application.yaml"

// Adapter implements ports.ApplicationPort by editing manifests in place
// through the YAML node tree, so comments and key order survive.
type Adapter struct {
	root     string
	fileName string
	logger   *slog.Logger
}

// New creates an adapter resolving chart directories against root.
func New(root, fileName string, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if fileName == "" {
		fileName = DefaultFileName
	}
	return &Adapter{root: root, fileName: fileName, logger: logger}
}

// SyncApplication sets spec.source.targetRevision to the chart version in
// every Application document of the manifest. Sources that reference a chart
// by name also get spec.source.chart set. Documents of any other kind are
// left alone.
func (a *Adapter) SyncApplication(_ context.Context, chartDir string, chart domain.Chart) (domain.FileChange, bool, error) {
	rel := path.Join(filepath.ToSlash(chartDir), a.fileName)
	abs := filepath.Join(a.root, filepath.FromSlash(rel))

	//nolint:gosec // G304: path is built from the chart directory and configured file name
	before, err := os.ReadFile(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.FileChange{}, false, nil
	}
	if err != nil {
		return domain.FileChange{}, false, fmt.Errorf("reading %s: %w", rel, err)
	}

	docs, err := decodeDocuments(before)
	if err != nil {
		return domain.FileChange{}, false, fmt.Errorf("parsing %s: %w", rel, err)
	}

	apps, changed := 0, false
	for _, doc := range docs {
		app, ok := application(doc)
		if !ok {
			continue
		}
		apps++
		if updateSources(app, chart) {
			changed = true
		}
	}
	if apps == 0 {
		a.logger.Debug("manifest has no Application documents", "path", rel)
		return domain.FileChange{}, false, nil
	}
	if !changed {
		return domain.FileChange{}, false, nil
	}

	after, err := encodeDocuments(docs)
	if err != nil {
		return domain.FileChange{}, false, fmt.Errorf("encoding %s: %w", rel, err)
	}
	if err := writeFile(abs, after); err != nil {
		return domain.FileChange{}, false, fmt.Errorf("writing %s: %w", rel, err)
	}

	a.logger.Info("application manifest updated", "path", rel, "chart", chart.Name, "version", chart.Version)
	return domain.FileChange{Path: rel, Before: before, After: after}, true, nil
}

// writeFile replaces target through a temporary sibling and a rename,
// keeping the permissions of the file it replaces.
func writeFile(target string, content []byte) error {
	info, err := os.Stat(target)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), info.Mode().Perm()); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}

func decodeDocuments(data []byte) ([]*yaml.Node, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	var docs []*yaml.Node
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return docs, nil
		}
		if err != nil {
			return nil, err
		}
		docs = append(docs, &doc)
	}
}

func encodeDocuments(docs []*yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	for _, doc := range docs {
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// application returns the top-level mapping of doc when it is an
// Application resource.
func application(doc *yaml.Node) (*yaml.Node, bool) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, false
	}
	root := doc.Content[0]
	kind := mappingValue(root, "kind")
	if kind == nil || kind.Value != "Application" {
		return nil, false
	}
	return root, true
}

// updateSources rewrites spec.source and any spec.sources entry naming this
// chart. It reports whether a value changed.
func updateSources(app *yaml.Node, chart domain.Chart) bool {
	spec := mappingValue(app, "spec")
	if spec == nil {
		return false
	}

	changed := false
	if source := mappingValue(spec, "source"); source != nil && source.Kind == yaml.MappingNode {
		if name := mappingValue(source, "chart"); name != nil && setScalar(name, chart.Name) {
			changed = true
		}
		if setField(source, "targetRevision", chart.Version) {
			changed = true
		}
	}

	if sources := mappingValue(spec, "sources"); sources != nil && sources.Kind == yaml.SequenceNode {
		for _, source := range sources.Content {
			name := mappingValue(source, "chart")
			if name == nil || name.Value != chart.Name {
				continue
			}
			if setField(source, "targetRevision", chart.Version) {
				changed = true
			}
		}
	}
	return changed
}

// mappingValue returns the value node stored under key, or nil.
func mappingValue(m *yaml.Node, key string) *yaml.Node {
	if m == nil || m.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

// setField sets key to a string scalar, appending the key when missing.
func setField(m *yaml.Node, key, value string) bool {
	if v := mappingValue(m, key); v != nil {
		return setScalar(v, value)
	}
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
	return true
}

// setScalar stores value as a string scalar. A scalar already holding the
// same text counts as unchanged whatever its tag, so an unquoted
// "targetRevision: 1.0" is not rewritten on every run.
func setScalar(n *yaml.Node, value string) bool {
	if n.Kind == yaml.ScalarNode && n.Value == value {
		return false
	}
	n.Kind = yaml.ScalarNode
	n.Tag = "!!str"
	n.Value = value
	n.Content = nil
	return true
}
