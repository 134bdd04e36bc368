package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stretchr/testify/mock"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/nathantilsley/chart-publisher/internal/platform/logger"
	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

var (
	testLogger = logger.New("error")
	testMeter  = noopmetric.NewMeterProvider().Meter("test")
	testTracer = nooptrace.NewTracerProvider().Tracer("test")

	testCommitMessage = domain.MustParseTemplate("commit message", "chore(github-action): update {{ .Type }}")
	testReleaseTitle  = domain.MustParseTemplate("release title", "{{ .Name }}-{{ .Version }}")
	testReleaseNotes  = domain.MustParseTemplate("release notes", "{{ .Description }}")
)

const testBaseURL = "https://github.com/acme/charts/releases/download"

// fakeCharts serves Chart.yaml descriptors from memory.
type fakeCharts struct {
	charts  map[string]domain.Chart // dir -> descriptor
	errs    map[string]error
	listErr error
}

func (f *fakeCharts) ReadChart(_ context.Context, dir string) (domain.Chart, error) {
	if err := f.errs[dir]; err != nil {
		return domain.Chart{}, err
	}
	c, ok := f.charts[dir]
	if !ok {
		return domain.Chart{}, domain.NewNotFoundError(domain.ChartFile, dir)
	}
	return c, nil
}

func (f *fakeCharts) ListCharts(_ context.Context, _ string) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	dirs := make([]string, 0, len(f.charts))
	for d := range f.charts {
		dirs = append(dirs, d)
	}
	slices.Sort(dirs)
	return dirs, nil
}

// memMetadataStore keeps metadata files in memory.
type memMetadataStore struct {
	mu      sync.Mutex
	files   map[string]*domain.ChartMetadata
	readErr map[string]error
	writes  []string
}

func newMemMetadataStore() *memMetadataStore {
	return &memMetadataStore{files: make(map[string]*domain.ChartMetadata)}
}

func (s *memMetadataStore) ReadMetadata(_ context.Context, dir string) (*domain.ChartMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.readErr[dir]; err != nil {
		return nil, err
	}
	return s.files[dir], nil
}

func (s *memMetadataStore) WriteMetadata(_ context.Context, dir string, meta domain.ChartMetadata) (domain.FileChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[dir] = &meta
	s.writes = append(s.writes, dir)
	return domain.FileChange{
		Path:  domain.MetadataPath(dir),
		After: []byte(fmt.Sprint(meta.Entries)),
	}, nil
}

func (s *memMetadataStore) written() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := slices.Clone(s.writes)
	slices.Sort(out)
	return out
}

// fakePackager emulates helm package + helm repo index. It checks that the
// scratch directory it is given exists and records it for later inspection.
type fakePackager struct {
	charts map[string]domain.Chart
	fail   map[string]error
	delay  time.Duration

	mu       sync.Mutex
	scratch  []string
	packaged []string

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (p *fakePackager) enter() func() {
	n := p.inFlight.Add(1)
	for {
		m := p.maxInFlight.Load()
		if n <= m || p.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	return func() { p.inFlight.Add(-1) }
}

func (p *fakePackager) PackageAndIndex(_ context.Context, dir, scratch, downloadURL string) (domain.IndexFragment, error) {
	defer p.enter()()

	p.mu.Lock()
	p.scratch = append(p.scratch, scratch)
	p.packaged = append(p.packaged, dir)
	p.mu.Unlock()

	if _, err := os.Stat(scratch); err != nil {
		return domain.IndexFragment{}, fmt.Errorf("scratch dir missing: %w", err)
	}
	if err := p.fail[dir]; err != nil {
		return domain.IndexFragment{}, err
	}
	chart := p.charts[dir]
	archive := filepath.Join(scratch, chart.ArchiveName())
	if err := os.WriteFile(archive, []byte("tgz"), 0o644); err != nil {
		return domain.IndexFragment{}, err
	}
	return domain.IndexFragment{
		APIVersion: "v1",
		Entries: map[string][]domain.VersionEntry{
			chart.Name: {{
				Version: chart.Version,
				URLs:    []string{downloadURL + "/" + chart.ArchiveName()},
				Extra:   map[string]any{"digest": "sha256:" + chart.Name},
			}},
		},
	}, nil
}

func (p *fakePackager) Package(_ context.Context, dir, destDir string) (string, error) {
	defer p.enter()()

	p.mu.Lock()
	p.scratch = append(p.scratch, destDir)
	p.packaged = append(p.packaged, dir)
	p.mu.Unlock()

	if err := p.fail[dir]; err != nil {
		return "", err
	}
	archive := filepath.Join(destDir, p.charts[dir].ArchiveName())
	return archive, os.WriteFile(archive, []byte("tgz"), 0o644)
}

func (p *fakePackager) calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := slices.Clone(p.packaged)
	slices.Sort(out)
	return out
}

func (p *fakePackager) scratchDirs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.scratch)
}

// mockCommitter is a testify mock for ports.CommitterPort.
type mockCommitter struct {
	mock.Mock
}

func (m *mockCommitter) Commit(_ context.Context, branch string, files []string, message string) (domain.CommitResult, error) {
	args := m.Called(branch, files, message)
	return args.Get(0).(domain.CommitResult), args.Error(1)
}

// recordingReporter captures reports.
type recordingReporter struct {
	mu      sync.Mutex
	reports []domain.Report
}

func (r *recordingReporter) Report(_ context.Context, rep domain.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, rep)
	return nil
}

type mockDiff struct{}

func (mockDiff) ComputeDiff(baseName, headName string, base, head []byte) string {
	if string(base) == string(head) {
		return ""
	}
	return fmt.Sprintf("--- %s\n+++ %s\n-%s\n+%s", baseName, headName, base, head)
}

// chartSet builds matching descriptors for fakeCharts and fakePackager.
func chartSet(nameVersions ...string) map[string]domain.Chart {
	charts := make(map[string]domain.Chart)
	for i := 0; i+1 < len(nameVersions); i += 2 {
		name, version := nameVersions[i], nameVersions[i+1]
		charts["charts/"+name] = domain.Chart{
			APIVersion:  "v2",
			Name:        name,
			Version:     version,
			Description: name + " chart",
		}
	}
	return charts
}

func metadataWith(name string, versions ...string) *domain.ChartMetadata {
	entries := make([]domain.VersionEntry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, domain.VersionEntry{
			Version: v,
			URLs:    []string{testBaseURL + "/" + name + "-" + v + "/" + name + "-" + v + ".tgz"},
		})
	}
	return &domain.ChartMetadata{Entries: map[string][]domain.VersionEntry{name: entries}}
}

func entryVersions(entries []domain.VersionEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Version)
	}
	return out
}
