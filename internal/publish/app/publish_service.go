package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// PublishSettings configures PublishService.
type PublishSettings struct {
	Branch       string // release target
	ReleaseTitle *domain.Template
	ReleaseNotes *domain.Template
	ScratchRoot  string
	Concurrency  int
}

// PublishService implements ports.PublishUseCase. Each chart version is
// released once; charts whose release (and registry tag, when a registry is
// configured) already exist are skipped.
type PublishService struct {
	charts   ports.ChartReaderPort
	linter   ports.LinterPort
	packager ports.PackagerPort
	releaser ports.ReleaserPort
	registry ports.RegistryPort
	settings PublishSettings
	batch    *batchRunner
	logger   *slog.Logger
}

// NewPublishService creates a PublishService. linter, registry and reporter
// may be nil.
func NewPublishService(
	charts ports.ChartReaderPort,
	linter ports.LinterPort,
	packager ports.PackagerPort,
	releaser ports.ReleaserPort,
	registry ports.RegistryPort,
	reporter ports.ReportingPort,
	settings PublishSettings,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *PublishService {
	return &PublishService{
		charts:   charts,
		linter:   linter,
		packager: packager,
		releaser: releaser,
		registry: registry,
		settings: settings,
		batch:    newBatchRunner("publish", settings.Concurrency, reporter, logger, meter, tracer),
		logger:   logger,
	}
}

// Publish releases every chart directory concurrently. It returns true when
// no chart failed. Nothing is committed, so the error is always nil.
func (s *PublishService) Publish(ctx context.Context, chartDirs []string) (bool, error) {
	if len(chartDirs) == 0 {
		s.logger.Info("no charts to publish")
		return true, nil
	}

	results := s.batch.run(ctx, chartDirs, s.publishChart)
	s.batch.report(ctx, results, nil, nil)
	return domain.NewChangeSet(results).AllSucceeded(), nil
}

func (s *PublishService) publishChart(ctx context.Context, dir string) domain.ChartResult {
	chart, err := s.charts.ReadChart(ctx, dir)
	if err != nil {
		return domain.Failed(dir, domain.Chart{}, fmt.Errorf("reading chart: %w", err))
	}

	tag, err := s.settings.ReleaseTitle.Render(domain.NewReleaseData(chart))
	if err != nil {
		return domain.Failed(dir, chart, err)
	}

	released, err := s.releaser.ReleaseExists(ctx, tag)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("checking release %s: %w", tag, err))
	}

	pushed := true
	if s.registry != nil {
		pushed, err = s.registry.Exists(ctx, chart)
		if err != nil {
			return domain.Failed(dir, chart, fmt.Errorf("checking registry: %w", err))
		}
	}

	if released && pushed {
		return domain.Skipped(dir, chart, "release "+tag+" already published")
	}

	if s.linter != nil {
		if err := s.linter.Lint(ctx, dir); err != nil {
			return domain.Failed(dir, chart, fmt.Errorf("linting chart: %w", err))
		}
	}

	scratch, cleanup, err := scratchDir(s.settings.ScratchRoot, "chart-publisher-release-*", s.logger)
	if err != nil {
		return domain.Failed(dir, chart, err)
	}
	defer cleanup()

	archive, err := s.packager.Package(ctx, dir, scratch)
	if err != nil {
		return domain.Failed(dir, chart, fmt.Errorf("packaging chart: %w", err))
	}

	var published []string

	if !released {
		notes, err := s.settings.ReleaseNotes.Render(domain.NewReleaseData(chart))
		if err != nil {
			return domain.Failed(dir, chart, err)
		}
		release := domain.Release{Tag: tag, Name: tag, Notes: notes, Target: s.settings.Branch}
		if err := s.releaser.CreateRelease(ctx, release, archive); err != nil {
			return domain.Failed(dir, chart, fmt.Errorf("creating release %s: %w", tag, err))
		}
		published = append(published, "release "+tag)
	}

	if !pushed {
		ref, err := s.registry.Push(ctx, chart, archive)
		if err != nil {
			return domain.Failed(dir, chart, fmt.Errorf("pushing to registry: %w", err))
		}
		published = append(published, ref)
	}

	result := domain.Updated(dir, chart)
	result.Detail = strings.Join(published, ", ")
	return result
}
