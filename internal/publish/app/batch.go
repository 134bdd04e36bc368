package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// chartFunc processes a single chart directory. It never returns an error:
// failures are carried in the result.
type chartFunc func(ctx context.Context, dir string) domain.ChartResult

// batchRunner fans per-chart work out over a bounded set of goroutines and
// waits for every task to settle. One failing chart never cancels its
// siblings.
type batchRunner struct {
	operation string
	limit     int
	reporter  ports.ReportingPort
	logger    *slog.Logger
	tracer    trace.Tracer
	charts    metric.Int64Counter
}

func newBatchRunner(
	operation string,
	limit int,
	reporter ports.ReportingPort,
	logger *slog.Logger,
	meter metric.Meter,
	tracer trace.Tracer,
) *batchRunner {
	var counter metric.Int64Counter = noopmetric.Int64Counter{}
	if meter != nil {
		c, err := meter.Int64Counter(
			"chart_publisher.charts",
			metric.WithDescription("Charts processed, by operation and status"),
		)
		if err != nil {
			logger.Warn("failed to create chart counter", "error", err)
		} else {
			counter = c
		}
	}
	return &batchRunner{
		operation: operation,
		limit:     limit,
		reporter:  reporter,
		logger:    logger,
		tracer:    tracer,
		charts:    counter,
	}
}

// run invokes fn for every directory and returns the results in input order.
// Each task writes only its own slot, so no locking is needed.
func (b *batchRunner) run(ctx context.Context, dirs []string, fn chartFunc) []domain.ChartResult {
	results := make([]domain.ChartResult, len(dirs))

	var g errgroup.Group
	if b.limit > 0 {
		g.SetLimit(b.limit)
	}

	for i, dir := range dirs {
		g.Go(func() error {
			ctx, span := b.tracer.Start(ctx, b.operation+" chart",
				trace.WithAttributes(attribute.String("chart.dir", dir)),
			)
			defer span.End()

			r := b.call(ctx, dir, fn)

			span.SetAttributes(attribute.String("chart.status", r.Status.String()))
			if r.Err != nil {
				span.RecordError(r.Err)
				span.SetStatus(codes.Error, r.Err.Error())
			}
			b.observe(ctx, r)

			results[i] = r
			return nil
		})
	}
	_ = g.Wait()

	b.summarize(results)
	return results
}

// record observes results that were produced without run.
func (b *batchRunner) record(ctx context.Context, results []domain.ChartResult) {
	for _, r := range results {
		b.observe(ctx, r)
	}
	b.summarize(results)
}

func (b *batchRunner) observe(ctx context.Context, r domain.ChartResult) {
	b.charts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", b.operation),
		attribute.String("status", r.Status.String()),
	))
	b.log(r)
}

func (b *batchRunner) summarize(results []domain.ChartResult) {
	updated, skipped, failed := domain.CountByStatus(results)
	b.logger.Info("batch finished",
		"operation", b.operation,
		"charts", len(results),
		"updated", updated,
		"skipped", skipped,
		"failed", failed,
	)
}

// call runs fn and turns a panic into a failed result for that chart.
func (b *batchRunner) call(ctx context.Context, dir string, fn chartFunc) (r domain.ChartResult) {
	defer func() {
		if p := recover(); p != nil {
			r = domain.Failed(dir, domain.Chart{}, fmt.Errorf("panic: %v", p))
		}
	}()
	r = fn(ctx, dir)
	if r.Dir == "" {
		r.Dir = dir
	}
	return r
}

func (b *batchRunner) log(r domain.ChartResult) {
	attrs := []any{
		"operation", b.operation,
		"chartDir", r.Dir,
		"chart", r.Name,
		"version", r.Version,
		"status", r.Status.String(),
	}
	switch r.Status {
	case domain.StatusUpdated:
		b.logger.Info("chart updated", append(attrs, "files", r.Files, "detail", r.Detail)...)
		if r.Diff != "" {
			b.logger.Debug("chart diff", "chartDir", r.Dir, "diff", r.Diff)
		}
	case domain.StatusSkipped:
		b.logger.Info("chart skipped", append(attrs, "reason", r.Detail)...)
	case domain.StatusFailed:
		b.logger.Error("chart failed", append(attrs, "error", r.Err)...)
	}
}

// report hands the outcome to the reporter, if one is configured. Reporting
// problems are logged, never returned.
func (b *batchRunner) report(ctx context.Context, results []domain.ChartResult, commit *domain.CommitResult, err error) {
	if b.reporter == nil {
		return
	}
	rep := domain.Report{Operation: b.operation, Results: results, Commit: commit, Err: err}
	if rerr := b.reporter.Report(ctx, rep); rerr != nil {
		b.logger.Warn("failed to write report", "operation", b.operation, "error", rerr)
	}
}

// scratchDir creates a fresh temporary directory below root ("" means the
// system temp dir). The returned cleanup removes it and must be deferred.
func scratchDir(root, pattern string, logger *slog.Logger) (string, func(), error) {
	dir, err := os.MkdirTemp(root, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("failed to remove scratch directory", "dir", dir, "error", err)
		}
	}
	return dir, cleanup, nil
}
