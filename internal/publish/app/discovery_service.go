package app

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
)

// DiscoveryService implements ports.DiscoveryUseCase.
type DiscoveryService struct {
	charts    ports.ChartReaderPort
	changes   ports.ChangedFilesPort
	chartsDir string
	logger    *slog.Logger
}

// NewDiscoveryService creates a DiscoveryService. changes may be nil, in
// which case every run acts on the full inventory.
func NewDiscoveryService(charts ports.ChartReaderPort, changes ports.ChangedFilesPort, chartsDir string, logger *slog.Logger) *DiscoveryService {
	return &DiscoveryService{
		charts:    charts,
		changes:   changes,
		chartsDir: chartsDir,
		logger:    logger,
	}
}

// Discover returns the chart directories a run should act on. Pushes with a
// usable commit range are narrowed to the charts they touched; everything
// else gets the full inventory. Directories that no longer hold a chart
// are dropped.
func (s *DiscoveryService) Discover(ctx context.Context, trigger domain.Trigger) ([]string, error) {
	inventory, err := s.charts.ListCharts(ctx, s.chartsDir)
	if err != nil {
		return nil, fmt.Errorf("listing charts in %s: %w", s.chartsDir, err)
	}

	if trigger.NeedsInventory() || s.changes == nil {
		s.logger.Info("using full chart inventory", "event", trigger.Event, "charts", len(inventory))
		return inventory, nil
	}

	files, err := s.changes.ChangedFiles(ctx, trigger.Before, trigger.After)
	if err != nil {
		s.logger.Warn("listing changed files failed, using full chart inventory",
			"before", trigger.Before, "after", trigger.After, "error", err)
		return inventory, nil
	}

	var dirs []string
	for _, dir := range domain.ChartDirsFromFiles(files, s.chartsDir) {
		if slices.Contains(inventory, dir) {
			dirs = append(dirs, dir)
		}
	}

	s.logger.Info("discovered changed charts",
		"before", trigger.Before, "after", trigger.After,
		"changedFiles", len(files), "charts", dirs)
	return dirs, nil
}
