// Package main provides chart-publisher, the GitHub Actions entrypoint that
// records, releases and indexes the Helm charts of a chart monorepo.
package main

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/nathantilsley/chart-publisher/internal/platform/config"
	"github.com/nathantilsley/chart-publisher/internal/platform/logger"
	"github.com/nathantilsley/chart-publisher/internal/platform/telemetry"
	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    appName,
		Usage:   "Publish the Helm charts of a chart monorepo from GitHub Actions",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error); overrides LOG_LEVEL",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Repository config file, relative to the workspace; overrides INPUT_CONFIG",
			},
			&cli.StringSliceFlag{
				Name:  "chart",
				Usage: "Chart directory to act on (repeatable); skips change detection",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Act on every chart instead of the charts changed by the triggering push",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Log the commit that would be made instead of making it",
			},
		},
		Commands: []*cli.Command{
			batchCmd("metadata", "Record new chart versions in each chart's metadata.yaml",
				func(ctx context.Context, c *Container, dirs []string) (bool, error) {
					return c.Metadata.UpdateMetadata(ctx, dirs)
				}),
			batchCmd("publish", "Lint, package and release new chart versions",
				func(ctx context.Context, c *Container, dirs []string) (bool, error) {
					return c.Publish.Publish(ctx, dirs)
				}),
			batchCmd("lock", "Refresh Chart.lock for charts with dependencies",
				func(ctx context.Context, c *Container, dirs []string) (bool, error) {
					return c.Locks.UpdateLocks(ctx, dirs)
				}),
			batchCmd("applications", "Point Argo CD Application manifests at the current chart versions",
				func(ctx context.Context, c *Container, dirs []string) (bool, error) {
					return c.Applications.UpdateApplications(ctx, dirs)
				}),
			indexCmd(),
			discoverCmd(),
			versionCmd(),
		},
	}
}

// batchFunc runs one per-chart operation over the selected chart directories.
type batchFunc func(ctx context.Context, c *Container, dirs []string) (bool, error)

func batchCmd(name, usage string, fn batchFunc) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withContainer(ctx, cmd, func(ctx context.Context, c *Container) error {
				dirs, err := selectCharts(ctx, cmd, c)
				if err != nil {
					return err
				}
				ok, err := fn(ctx, c, dirs)
				return outcome(ok, err)
			})
		},
	}
}

func indexCmd() *cli.Command {
	return &cli.Command{
		Name:  "index",
		Usage: "Rebuild the repository index from every chart's metadata",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withContainer(ctx, cmd, func(ctx context.Context, c *Container) error {
				ok, err := c.Index.UpdateIndex(ctx)
				return outcome(ok, err)
			})
		},
	}
}

func discoverCmd() *cli.Command {
	return &cli.Command{
		Name:  "discover",
		Usage: "Print the chart directories the triggering event affects, one per line",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return withContainer(ctx, cmd, func(ctx context.Context, c *Container) error {
				dirs, err := selectCharts(ctx, cmd, c)
				if err != nil {
					return err
				}
				for _, dir := range dirs {
					fmt.Fprintln(cmd.Root().Writer, dir)
				}
				return nil
			})
		},
	}
}

func versionCmd() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print the version",
		Action: func(_ context.Context, cmd *cli.Command) error {
			fmt.Fprintf(cmd.Root().Writer, "%s %s\n", appName, version)
			return nil
		},
	}
}

// withContainer loads config, builds the container and runs fn, flushing
// telemetry afterwards.
func withContainer(ctx context.Context, cmd *cli.Command, fn func(context.Context, *Container) error) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	log := logger.New(cfg.LogLevel)

	tel, err := telemetry.New(ctx, cfg.OTelEnabled, version)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			log.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	container, err := NewContainer(cfg, Options{DryRun: cmd.Bool("dry-run")}, log, tel)
	if err != nil {
		return fmt.Errorf("building container: %w", err)
	}
	return fn(ctx, container)
}

// selectCharts resolves the chart directories to act on: explicit --chart
// values, every chart with --all, else the charts the triggering event
// touched.
func selectCharts(ctx context.Context, cmd *cli.Command, c *Container) ([]string, error) {
	if explicit := cmd.StringSlice("chart"); len(explicit) > 0 {
		return normalizeDirs(explicit), nil
	}

	trigger := domain.Trigger{Event: "manual"}
	if !cmd.Bool("all") {
		var err error
		trigger, err = c.Events.Read(c.Config.EventName, c.Config.EventPath)
		if err != nil {
			c.Logger.Warn("reading event payload failed, using full chart inventory", "error", err)
			trigger = domain.Trigger{Event: c.Config.EventName}
		}
	}
	return c.Discovery.Discover(ctx, trigger)
}

// normalizeDirs cleans chart directories given on the command line into
// repository-relative slash paths, dropping duplicates.
func normalizeDirs(dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		d = strings.TrimPrefix(path.Clean(filepath.ToSlash(d)), "./")
		if !slices.Contains(out, d) {
			out = append(out, d)
		}
	}
	return out
}

// outcome maps a batch result onto the process exit status.
func outcome(ok bool, err error) error {
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrChartsFailed
	}
	return nil
}

