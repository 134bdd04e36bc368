package main

import (
	"fmt"
	"log/slog"
	"os"

	gogithub "github.com/google/go-github/v68/github"

	argoapps "github.com/nathantilsley/chart-publisher/internal/publish/adapters/argo_apps"
	chartfs "github.com/nathantilsley/chart-publisher/internal/publish/adapters/chart_fs"
	comparefiles "github.com/nathantilsley/chart-publisher/internal/publish/adapters/compare_files"
	dryruncommit "github.com/nathantilsley/chart-publisher/internal/publish/adapters/dryrun_commit"
	gitcommit "github.com/nathantilsley/chart-publisher/internal/publish/adapters/git_commit"
	githubcommit "github.com/nathantilsley/chart-publisher/internal/publish/adapters/github_commit"
	githubrelease "github.com/nathantilsley/chart-publisher/internal/publish/adapters/github_release"
	helmcli "github.com/nathantilsley/chart-publisher/internal/publish/adapters/helm_cli"
	linediff "github.com/nathantilsley/chart-publisher/internal/publish/adapters/line_diff"
	ociregistry "github.com/nathantilsley/chart-publisher/internal/publish/adapters/oci_registry"
	pushevent "github.com/nathantilsley/chart-publisher/internal/publish/adapters/push_event"
	stepsummary "github.com/nathantilsley/chart-publisher/internal/publish/adapters/step_summary"
	"github.com/nathantilsley/chart-publisher/internal/publish/app"
	"github.com/nathantilsley/chart-publisher/internal/publish/ports"
	"github.com/nathantilsley/chart-publisher/internal/platform/config"
	ghclient "github.com/nathantilsley/chart-publisher/internal/platform/github"
	"github.com/nathantilsley/chart-publisher/internal/platform/gitrepo"
	"github.com/nathantilsley/chart-publisher/internal/platform/telemetry"
)

const (
	appName      = "chart-publisher"
	maxDiffLines = 200
)

// Options are per-invocation switches that do not come from config.
type Options struct {
	DryRun bool
}

// Container holds all application dependencies.
type Container struct {
	Config       config.Config
	Logger       *slog.Logger
	GitHubClient *gogithub.Client
	Events       *pushevent.Reader
	Discovery    ports.DiscoveryUseCase
	Metadata     ports.MetadataUseCase
	Publish      ports.PublishUseCase
	Index        ports.IndexUseCase
	Locks        ports.LockUseCase
	Applications ports.ApplicationUseCase
}

// NewContainer builds and wires all dependencies.
func NewContainer(cfg config.Config, opts Options, log *slog.Logger, tel *telemetry.Telemetry) (*Container, error) {
	// Platform dependencies
	githubClient, err := ghclient.NewClient(ghclient.Auth{
		Token:          cfg.Token,
		AppID:          cfg.GitHubAppID,
		InstallationID: cfg.GitHubInstallationID,
		PrivateKeyPEM:  cfg.GitHubPrivateKey,
	}, cfg.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("creating github client: %w", err)
	}
	repo := gitrepo.New(cfg.Workspace, gitrepo.DefaultIdentity, log)

	// Adapters
	charts := chartfs.New(cfg.Workspace)
	helm, err := helmcli.New(cfg.Workspace, log)
	if err != nil {
		return nil, fmt.Errorf("creating helm adapter: %w", err)
	}
	differ := linediff.New(linediff.WithMaxLines(maxDiffLines))
	reporter := stepsummary.New(cfg.StepSummaryPath, appName, log)
	releaser := githubrelease.New(githubClient, cfg.Owner, cfg.Repo, log)
	apps := argoapps.New(cfg.Workspace, cfg.ApplicationFile, log)

	var (
		committer ports.CommitterPort
		changes   ports.ChangedFilesPort
	)
	switch cfg.GitTransport {
	case config.TransportGit:
		git := gitcommit.New(repo, log)
		committer, changes = git, git
	default:
		committer = githubcommit.New(githubClient, cfg.Owner, cfg.Repo, cfg.Workspace, log)
		changes = comparefiles.New(githubClient, cfg.Owner, cfg.Repo, log)
	}
	if opts.DryRun {
		log.Info("dry run: commits are logged, not made")
		committer = dryruncommit.New(log)
	}

	// Optional OCI registry, nil when not configured
	var registry ports.RegistryPort
	if cfg.Registry.Enabled() {
		log.Info("oci registry publishing enabled", "host", cfg.Registry.Host, "namespace", cfg.Registry.Namespace)
		registry = ociregistry.New(ociregistry.Config{
			Host:      cfg.Registry.Host,
			Namespace: cfg.Registry.Namespace,
			Username:  cfg.Registry.Username,
			Password:  cfg.Registry.Password,
			PlainHTTP: cfg.Registry.PlainHTTP,
		}, log)
	}

	// Domain services
	scratchRoot := os.Getenv("RUNNER_TEMP")
	gate := app.NewCommitGate(committer, cfg.Branch, cfg.CommitMessage, log)

	metadata := app.NewMetadataService(charts, charts, helm, gate, differ, reporter, app.MetadataSettings{
		Retention:       cfg.Retention,
		BaseDownloadURL: cfg.BaseDownloadURL(),
		ReleaseTitle:    cfg.ReleaseTitle,
		ScratchRoot:     scratchRoot,
		Concurrency:     cfg.Concurrency,
	}, log, tel.Meter, tel.Tracer)

	publish := app.NewPublishService(charts, helm, helm, releaser, registry, reporter, app.PublishSettings{
		Branch:       cfg.Branch,
		ReleaseTitle: cfg.ReleaseTitle,
		ReleaseNotes: cfg.ReleaseNotes,
		ScratchRoot:  scratchRoot,
		Concurrency:  cfg.Concurrency,
	}, log, tel.Meter, tel.Tracer)

	index := app.NewIndexService(charts, charts, charts, gate, differ, reporter,
		cfg.ChartsDir, cfg.IndexPath, log, tel.Meter, tel.Tracer)

	locks := app.NewLockService(charts, charts, helm, gate, differ, reporter,
		cfg.Concurrency, log, tel.Meter, tel.Tracer)

	applications := app.NewApplicationService(charts, apps, gate, differ, reporter,
		cfg.Concurrency, log, tel.Meter, tel.Tracer)

	return &Container{
		Config:       cfg,
		Logger:       log,
		GitHubClient: githubClient,
		Events:       pushevent.New(log),
		Discovery:    app.NewDiscoveryService(charts, changes, cfg.ChartsDir, log),
		Metadata:     metadata,
		Publish:      publish,
		Index:        index,
		Locks:        locks,
		Applications: applications,
	}, nil
}
