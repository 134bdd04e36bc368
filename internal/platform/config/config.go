// Package config builds the typed run configuration from the GitHub Actions
// environment and the repository's config file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nathantilsley/chart-publisher/api"
	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

// Git transports select both the committer and change detection.
const (
	TransportAPI = "api"
	TransportGit = "git"
)

const (
	defaultConfigFile      = ".github/chart-publisher.yaml"
	defaultReleaseTitle    = "{{ .Name }}-{{ .Version }}"
	defaultReleaseNotes    = "{{ .Description }}"
	defaultCommitMessage   = "chore(github-action): update {{ .Type }}"
	defaultPasswordEnv     = "INPUT_REGISTRY_PASSWORD"
	defaultConcurrency     = 4
	defaultApplicationFile = "application.yaml"
)

// Config holds the configuration of one run. It is loaded once and passed
// down explicitly.
type Config struct {
	LogLevel  string
	Workspace string
	Owner     string
	Repo      string
	Branch    string
	ServerURL string

	EventName       string
	EventPath       string
	StepSummaryPath string

	// Authentication: Token, or the three GitHub App fields.
	Token                string
	GitHubAppID          int64
	GitHubInstallationID int64
	GitHubPrivateKey     string // PEM file contents

	GitTransport string
	Concurrency  int
	OTelEnabled  bool
	ConfigFile   string

	// From the repository config file.
	ChartsDir       string
	Retention       int
	ReleaseTitle    *domain.Template
	ReleaseNotes    *domain.Template
	CommitMessage   *domain.Template
	IndexPath       string
	Registry        Registry
	ApplicationFile string
}

// Registry is the OCI registry charts are pushed to. Publishing to it is
// disabled when Host is empty.
type Registry struct {
	Host      string
	Namespace string
	Username  string
	Password  string
	PlainHTTP bool
}

// Enabled reports whether a registry is configured.
func (r Registry) Enabled() bool {
	return r.Host != ""
}

// BaseDownloadURL is the prefix of release asset download URLs.
func (c Config) BaseDownloadURL() string {
	return fmt.Sprintf("%s/%s/%s/releases/download", strings.TrimSuffix(c.ServerURL, "/"), c.Owner, c.Repo)
}

// Load reads the environment and the repository config file. configFile
// overrides INPUT_CONFIG; relative paths resolve against the workspace.
// A missing file is only an error when it was named explicitly.
func Load(configFile string) (Config, error) {
	cfg := Config{
		LogLevel:     firstEnv("info", "LOG_LEVEL", "INPUT_LOG_LEVEL"),
		Workspace:    firstEnv(".", "GITHUB_WORKSPACE"),
		Branch:       firstEnv("main", "INPUT_BRANCH", "GITHUB_REF_NAME"),
		ServerURL:    firstEnv("https://github.com", "GITHUB_SERVER_URL"),
		GitTransport: strings.ToLower(firstEnv(TransportAPI, "INPUT_GIT_TRANSPORT")),
		Concurrency:  defaultConcurrency,
		OTelEnabled:  os.Getenv("OTEL_ENABLED") == "true",
	}

	if err := loadRuntimeConfig(&cfg); err != nil {
		return Config{}, err
	}
	if err := loadAuthConfig(&cfg); err != nil {
		return Config{}, err
	}

	explicit := configFile != "" || os.Getenv("INPUT_CONFIG") != ""
	cfg.ConfigFile = firstNonEmpty(configFile, os.Getenv("INPUT_CONFIG"), defaultConfigFile)
	if err := loadRepositoryConfig(&cfg, explicit); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadRuntimeConfig(cfg *Config) error {
	repository := os.Getenv("GITHUB_REPOSITORY")
	if repository == "" {
		return errors.New("GITHUB_REPOSITORY is required")
	}
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return fmt.Errorf("invalid GITHUB_REPOSITORY %q: want owner/repo", repository)
	}
	cfg.Owner, cfg.Repo = owner, repo

	cfg.EventName = os.Getenv("GITHUB_EVENT_NAME")
	cfg.EventPath = os.Getenv("GITHUB_EVENT_PATH")
	cfg.StepSummaryPath = os.Getenv("GITHUB_STEP_SUMMARY")

	switch cfg.GitTransport {
	case TransportAPI, TransportGit:
	default:
		return fmt.Errorf("invalid INPUT_GIT_TRANSPORT %q: want %s or %s", cfg.GitTransport, TransportAPI, TransportGit)
	}

	if v := os.Getenv("INPUT_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("invalid INPUT_CONCURRENCY %q: want a positive integer", v)
		}
		cfg.Concurrency = n
	}
	return nil
}

func loadAuthConfig(cfg *Config) error {
	cfg.Token = firstEnv("", "INPUT_TOKEN", "GITHUB_TOKEN")
	cfg.GitHubPrivateKey = os.Getenv("GITHUB_PRIVATE_KEY")

	var err error
	if cfg.GitHubAppID, err = parseOptionalInt64("GITHUB_APP_ID"); err != nil {
		return err
	}
	if cfg.GitHubInstallationID, err = parseOptionalInt64("GITHUB_INSTALLATION_ID"); err != nil {
		return err
	}

	if cfg.Token != "" {
		return nil
	}
	if cfg.GitHubAppID == 0 || cfg.GitHubInstallationID == 0 || cfg.GitHubPrivateKey == "" {
		return errors.New("GITHUB_TOKEN (or INPUT_TOKEN) is required unless GITHUB_APP_ID, GITHUB_INSTALLATION_ID and GITHUB_PRIVATE_KEY are all set")
	}
	return nil
}

func loadRepositoryConfig(cfg *Config, explicit bool) error {
	path := cfg.ConfigFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(cfg.Workspace, path)
	}

	var file api.RepositoryConfig
	//nolint:gosec // G304: path is the configured repository config file
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	case err != nil:
		return fmt.Errorf("reading config file %s: %w", cfg.ConfigFile, err)
	default:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("parsing config file %s: %w", cfg.ConfigFile, err)
		}
	}

	repo := file.Repository
	cfg.ChartsDir = filepath.ToSlash(filepath.Clean(firstNonEmpty(repo.Chart.Path, "charts")))
	cfg.IndexPath = firstNonEmpty(repo.Index.Path, "index.yaml")
	cfg.ApplicationFile = firstNonEmpty(repo.Applications.File, defaultApplicationFile)

	if repo.Chart.Packages.Retention < 0 {
		return fmt.Errorf("invalid repository.chart.packages.retention %d: must not be negative", repo.Chart.Packages.Retention)
	}
	cfg.Retention = repo.Chart.Packages.Retention

	if cfg.ReleaseTitle, err = domain.ParseTemplate("release title", firstNonEmpty(repo.Release.Title, defaultReleaseTitle)); err != nil {
		return err
	}
	if cfg.ReleaseNotes, err = domain.ParseTemplate("release notes", firstNonEmpty(repo.Release.Notes, defaultReleaseNotes)); err != nil {
		return err
	}
	if cfg.CommitMessage, err = domain.ParseTemplate("commit message", firstNonEmpty(repo.Commit.Message, defaultCommitMessage)); err != nil {
		return err
	}

	if repo.Registry.Host != "" {
		cfg.Registry = Registry{
			Host:      repo.Registry.Host,
			Namespace: strings.Trim(repo.Registry.Namespace, "/"),
			Username:  repo.Registry.Username,
			Password:  os.Getenv(firstNonEmpty(repo.Registry.PasswordEnv, defaultPasswordEnv)),
			PlainHTTP: repo.Registry.PlainHTTP,
		}
	}
	return nil
}

func parseOptionalInt64(envKey string) (int64, error) {
	v := os.Getenv(envKey)
	if v == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, v, err)
	}
	return id, nil
}

// firstEnv returns the first non-empty variable among keys, or def.
func firstEnv(def string, keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
