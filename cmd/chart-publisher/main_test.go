package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

func TestNormalizeDirs(t *testing.T) {
	got := normalizeDirs([]string{"./charts/foo/", "charts/foo", "charts/bar", "charts//baz"})
	assert.Equal(t, []string{"charts/foo", "charts/bar", "charts/baz"}, got)
}

func TestOutcome(t *testing.T) {
	assert.NoError(t, outcome(true, nil))
	assert.ErrorIs(t, outcome(false, nil), domain.ErrChartsFailed)

	fatal := errors.New("committing 1 metadata file(s) to main: denied")
	assert.Equal(t, fatal, outcome(false, fatal), "fatal error wins over the aggregate")
}

func TestVersionCommand(t *testing.T) {
	cmd := newCommand()
	var out bytes.Buffer
	cmd.Writer = &out

	require.NoError(t, cmd.Run(context.Background(), []string{appName, "version"}))
	assert.Equal(t, "chart-publisher dev\n", out.String())
}

func TestCommandTree(t *testing.T) {
	var names []string
	for _, c := range newCommand().Commands {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"metadata", "publish", "lock", "applications", "index", "discover", "version"}, names)
}

func TestCommand_ConfigError(t *testing.T) {
	t.Setenv("GITHUB_REPOSITORY", "")

	err := newCommand().Run(context.Background(), []string{appName, "index"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config: GITHUB_REPOSITORY is required")
}
