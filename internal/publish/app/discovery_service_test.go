package app

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

type fakeChanges struct {
	files []string
	err   error
	calls int
}

func (c *fakeChanges) ChangedFiles(_ context.Context, _, _ string) ([]string, error) {
	c.calls++
	return c.files, c.err
}

func TestDiscoveryService_Discover(t *testing.T) {
	charts := chartSet("api", "1.0.0", "web", "1.0.0", "worker", "1.0.0")
	push := domain.Trigger{Event: "push", Ref: "refs/heads/main", Before: "aaa", After: "bbb"}

	tests := []struct {
		name      string
		trigger   domain.Trigger
		changes   *fakeChanges
		want      []string
		wantCalls int
	}{
		{
			name:    "push narrows to changed charts",
			trigger: push,
			changes: &fakeChanges{files: []string{
				"charts/web/values.yaml",
				"charts/web/templates/deployment.yaml",
				"charts/api/Chart.yaml",
				"README.md",
			}},
			want:      []string{"charts/api", "charts/web"},
			wantCalls: 1,
		},
		{
			name:      "deleted chart is dropped",
			trigger:   push,
			changes:   &fakeChanges{files: []string{"charts/removed/Chart.yaml"}},
			want:      nil,
			wantCalls: 1,
		},
		{
			name:      "dispatch uses inventory",
			trigger:   domain.Trigger{Event: "workflow_dispatch"},
			changes:   &fakeChanges{},
			want:      []string{"charts/api", "charts/web", "charts/worker"},
			wantCalls: 0,
		},
		{
			name:      "compare failure falls back to inventory",
			trigger:   push,
			changes:   &fakeChanges{err: errors.New("404 Not Found")},
			want:      []string{"charts/api", "charts/web", "charts/worker"},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewDiscoveryService(&fakeCharts{charts: charts}, tt.changes, "charts", testLogger)

			got, err := svc.Discover(context.Background(), tt.trigger)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantCalls, tt.changes.calls)
		})
	}
}

func TestDiscoveryService_WithoutChangeSource(t *testing.T) {
	svc := NewDiscoveryService(&fakeCharts{charts: chartSet("api", "1.0.0")}, nil, "charts", testLogger)

	got, err := svc.Discover(context.Background(), domain.Trigger{Event: "push", Before: "a", After: "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"charts/api"}, got)
}
