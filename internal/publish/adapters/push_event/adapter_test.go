package pushevent

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nathantilsley/chart-publisher/internal/platform/logger"
	"github.com/nathantilsley/chart-publisher/internal/publish/domain"
)

func TestRead(t *testing.T) {
	dir := t.TempDir()
	pushPath := filepath.Join(dir, "push.json")
	payload := `{
  "ref": "refs/heads/main",
  "before": "1111111111111111111111111111111111111111",
  "after": "2222222222222222222222222222222222222222",
  "commits": [{"id": "2222222222222222222222222222222222222222", "message": "bump foo"}],
  "repository": {"name": "charts", "owner": {"login": "acme"}}
}`
	if err := os.WriteFile(pushPath, []byte(payload), 0o600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		eventName string
		eventPath string
		want      domain.Trigger
		wantErr   bool
	}{
		{
			name:      "push",
			eventName: "push",
			eventPath: pushPath,
			want: domain.Trigger{
				Event:  "push",
				Ref:    "refs/heads/main",
				Before: "1111111111111111111111111111111111111111",
				After:  "2222222222222222222222222222222222222222",
			},
		},
		{
			name:      "workflow dispatch ignores payload",
			eventName: "workflow_dispatch",
			eventPath: pushPath,
			want:      domain.Trigger{Event: "workflow_dispatch"},
		},
		{
			name:      "push without payload",
			eventName: "push",
			want:      domain.Trigger{Event: "push"},
		},
		{
			name:      "missing payload file",
			eventName: "push",
			eventPath: filepath.Join(dir, "missing.json"),
			want:      domain.Trigger{Event: "push"},
			wantErr:   true,
		},
	}

	r := New(logger.New("error"))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Read(tt.eventName, tt.eventPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Read() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Read() = %+v, want %+v", got, tt.want)
			}
			if !tt.wantErr && got.NeedsInventory() != (tt.eventName != "push" || tt.eventPath == "") {
				t.Errorf("NeedsInventory() = %v", got.NeedsInventory())
			}
		})
	}
}
