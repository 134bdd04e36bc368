package gitcommit

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nathantilsley/chart-publisher/internal/platform/gitrepo"
	"github.com/nathantilsley/chart-publisher/internal/platform/logger"
)

func TestAdapter_CommitAndChangedFiles(t *testing.T) {
	remote := t.TempDir()
	work := t.TempDir()
	git(t, remote, "init", "--bare")
	git(t, work, "init")
	git(t, work, "config", "user.email", "test@example.com")
	git(t, work, "config", "user.name", "Test")
	write(t, work, "charts/foo/Chart.yaml", "name: foo\nversion: 1.0.0\n")
	git(t, work, "add", ".")
	git(t, work, "commit", "-m", "init")
	git(t, work, "remote", "add", "origin", remote)
	git(t, work, "push", "origin", "HEAD:refs/heads/main")
	base := git(t, work, "rev-parse", "HEAD")

	log := logger.New("error")
	a := New(gitrepo.New(work, gitrepo.Identity{}, log), log)

	write(t, work, "charts/foo/metadata.yaml", "entries: {}\n")
	res, err := a.Commit(context.Background(), "main", []string{"charts/foo/metadata.yaml"}, "chore(github-action): update metadata")
	if err != nil {
		t.Fatalf("Commit() error: %v", err)
	}
	if res.SHA == "" || res.Updated != 1 {
		t.Fatalf("Commit() = %+v, want a SHA and 1 file", res)
	}
	if got := git(t, remote, "rev-parse", "refs/heads/main"); got != res.SHA {
		t.Errorf("remote main = %s, want %s", got, res.SHA)
	}

	files, err := a.ChangedFiles(context.Background(), base, res.SHA)
	if err != nil {
		t.Fatalf("ChangedFiles() error: %v", err)
	}
	if len(files) != 1 || files[0] != "charts/foo/metadata.yaml" {
		t.Errorf("ChangedFiles() = %v", files)
	}

	res, err = a.Commit(context.Background(), "main", []string{"charts/foo/metadata.yaml"}, "again")
	if err != nil {
		t.Fatalf("second Commit() error: %v", err)
	}
	if res.SHA != "" || res.Updated != 0 {
		t.Errorf("second Commit() = %+v, want empty result", res)
	}
}

func write(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func git(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.CommandContext(context.Background(), "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\noutput: %s", args, err, out)
	}
	return strings.TrimSpace(string(out))
}
