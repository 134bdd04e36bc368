package comparefiles

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v68/github"

	"github.com/nathantilsley/chart-publisher/internal/platform/logger"
)

func TestChangedFiles_Paginates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/acme/charts/compare/{basehead}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("basehead") != "aaa...bbb" {
			t.Errorf("basehead = %q", r.PathValue("basehead"))
		}
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"files":[{"filename":"charts/web/Chart.yaml","previous_filename":"charts/frontend/Chart.yaml","status":"renamed"}]}`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, "http://"+r.Host+r.URL.Path))
		fmt.Fprint(w, `{"files":[{"filename":"charts/api/values.yaml"},{"filename":"README.md"}]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := github.NewClient(nil)
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base

	a := New(client, "acme", "charts", logger.New("error"))
	files, err := a.ChangedFiles(context.Background(), "aaa", "bbb")
	if err != nil {
		t.Fatalf("ChangedFiles() error: %v", err)
	}

	want := []string{"charts/api/values.yaml", "README.md", "charts/web/Chart.yaml", "charts/frontend/Chart.yaml"}
	if len(files) != len(want) {
		t.Fatalf("ChangedFiles() = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestChangedFiles_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"No common ancestor"}`)
	}))
	defer srv.Close()

	client := github.NewClient(nil)
	base, _ := url.Parse(srv.URL + "/")
	client.BaseURL = base

	a := New(client, "acme", "charts", logger.New("error"))
	if _, err := a.ChangedFiles(context.Background(), "aaa", "bbb"); err == nil {
		t.Fatal("expected error")
	}
}
