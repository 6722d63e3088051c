package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/smileynet/flightdeck/internal/atc"
)

func TestNewClient_Validation(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{name: "http url", url: "http://ci.example.com"},
		{name: "https url", url: "https://ci.example.com:8443"},
		{name: "trailing slash accepted", url: "http://ci.example.com/"},
		{name: "missing scheme", url: "ci.example.com", wantErr: true},
		{name: "wrong scheme", url: "ftp://ci.example.com", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewClient(tt.url, "")
			if tt.wantErr && err == nil {
				t.Errorf("NewClient(%q) succeeded, want error", tt.url)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("NewClient(%q) error: %v", tt.url, err)
			}
		})
	}
}

func TestClient_Pipeline(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": 3, "name": "deploy", "team_name": "main", "paused": true,
			"groups": [{"name": "tests", "jobs": ["unit"]}]}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "tok-123")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	p, err := c.Pipeline(context.Background(), atc.PipelineLocator{Team: "main", Pipeline: "deploy"})
	if err != nil {
		t.Fatalf("Pipeline() error: %v", err)
	}

	if gotPath != "/api/v1/teams/main/pipelines/deploy" {
		t.Errorf("request path = %q, want %q", gotPath, "/api/v1/teams/main/pipelines/deploy")
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if !p.Paused {
		t.Error("Paused = false, want true")
	}
	if len(p.Groups) != 1 || p.Groups[0].Name != "tests" {
		t.Errorf("Groups = %+v, want single tests group", p.Groups)
	}
}

func TestClient_Jobs_KeepsRawItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/teams/main/pipelines/deploy/jobs" {
			t.Errorf("request path = %q", r.URL.Path)
		}
		// Second item has a shape DecodeJob rejects; the listing itself
		// must still come back whole.
		_, _ = w.Write([]byte(`[{"id": 1, "name": "unit"}, {"id": "not-a-number", "name": 7}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	raws, err := c.Jobs(context.Background(), atc.PipelineLocator{Team: "main", Pipeline: "deploy"})
	if err != nil {
		t.Fatalf("Jobs() error: %v", err)
	}
	if len(raws) != 2 {
		t.Fatalf("Jobs() returned %d items, want 2", len(raws))
	}

	job, err := atc.DecodeJob(raws[0])
	if err != nil {
		t.Fatalf("DecodeJob(raws[0]) error: %v", err)
	}
	if job.Name != "unit" {
		t.Errorf("first job name = %q, want %q", job.Name, "unit")
	}
	if _, err := atc.DecodeJob(raws[1]); err == nil {
		t.Error("DecodeJob(raws[1]) succeeded, want error for malformed item")
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "not found", status: http.StatusNotFound},
		{name: "unauthorized", status: http.StatusUnauthorized},
		{name: "server error", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			c, err := NewClient(srv.URL, "")
			if err != nil {
				t.Fatalf("NewClient() error: %v", err)
			}

			_, err = c.Pipeline(context.Background(), atc.PipelineLocator{Team: "main", Pipeline: "deploy"})
			if err == nil {
				t.Fatal("Pipeline() succeeded, want error")
			}

			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error %v is not *api.Error", err)
			}
			if apiErr.StatusCode() != tt.status {
				t.Errorf("StatusCode() = %d, want %d", apiErr.StatusCode(), tt.status)
			}
		})
	}
}

func TestClient_SetPaused(t *testing.T) {
	var gotMethod, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	loc := atc.PipelineLocator{Team: "main", Pipeline: "deploy"}

	if err := c.SetPaused(context.Background(), loc, true); err != nil {
		t.Fatalf("SetPaused(true) error: %v", err)
	}
	if gotMethod != http.MethodPut || gotPath != "/api/v1/teams/main/pipelines/deploy/pause" {
		t.Errorf("pause request = %s %s, want PUT .../pause", gotMethod, gotPath)
	}

	if err := c.SetPaused(context.Background(), loc, false); err != nil {
		t.Fatalf("SetPaused(false) error: %v", err)
	}
	if gotPath != "/api/v1/teams/main/pipelines/deploy/unpause" {
		t.Errorf("unpause request path = %q, want .../unpause", gotPath)
	}
}

func TestClient_Info(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/info" {
			t.Errorf("request path = %q, want /api/v1/info", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"version": "7.11.2", "worker_version": "2.5", "cluster_name": "prod"}`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() error: %v", err)
	}
	if info.Version != "7.11.2" {
		t.Errorf("Version = %q, want %q", info.Version, "7.11.2")
	}
	if info.ClusterName != "prod" {
		t.Errorf("ClusterName = %q, want %q", info.ClusterName, "prod")
	}
}

func TestClient_Pipelines(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`[{"id": 1, "name": "deploy", "team_name": "main"}]`))
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if _, err := c.Pipelines(context.Background(), "main"); err != nil {
		t.Fatalf("Pipelines(main) error: %v", err)
	}
	if gotPath != "/api/v1/teams/main/pipelines" {
		t.Errorf("team listing path = %q, want /api/v1/teams/main/pipelines", gotPath)
	}

	if _, err := c.Pipelines(context.Background(), ""); err != nil {
		t.Fatalf("Pipelines() error: %v", err)
	}
	if gotPath != "/api/v1/pipelines" {
		t.Errorf("global listing path = %q, want /api/v1/pipelines", gotPath)
	}
}

func TestClient_PipelineURL(t *testing.T) {
	c, err := NewClient("https://ci.example.com", "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	got := c.PipelineURL(atc.PipelineLocator{Team: "main", Pipeline: "deploy"})
	want := "https://ci.example.com/teams/main/pipelines/deploy"
	if got != want {
		t.Errorf("PipelineURL() = %q, want %q", got, want)
	}
}

func TestClient_Insecure(t *testing.T) {
	// The test server's certificate is self-signed.
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"version": "7.8.1"}`))
	}))
	defer srv.Close()

	strict, err := NewClient(srv.URL, "")
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	if _, err := strict.Info(context.Background()); err == nil {
		t.Fatal("Info() against a self-signed cert succeeded without WithInsecure")
	}

	lax, err := NewClient(srv.URL, "", WithInsecure())
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}
	info, err := lax.Info(context.Background())
	if err != nil {
		t.Fatalf("Info() with WithInsecure error: %v", err)
	}
	if info.Version != "7.8.1" {
		t.Errorf("Version = %q, want 7.8.1", info.Version)
	}
}
