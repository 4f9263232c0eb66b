package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/config"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/server/endpoints"
)

const mockConfig = `
llm_providers:
  mock:
    type: mock
    enabled: true
defaults:
  llm_provider: mock
  language: en
jobs:
  store: memory
`

const scenarioJSON = `[
	{"text": "Hello everyone", "start": 0, "end": 2},
	{"text": "Now let's move on to the next topic", "start": 8, "end": 12},
	{"text": "In conclusion, thanks", "start": 13, "end": 15}
]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configFile, []byte(mockConfig), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	mgr, err := config.NewManager(configFile, "", nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	srv, err := New(Config{Port: "0", ConfigManager: mgr})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv
}

// waitForServer polls /health until the server answers.
func waitForServer(t *testing.T, srv *Server, timeout time.Duration) string {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		addr := srv.Addr()
		if !strings.HasSuffix(addr, ":0") {
			resp, err := http.Get("http://" + addr + "/health")
			if err == nil {
				resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return "http://" + addr
				}
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server did not start within %v", timeout)
	return ""
}

func TestNew_RequiresConfigManager(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without config manager")
	}
}

func TestServer_FullLifecycle(t *testing.T) {
	srv := newTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start(ctx)
	}()

	baseURL := waitForServer(t, srv, 5*time.Second)
	client := api.NewClient(baseURL)

	t.Run("ready", func(t *testing.T) {
		var resp endpoints.HealthResponse
		if err := client.Get(ctx, "/ready", &resp); err != nil {
			t.Fatalf("ready: %v", err)
		}
		if resp.Status != "ok" {
			t.Errorf("ready = %+v", resp)
		}
	})

	t.Run("job_roundtrip", func(t *testing.T) {
		body, err := endpoints.NewTranscriptRequest([]byte(scenarioJSON), "json", "en")
		if err != nil {
			t.Fatal(err)
		}
		var created endpoints.CreateJobResponse
		if err := client.Post(ctx, "/api/jobs", body, &created); err != nil {
			t.Fatalf("submit: %v", err)
		}

		opts := endpoints.WaitOptions{Timeout: 5 * time.Second, Interval: 10 * time.Millisecond, MaxDelay: 100 * time.Millisecond}
		job, err := endpoints.WaitForJob(ctx, client, created.JobID, opts)
		if err != nil {
			t.Fatalf("wait: %v", err)
		}
		if job.Status != jobs.StatusDone || job.Result != "00:00 Introduction" {
			t.Errorf("job = %+v", job)
		}
	})

	t.Run("status", func(t *testing.T) {
		var resp endpoints.StatusResponse
		if err := client.Get(ctx, "/status", &resp); err != nil {
			t.Fatalf("status: %v", err)
		}
		if resp.Providers.Default != "mock" || resp.Jobs.Store != "memory" {
			t.Errorf("status = %+v", resp)
		}
	})

	if err := srv.Start(ctx); err == nil {
		t.Error("second Start should fail while running")
	}

	cancel()
	select {
	case err := <-serverErr:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
	if srv.IsRunning() {
		t.Error("server should not be running after shutdown")
	}
}

func TestServer_RequireInit(t *testing.T) {
	srv := newTestServer(t)
	handler := srv.httpServer.Handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health before start = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/api/jobs", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("/api/jobs before start = %d, want 503", rec.Code)
	}
}

func TestServer_ApplyConfig(t *testing.T) {
	srv := newTestServer(t)

	cfg := config.DefaultConfig()
	cfg.LLMProviders = map[string]config.LLMProviderCfg{
		"local": {Type: "mock", Enabled: true},
	}
	cfg.Defaults.LLMProvider = "local"
	cfg.Segmenter.GapSeconds = 2
	cfg.Segmenter.Cues = map[string]config.CueCfg{
		"de": {Phrases: []string{"als nächstes"}, WordBoundary: true},
	}

	if err := srv.applyConfig(cfg); err != nil {
		t.Fatalf("applyConfig() error = %v", err)
	}
	if !srv.Registry().HasLLM("local") || srv.Registry().HasLLM("mock") {
		t.Errorf("registry = %v", srv.Registry().ListLLM())
	}
	if !slices.Contains(srv.Analyzer().Cues.Languages(), "de") {
		t.Errorf("languages = %v", srv.Analyzer().Cues.Languages())
	}
	if srv.Analyzer().GapThreshold != 2 {
		t.Errorf("gap = %v", srv.Analyzer().GapThreshold)
	}
}
