package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/svcctx"
	"github.com/jackzampolin/chaptermark/version"
)

// readyProbeID is looked up to prove the job store answers reads.
const readyProbeID = "__ready__"

// HealthResponse is the response for health check endpoints.
type HealthResponse struct {
	Status string `json:"status"`
	Store  string `json:"store,omitempty"`
	LLM    string `json:"llm,omitempty"`
}

// HealthEndpoint handles GET /health.
type HealthEndpoint struct{}

func (e *HealthEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/health", e.handler
}

func (e *HealthEndpoint) RequiresInit() bool { return false }

func (e *HealthEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (e *HealthEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReadyEndpoint handles GET /ready.
// Ready means the job store answers and the default oracle is registered.
type ReadyEndpoint struct{}

func (e *ReadyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/ready", e.handler
}

func (e *ReadyEndpoint) RequiresInit() bool { return false }

func (e *ReadyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Store: "ok", LLM: "ok"}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		resp.Store = "not_initialized"
	} else if _, err := store.Get(r.Context(), readyProbeID); err != nil {
		resp.Store = "unhealthy"
	}

	registry := svcctx.RegistryFrom(r.Context())
	if registry == nil {
		resp.LLM = "not_initialized"
	} else if name := defaultProvider(r); name != "" && !registry.HasLLM(name) || len(registry.ListLLM()) == 0 {
		resp.LLM = "unavailable"
	}

	if resp.Store != "ok" || resp.LLM != "ok" {
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ReadyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ready",
		Short: "Check server readiness (job store and oracle)",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp HealthResponse
			if err := client.Get(cmd.Context(), "/ready", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// StatusResponse is the detailed status response.
type StatusResponse struct {
	Server    string          `json:"server"`
	Version   string          `json:"version"`
	Providers ProvidersStatus `json:"providers"`
	Jobs      JobsStatus      `json:"jobs"`
	Languages []string        `json:"languages,omitempty"`
}

// ProvidersStatus shows registered LLM providers.
type ProvidersStatus struct {
	LLM     []string `json:"llm"`
	Default string   `json:"default"`
}

// JobsStatus shows the job store backend and in-flight work.
type JobsStatus struct {
	Store   string `json:"store"`
	Running int    `json:"running"`
}

// StatusEndpoint handles GET /status.
type StatusEndpoint struct{}

func (e *StatusEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/status", e.handler
}

func (e *StatusEndpoint) RequiresInit() bool { return false }

func (e *StatusEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		Server:  "running",
		Version: version.GitRelease,
	}
	resp.Providers.Default = defaultProvider(r)
	resp.Providers.LLM = []string{}

	if registry := svcctx.RegistryFrom(r.Context()); registry != nil {
		resp.Providers.LLM = registry.ListLLM()
	}
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil {
		resp.Jobs.Store = cfg.Jobs.Store
	}
	if runner := svcctx.RunnerFrom(r.Context()); runner != nil {
		resp.Jobs.Running = runner.Running()
		if lib := runner.Analyzer().Cues; lib != nil {
			resp.Languages = lib.Languages()
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (e *StatusEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Get detailed server status",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatusResponse
			if err := client.Get(cmd.Context(), "/status", &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() != api.OutputFormatText {
				return api.Output(resp)
			}
			fmt.Printf("Server:  %s (%s)\n", resp.Server, resp.Version)
			fmt.Printf("LLM:     %v (default %s)\n", resp.Providers.LLM, resp.Providers.Default)
			fmt.Printf("Store:   %s\n", resp.Jobs.Store)
			fmt.Printf("Running: %d\n", resp.Jobs.Running)
			return nil
		},
	}
}

// defaultProvider names the oracle new jobs are labeled with.
func defaultProvider(r *http.Request) string {
	if cfg := svcctx.ConfigFrom(r.Context()); cfg != nil {
		return cfg.Defaults.LLMProvider
	}
	return ""
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse = api.ErrorResponse

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
