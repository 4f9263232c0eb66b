// Package server runs the chaptermark HTTP API: it opens the job store,
// wires the pipeline runner to the configured oracle and serves the
// endpoints until its context ends.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/chapters"
	"github.com/jackzampolin/chaptermark/internal/config"
	"github.com/jackzampolin/chaptermark/internal/home"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/pipeline"
	"github.com/jackzampolin/chaptermark/internal/providers"
	"github.com/jackzampolin/chaptermark/internal/server/endpoints"
	"github.com/jackzampolin/chaptermark/internal/svcctx"
)

// Store connection attempts made on startup before giving up.
const (
	storeOpenAttempts = 5
	storeOpenDelay    = 500 * time.Millisecond
	shutdownTimeout   = 30 * time.Second
)

// Server is the main chaptermark HTTP server.
// It owns the job store for its lifetime and closes it on shutdown.
type Server struct {
	httpServer *http.Server
	store      jobs.Store
	runner     *pipeline.Runner
	registry   *providers.Registry
	analyzer   *pipeline.Analyzer
	configMgr  *config.Manager
	home       *home.Dir
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu       sync.RWMutex
	running  bool
	listener net.Listener
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080, "0" picks a free port)
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the chaptermark home directory (default badger location)
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("server requires a config manager")
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	registry := providers.NewRegistry()
	registry.SetLogger(cfg.Logger)

	s := &Server{
		registry:  registry,
		analyzer:  pipeline.NewAnalyzer(),
		configMgr: cfg.ConfigManager,
		home:      cfg.Home,
		logger:    cfg.Logger,
	}
	if err := s.applyConfig(cfg.ConfigManager.Get()); err != nil {
		return nil, err
	}

	// Watch for config changes
	cfg.ConfigManager.OnChange(func(c *config.Config) {
		if err := s.applyConfig(c); err != nil {
			s.logger.Error("failed to apply config change", "error", err)
			return
		}
		s.logger.Info("providers and segmenter reloaded from config")
	})

	s.endpointRegistry = endpoints.NewRegistry()

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// applyConfig reloads the oracle registry and the segmenter settings.
func (s *Server) applyConfig(c *config.Config) error {
	cues, err := c.CueSets()
	if err != nil {
		return fmt.Errorf("invalid cue configuration: %w", err)
	}
	s.registry.Reload(c.ToProviderRegistryConfig())
	s.analyzer.Configure(c.Segmenter.GapSeconds, cues)
	s.analyzer.Cues.SetFallback(c.Defaults.Language)
	return nil
}

// Start opens the job store, starts the runner and janitor and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	cfg := s.configMgr.Get()
	store, err := s.openStore(ctx, cfg)
	if err != nil {
		s.setNotRunning()
		return err
	}
	s.store = store
	s.runner = pipeline.NewRunner(store, pipeline.LabelerFunc(s.label), s.analyzer, s.logger)

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		(&jobs.Janitor{
			Store:     store,
			Retention: cfg.Jobs.RetentionDuration(),
			Interval:  cfg.Jobs.EvictIntervalDuration(),
			Logger:    s.logger,
		}).Run(janitorCtx)
	}()

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		stopJanitor()
		<-janitorDone
		_ = store.Close()
		s.setNotRunning()
		return fmt.Errorf("failed to listen: %w", err)
	}

	// Create services struct for context enrichment
	s.mu.Lock()
	s.listener = ln
	s.services = &svcctx.Services{
		Store:         store,
		Runner:        s.runner,
		Registry:      s.registry,
		ConfigManager: s.configMgr,
		Logger:        s.logger,
		Home:          s.home,
	}
	s.mu.Unlock()

	// Start HTTP server in goroutine
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", ln.Addr().String(), "store", cfg.Jobs.Store)
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for context cancellation or error
	var serveErr error
	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			serveErr = fmt.Errorf("HTTP server error: %w", err)
		}
	}

	stopJanitor()
	<-janitorDone
	s.shutdown()
	return serveErr
}

// openStore opens the configured job store, retrying while a shared
// backend is still coming up.
func (s *Server) openStore(ctx context.Context, cfg *config.Config) (jobs.Store, error) {
	homeDir := ""
	if s.home != nil {
		homeDir = s.home.Path()
	}
	storeCfg := cfg.StoreConfig(homeDir)

	var store jobs.Store
	err := retry.Do(
		func() error {
			var err error
			store, err = jobs.Open(ctx, storeCfg, s.logger)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(storeOpenAttempts),
		retry.Delay(storeOpenDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Warn("job store not ready, retrying", "backend", storeCfg.Backend, "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s job store: %w", storeCfg.Backend, err)
	}
	return store, nil
}

// label resolves the default oracle at call time so config reloads apply
// to the next job.
func (s *Server) label(ctx context.Context, req chapters.Request) (string, error) {
	cfg := s.configMgr.Get()
	client, err := s.registry.GetLLM(cfg.Defaults.LLMProvider)
	if err != nil {
		return "", err
	}

	labeler := cfg.NewLabeler(client)
	labeler.Logger = s.logger
	return labeler.Label(ctx, req)
}

// shutdown stops HTTP, cancels running jobs and closes the store.
func (s *Server) shutdown() {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if err := s.runner.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("jobs did not stop in time", "error", err)
	}

	if err := s.store.Close(); err != nil {
		s.logger.Error("job store close error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address. Once started this is the
// bound address, which matters when Port is "0".
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// Analyzer returns the analyzer jobs are segmented with.
func (s *Server) Analyzer() *pipeline.Analyzer {
	return s.analyzer
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		s.mu.RLock()
		services := s.services
		s.mu.RUnlock()
		if services != nil {
			ctx = svcctx.WithServices(ctx, services)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable if the job store or runner aren't ready.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svcctx.StoreFrom(r.Context()) == nil || svcctx.RunnerFrom(r.Context()) == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
