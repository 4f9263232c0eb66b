package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the chaptermark server",
	Long: `Start the chaptermark HTTP server.

The job store comes from the jobs section of the config: memory (default),
badger (durable, under ~/.chaptermark/jobs) or redis (shared between
instances). Editing the config file reloads LLM providers and segmenter cues
without a restart.

The server provides:
  - /health, /ready, /status
  - /api/jobs, /api/jobs/{id}, /api/jobs/{id}/cancel
  - /api/segments

Examples:
  chaptermark serve                    # Start on default port 8080
  chaptermark serve --port 3000        # Start on custom port
  chaptermark serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stdout)
		if err != nil {
			return err
		}

		h, cfgMgr, err := loadConfig(logger)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}
		if f := cfgMgr.ConfigFile(); f != "" {
			logger.Info("loaded config", "file", f)
			cfgMgr.WatchConfig()
		}

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on")

	rootCmd.AddCommand(serveCmd)
}
