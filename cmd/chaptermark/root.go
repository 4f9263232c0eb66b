package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/config"
	"github.com/jackzampolin/chaptermark/internal/home"
	"github.com/jackzampolin/chaptermark/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "chaptermark",
	Short: "Generate chapter markers from time-aligned transcripts",
	Long: `chaptermark turns a time-aligned transcript into a short list of
"MM:SS Title" chapter markers.

The pipeline:
  - groups transcript segments by pauses and transition phrases
  - bounds the number of groups by the media duration
  - asks an LLM to title the major topic shifts
  - tracks each run as an asynchronous job`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		format, err := api.ParseOutputFormat(outputFormat)
		if err != nil {
			return err
		}
		api.SetOutputFormat(format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.chaptermark/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "chaptermark home directory (default: ~/.chaptermark)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml, json or text",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	rootCmd.AddCommand(versionCmd)
}

// newLogger builds the text logger used by long-running commands.
func newLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level: %w", err)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), nil
}

// loadConfig resolves the home directory and loads configuration from
// --config, ./config.yaml or the home directory.
func loadConfig(logger *slog.Logger) (*home.Dir, *config.Manager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path(), logger)
	if err != nil {
		return nil, nil, err
	}
	return h, mgr, nil
}
