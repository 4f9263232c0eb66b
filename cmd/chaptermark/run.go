package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/chapters"
	"github.com/jackzampolin/chaptermark/internal/config"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/pipeline"
	"github.com/jackzampolin/chaptermark/internal/providers"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

var (
	runLanguage string
	runFormat   string
	runProvider string
	runDryRun   bool
	runChapters bool
)

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Generate chapters for a transcript without a server",
	Long: `Run the full pipeline locally against a transcript file
(.json segment array, .vtt or .srt captions) and print the finished job.

Examples:
  chaptermark run talk.json --chapters        # print only the chapter list
  chaptermark run talk.vtt --language ko       # Korean transition cues
  chaptermark run talk.json --dry-run          # show groups and prompt, skip the LLM
  chaptermark run talk.json --provider mock    # offline run with the mock provider`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		// Logs go to stderr so stdout stays machine-readable.
		logger, err := newLogger(os.Stderr)
		if err != nil {
			return err
		}
		_, mgr, err := loadConfig(logger)
		if err != nil {
			return err
		}
		cfg := mgr.Get()

		language := runLanguage
		if language == "" {
			language = cfg.Defaults.Language
		}
		source := pipeline.FileSource{Path: args[0], Format: transcript.Format(runFormat)}

		analyzer := pipeline.NewAnalyzer()
		cues, err := cfg.CueSets()
		if err != nil {
			return err
		}
		analyzer.Configure(cfg.Segmenter.GapSeconds, cues)

		if runDryRun {
			analysis, err := analyze(ctx, analyzer, source, language)
			if err != nil {
				return err
			}
			return api.Output(analysis)
		}

		labeler, err := newLocalLabeler(cfg, runProvider)
		if err != nil {
			return err
		}
		labeler.Logger = logger

		store := jobs.NewMemoryStore()
		defer store.Close()
		runner := pipeline.NewRunner(store, labeler, analyzer, logger)

		id := uuid.New().String()
		if _, err := store.Update(ctx, id, jobs.Progress(jobs.StatusWaiting, 0)); err != nil {
			return err
		}
		_, runErr := runner.Execute(ctx, id, pipeline.Request{Source: source, Language: language})

		job, err := store.Get(context.WithoutCancel(ctx), id)
		if err != nil {
			return err
		}
		if runChapters && runErr == nil {
			fmt.Println(job.Result)
			return nil
		}
		if err := api.Output(job); err != nil {
			return err
		}
		return runErr
	},
}

// analyze decodes and groups a transcript without labeling it.
func analyze(ctx context.Context, analyzer *pipeline.Analyzer, source pipeline.Source, language string) (*pipeline.Analysis, error) {
	input, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	segments, err := transcript.Decode(input)
	if err != nil {
		return nil, err
	}
	return analyzer.Analyze(segments, language)
}

// newLocalLabeler builds a labeler for the named provider, or the
// configured default when name is empty.
func newLocalLabeler(cfg *config.Config, name string) (*chapters.Labeler, error) {
	if name == "" {
		name = cfg.Defaults.LLMProvider
	}
	registry := providers.NewRegistryFromConfig(cfg.ToProviderRegistryConfig())
	client, err := registry.GetLLM(name)
	if err != nil {
		return nil, fmt.Errorf("%w (is the provider enabled and its API key set?)", err)
	}

	return cfg.NewLabeler(client), nil
}

func init() {
	runCmd.Flags().StringVar(&runLanguage, "language", "", "Transcript language (default from config)")
	runCmd.Flags().StringVar(&runFormat, "format", "", "Transcript format: json, vtt or srt (default from extension)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "LLM provider name (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Print groups and the prompt without calling the LLM")
	runCmd.Flags().BoolVar(&runChapters, "chapters", false, "Print only the chapter list")

	rootCmd.AddCommand(runCmd)
}
