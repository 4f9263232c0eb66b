package endpoints

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/pipeline"
	"github.com/jackzampolin/chaptermark/internal/svcctx"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// SegmentsEndpoint handles POST /api/segments.
// It runs grouping and prompt rendering synchronously without calling the
// oracle, which is useful for tuning cues and gap thresholds.
type SegmentsEndpoint struct{}

func (e *SegmentsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/segments", e.handler
}

func (e *SegmentsEndpoint) RequiresInit() bool { return true }

func (e *SegmentsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscriptRequest(w, r)
	if !ok {
		return
	}

	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner not initialized")
		return
	}

	in, err := req.Input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	segments, err := transcript.Decode(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	analysis, err := runner.Analyzer().Analyze(segments, requestLanguage(r, req.Language))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, transcript.ErrInvalidInput) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (e *SegmentsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var language, format string
	cmd := &cobra.Command{
		Use:   "segments <file>",
		Short: "Preview topic groups and the labeling prompt for a transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := ReadTranscriptRequest(args[0], format, language)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			var resp pipeline.Analysis
			if err := client.Post(cmd.Context(), "/api/segments", body, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Transcript language (default from server config)")
	cmd.Flags().StringVar(&format, "format", "", "Transcript format: json, vtt or srt (default from extension)")
	return cmd
}
