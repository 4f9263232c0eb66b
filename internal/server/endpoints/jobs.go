package endpoints

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/cobra"

	"github.com/jackzampolin/chaptermark/internal/api"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/pipeline"
	"github.com/jackzampolin/chaptermark/internal/svcctx"
)

// CreateJobResponse is the response for creating a job.
type CreateJobResponse struct {
	JobID string `json:"jobId"`
}

// CreateJobEndpoint handles POST /api/jobs.
// The job runs in the background; poll GET /api/jobs/{id} for the outcome.
type CreateJobEndpoint struct{}

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresInit() bool { return true }

func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTranscriptRequest(w, r)
	if !ok {
		return
	}
	in, err := req.Input()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil {
		writeError(w, http.StatusServiceUnavailable, "job runner not initialized")
		return
	}

	id, err := runner.Submit(r.Context(), pipeline.Request{
		Source:   pipeline.InlineSource{Input: in},
		Language: requestLanguage(r, req.Language),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, CreateJobResponse{JobID: id})
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var language, format string
	var wait bool
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "submit <file>",
		Short: "Submit a transcript for chapter generation",
		Long: `Submit a transcript file (.json segment array, .vtt or .srt captions).

Prints the job id. With --wait, polls until the job finishes and prints it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := ReadTranscriptRequest(args[0], format, language)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp CreateJobResponse
			if err := client.Post(ctx, "/api/jobs", body, &resp); err != nil {
				return err
			}
			if !wait {
				return api.Output(resp)
			}
			return outputFinishedJob(WaitForJob(ctx, client, resp.JobID, DefaultWaitOptions(timeout)))
		},
	}
	cmd.Flags().StringVar(&language, "language", "", "Transcript language (default from server config)")
	cmd.Flags().StringVar(&format, "format", "", "Transcript format: json, vtt or srt (default from extension)")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for the job to finish")
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultWaitTimeout, "Maximum time to wait with --wait")
	return cmd
}

// ListJobsResponse is the response for listing jobs.
type ListJobsResponse struct {
	Jobs []*jobs.Job `json:"jobs"`
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresInit() bool { return true }

func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "job store not initialized")
		return
	}

	status := jobs.Status(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown status %q", status))
		return
	}

	all, err := store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := ListJobsResponse{Jobs: make([]*jobs.Job, 0, len(all))}
	for _, job := range all {
		if status == "" || job.Status == status {
			resp.Jobs = append(resp.Jobs, job)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			path := "/api/jobs"
			if status != "" {
				path += "?" + url.Values{"status": {status}}.Encode()
			}
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status")
	return cmd
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresInit() bool { return true }

func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := lookupJob(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var chaptersOnly bool
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Get a job by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var job jobs.Job
			if err := client.Get(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0]), &job); err != nil {
				return err
			}
			if chaptersOnly {
				fmt.Println(job.Result)
				return nil
			}
			return api.Output(job)
		},
	}
	cmd.Flags().BoolVar(&chaptersOnly, "chapters", false, "Print only the chapter list")
	return cmd
}

// CancelJobResponse is the response for cancelling a job.
type CancelJobResponse struct {
	JobID     string `json:"jobId"`
	Cancelled bool   `json:"cancelled"`
}

// CancelJobEndpoint handles POST /api/jobs/{id}/cancel.
// Only jobs running on this server can be cancelled.
type CancelJobEndpoint struct{}

func (e *CancelJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs/{id}/cancel", e.handler
}

func (e *CancelJobEndpoint) RequiresInit() bool { return true }

func (e *CancelJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	job, ok := lookupJob(w, r)
	if !ok {
		return
	}
	if job.Status.Terminal() {
		writeError(w, http.StatusConflict, fmt.Sprintf("job already %s", job.Status))
		return
	}

	runner := svcctx.RunnerFrom(r.Context())
	if runner == nil || !runner.Cancel(job.ID) {
		writeError(w, http.StatusConflict, "job is not running on this server")
		return
	}
	writeJSON(w, http.StatusAccepted, CancelJobResponse{JobID: job.ID, Cancelled: true})
}

func (e *CancelJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp CancelJobResponse
			if err := client.Post(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0])+"/cancel", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// lookupJob loads the job named by the {id} path value.
// On failure it has already written the error response.
func lookupJob(w http.ResponseWriter, r *http.Request) (*jobs.Job, bool) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "job id is required")
		return nil, false
	}

	store := svcctx.StoreFrom(r.Context())
	if store == nil {
		writeError(w, http.StatusServiceUnavailable, "job store not initialized")
		return nil, false
	}

	job, err := store.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if job == nil {
		writeError(w, http.StatusNotFound, jobs.ErrJobNotFound.Error())
		return nil, false
	}
	return job, true
}

// Polling defaults for WaitForJob.
const (
	DefaultWaitTimeout  = 10 * time.Minute
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPoll      = 5 * time.Second
)

var errJobPending = errors.New("job still running")

// WaitOptions bound how long and how often WaitForJob polls.
type WaitOptions struct {
	Timeout  time.Duration
	Interval time.Duration
	MaxDelay time.Duration
}

// DefaultWaitOptions returns the default backoff with the given timeout.
func DefaultWaitOptions(timeout time.Duration) WaitOptions {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	return WaitOptions{Timeout: timeout, Interval: DefaultPollInterval, MaxDelay: DefaultMaxPoll}
}

// WaitForJob polls a job with exponential backoff until it is done or
// errored. Unknown jobs fail immediately.
func WaitForJob(ctx context.Context, client *api.Client, id string, opts WaitOptions) (*jobs.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	var last jobs.Job
	err := retry.Do(
		func() error {
			var job jobs.Job
			if err := client.Get(ctx, "/api/jobs/"+url.PathEscape(id), &job); err != nil {
				if api.IsNotFound(err) {
					return retry.Unrecoverable(err)
				}
				return err
			}
			last = job
			if !job.Status.Terminal() {
				return errJobPending
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(opts.Interval),
		retry.MaxDelay(opts.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if ctx.Err() != nil && last.ID != "" {
			return &last, fmt.Errorf("timed out waiting for job %s (status %s)", id, last.Status)
		}
		return nil, err
	}
	return &last, nil
}

// WaitJobCommand builds "jobs wait <id>".
func WaitJobCommand(getServerURL func() string) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "wait <id>",
		Short: "Wait for a job to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			return outputFinishedJob(WaitForJob(cmd.Context(), client, args[0], DefaultWaitOptions(timeout)))
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", DefaultWaitTimeout, "Maximum time to wait")
	return cmd
}

// outputFinishedJob prints the job and turns a job error into a command error.
func outputFinishedJob(job *jobs.Job, err error) error {
	if err != nil {
		return err
	}
	if err := api.Output(job); err != nil {
		return err
	}
	if job.Status == jobs.StatusError {
		return fmt.Errorf("job %s failed: %s", job.ID, job.Error)
	}
	return nil
}
