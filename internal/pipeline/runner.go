// Package pipeline runs chapter-generation jobs: fetch the transcript,
// group it by topic, ask the labeling oracle for titles and record the
// outcome in the job store.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jackzampolin/chaptermark/internal/chapters"
	"github.com/jackzampolin/chaptermark/internal/jobs"
	"github.com/jackzampolin/chaptermark/internal/transcript"
)

// Progress checkpoints reported while a job runs.
const (
	ProgressStarted  = 5
	ProgressFetching = 10
	ProgressDecoding = 30
	ProgressLabeling = 60
	ProgressLabeled  = 90
)

// Labeler produces the chapter artifact for a rendered request.
type Labeler interface {
	Label(ctx context.Context, req chapters.Request) (string, error)
}

// LabelerFunc adapts a function to Labeler.
type LabelerFunc func(ctx context.Context, req chapters.Request) (string, error)

func (f LabelerFunc) Label(ctx context.Context, req chapters.Request) (string, error) {
	return f(ctx, req)
}

// Request describes one job.
type Request struct {
	Source   Source
	Language string
}

// Runner executes jobs in the background, one goroutine per job.
type Runner struct {
	store    jobs.Store
	labeler  Labeler
	analyzer *Analyzer
	logger   *slog.Logger

	mu      sync.Mutex
	running map[string]context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a runner. A nil analyzer uses NewAnalyzer.
func NewRunner(store jobs.Store, labeler Labeler, analyzer *Analyzer, logger *slog.Logger) *Runner {
	if analyzer == nil {
		analyzer = NewAnalyzer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		store:    store,
		labeler:  labeler,
		analyzer: analyzer,
		logger:   logger,
		running:  make(map[string]context.CancelFunc),
	}
}

// Analyzer returns the analyzer jobs are segmented with.
func (r *Runner) Analyzer() *Analyzer {
	return r.analyzer
}

// Submit records a new waiting job and starts it in the background.
// The job outlives ctx; use Cancel to stop it.
func (r *Runner) Submit(ctx context.Context, req Request) (string, error) {
	id := uuid.New().String()
	if _, err := r.store.Update(ctx, id, jobs.Progress(jobs.StatusWaiting, 0)); err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.mu.Lock()
	r.running[id] = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.forget(id)
		_, _ = r.Execute(jobCtx, id, req)
	}()

	r.logger.Info("job submitted", "job_id", id, "language", req.Language)
	return id, nil
}

func (r *Runner) forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cancel, ok := r.running[id]; ok {
		cancel()
		delete(r.running, id)
	}
}

// Cancel stops a running job. It reports false if the job is not running.
func (r *Runner) Cancel(id string) bool {
	r.mu.Lock()
	cancel, ok := r.running[id]
	r.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Running returns the number of jobs in flight.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.running)
}

// Wait blocks until all submitted jobs have finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Shutdown cancels every running job and waits for them to stop or for
// ctx to end.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	for _, cancel := range r.running {
		cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Execute runs job id to completion in the calling goroutine. Any failure
// is recorded on the job with MarkError and also returned.
func (r *Runner) Execute(ctx context.Context, id string, req Request) (string, error) {
	logger := r.logger.With("job_id", id)

	artifact, err := r.execute(ctx, id, req, logger)
	if err == nil {
		return artifact, nil
	}

	if ctx.Err() != nil && errors.Is(err, context.Canceled) {
		err = ErrCancelled
	}
	logger.Warn("job failed", "error", err)

	// The job context may be gone; completion must still be recorded.
	if _, markErr := r.store.MarkError(context.WithoutCancel(ctx), id, err.Error()); markErr != nil {
		logger.Error("failed to record job error", "error", markErr)
	}
	return "", err
}

func (r *Runner) execute(ctx context.Context, id string, req Request, logger *slog.Logger) (string, error) {
	advance := func(status jobs.Status, pct int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.store.Update(ctx, id, jobs.Progress(status, pct)); err != nil {
			return fmt.Errorf("failed to update job: %w", err)
		}
		logger.Debug("job progress", "status", status, "progress", pct)
		return nil
	}

	if req.Source == nil {
		return "", fmt.Errorf("%w: no transcript source", transcript.ErrInvalidInput)
	}
	if err := advance(jobs.StatusProcessing, ProgressStarted); err != nil {
		return "", err
	}

	if err := advance(jobs.StatusDownloading, ProgressFetching); err != nil {
		return "", err
	}
	input, err := req.Source.Fetch(ctx)
	if err != nil {
		if errors.Is(err, transcript.ErrInvalidInput) || errors.Is(err, context.Canceled) {
			return "", err
		}
		return "", &CollaboratorError{Collaborator: CollaboratorSource, Err: err}
	}

	if err := advance(jobs.StatusTranscribing, ProgressDecoding); err != nil {
		return "", err
	}
	segments, err := transcript.Decode(input)
	if err != nil {
		return "", err
	}

	if err := advance(jobs.StatusGenerating, ProgressLabeling); err != nil {
		return "", err
	}
	analysis, err := r.analyzer.Analyze(segments, req.Language)
	if err != nil {
		return "", err
	}
	logger.Info("transcript segmented",
		"segments", analysis.Segments,
		"groups", len(analysis.Groups),
		"duration", analysis.Duration,
		"band_min", analysis.Band.Min,
		"band_max", analysis.Band.Max)

	if r.labeler == nil {
		return "", &CollaboratorError{Collaborator: CollaboratorLabeler, Err: errors.New("no labeler configured")}
	}
	artifact, err := r.labeler.Label(ctx, analysis.Request)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", &CollaboratorError{Collaborator: CollaboratorLabeler, Err: err}
	}
	if err := advance(jobs.StatusGenerating, ProgressLabeled); err != nil {
		return "", err
	}

	if _, err := r.store.StoreResult(ctx, id, artifact); err != nil {
		return "", fmt.Errorf("failed to store result: %w", err)
	}
	logger.Info("job completed")
	return artifact, nil
}
