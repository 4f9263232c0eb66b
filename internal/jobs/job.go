// Package jobs tracks the lifecycle of chapter-generation jobs.
package jobs

import (
	"context"
	"errors"
	"time"
)

// ErrJobNotFound is returned when completing a job that has no record.
var ErrJobNotFound = errors.New("job not found")

// Status represents the current state of a job.
type Status string

const (
	StatusWaiting      Status = "waiting"
	StatusProcessing   Status = "processing"
	StatusDownloading  Status = "downloading"
	StatusTranscribing Status = "transcribing"
	StatusGenerating   Status = "generating"
	StatusDone         Status = "done"
	StatusError        Status = "error"
)

// Terminal reports whether no further transitions are expected.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusWaiting, StatusProcessing, StatusDownloading, StatusTranscribing,
		StatusGenerating, StatusDone, StatusError:
		return true
	}
	return false
}

// Job is the single record kept per job id.
type Job struct {
	ID          string     `json:"jobId"`
	Status      Status     `json:"status"`
	Progress    int        `json:"progress"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy of j.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	if j.UpdatedAt != nil {
		t := *j.UpdatedAt
		c.UpdatedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// LastModified is the time retention is measured from.
func (j *Job) LastModified() time.Time {
	if j.UpdatedAt != nil {
		return *j.UpdatedAt
	}
	return j.CreatedAt
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Status      *Status
	Progress    *int
	Result      *string
	Error       *string
	CompletedAt *time.Time
}

// Progress builds a patch that moves a job to status at pct percent.
func Progress(status Status, pct int) Patch {
	return Patch{Status: &status, Progress: &pct}
}

func newJob(id string, now time.Time) *Job {
	return &Job{
		ID:        id,
		Status:    StatusWaiting,
		Progress:  0,
		CreatedAt: now,
	}
}

// apply merges p into j and stamps the update time.
func (j *Job) apply(p Patch, now time.Time) {
	if p.Status != nil {
		j.Status = *p.Status
	}
	if p.Progress != nil {
		j.Progress = clampProgress(*p.Progress)
	}
	if p.Result != nil {
		j.Result = *p.Result
	}
	if p.Error != nil {
		j.Error = *p.Error
	}
	if p.CompletedAt != nil {
		t := *p.CompletedAt
		j.CompletedAt = &t
	}
	j.UpdatedAt = &now
}

func clampProgress(p int) int {
	switch {
	case p < 0:
		return 0
	case p > 100:
		return 100
	}
	return p
}

func resultPatch(text string, now time.Time) Patch {
	status, pct := StatusDone, 100
	return Patch{Status: &status, Progress: &pct, Result: &text, CompletedAt: &now}
}

func errorPatch(msg string, now time.Time) Patch {
	status := StatusError
	return Patch{Status: &status, Error: &msg, CompletedAt: &now}
}

// Store is the job lifecycle store. Every operation is atomic over the
// whole record and returned jobs are copies.
type Store interface {
	// Update merges p into the job, creating a waiting record first if
	// none exists.
	Update(ctx context.Context, id string, p Patch) (*Job, error)

	// Get returns the job, or nil with no error when it does not exist.
	Get(ctx context.Context, id string) (*Job, error)

	// StoreResult marks the job done with the chapter text.
	StoreResult(ctx context.Context, id, text string) (*Job, error)

	// MarkError marks the job failed with msg.
	MarkError(ctx context.Context, id, msg string) (*Job, error)

	// List returns all jobs ordered by creation time.
	List(ctx context.Context) ([]*Job, error)

	// Evict removes jobs not modified within maxAge and reports how many.
	Evict(ctx context.Context, maxAge time.Duration) (int, error)

	Close() error
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
