package jobs

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps jobs in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	now  func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	o := buildOptions(opts)
	return &MemoryStore{
		jobs: make(map[string]*Job),
		now:  o.now,
	}
}

func (s *MemoryStore) Update(_ context.Context, id string, p Patch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	job, ok := s.jobs[id]
	if !ok {
		job = newJob(id, now)
		s.jobs[id] = job
	}
	job.apply(p, now)
	return job.Clone(), nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobs[id].Clone(), nil
}

func (s *MemoryStore) StoreResult(_ context.Context, id, text string) (*Job, error) {
	return s.complete(id, func(now time.Time) Patch { return resultPatch(text, now) })
}

func (s *MemoryStore) MarkError(_ context.Context, id, msg string) (*Job, error) {
	return s.complete(id, func(now time.Time) Patch { return errorPatch(msg, now) })
}

func (s *MemoryStore) complete(id string, patch func(time.Time) Patch) (*Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	now := s.now()
	job.apply(patch(now), now)
	return job.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	s.mu.RLock()
	out := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sortJobs(out)
	return out, nil
}

func (s *MemoryStore) Evict(_ context.Context, maxAge time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-maxAge)
	removed := 0
	for id, job := range s.jobs {
		if job.LastModified().Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Close() error { return nil }

func sortJobs(jobs []*Job) {
	sort.SliceStable(jobs, func(i, k int) bool {
		if jobs[i].CreatedAt.Equal(jobs[k].CreatedAt) {
			return jobs[i].ID < jobs[k].ID
		}
		return jobs[i].CreatedAt.Before(jobs[k].CreatedAt)
	})
}

var _ Store = (*MemoryStore)(nil)
