package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const (
	badgerKeyPrefix     = "job:"
	badgerConflictRetry = 32
)

// BadgerStore persists jobs in a local badger database, one JSON
// document per key.
type BadgerStore struct {
	db     *badger.DB
	now    func() time.Time
	logger *slog.Logger
}

// OpenBadgerStore opens (or creates) a badger database at path.
// An empty path opens an in-memory database.
func OpenBadgerStore(path string, logger *slog.Logger, opts ...Option) (*BadgerStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	bopts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		bopts = bopts.WithInMemory(true)
	}

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %q: %w", path, err)
	}

	o := buildOptions(opts)
	return &BadgerStore{db: db, now: o.now, logger: logger}, nil
}

func badgerKey(id string) []byte {
	return []byte(badgerKeyPrefix + id)
}

func readJob(txn *badger.Txn, id string) (*Job, error) {
	item, err := txn.Get(badgerKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job Job
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &job)
	}); err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return &job, nil
}

func writeJob(txn *badger.Txn, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job %s: %w", job.ID, err)
	}
	return txn.Set(badgerKey(job.ID), data)
}

// mutate runs a read-modify-write transaction, retrying on conflicts.
func (s *BadgerStore) mutate(ctx context.Context, id string, create bool, patch func(time.Time) Patch) (*Job, error) {
	var out *Job
	var err error
	for attempt := 0; attempt < badgerConflictRetry; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			job, err := readJob(txn, id)
			if err != nil {
				return err
			}
			now := s.now()
			if job == nil {
				if !create {
					return ErrJobNotFound
				}
				job = newJob(id, now)
			}
			job.apply(patch(now), now)
			if err := writeJob(txn, job); err != nil {
				return err
			}
			out = job
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
		s.logger.Debug("job update conflict, retrying", "job_id", id, "attempt", attempt+1)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BadgerStore) Update(ctx context.Context, id string, p Patch) (*Job, error) {
	return s.mutate(ctx, id, true, func(time.Time) Patch { return p })
}

func (s *BadgerStore) StoreResult(ctx context.Context, id, text string) (*Job, error) {
	return s.mutate(ctx, id, false, func(now time.Time) Patch { return resultPatch(text, now) })
}

func (s *BadgerStore) MarkError(ctx context.Context, id, msg string) (*Job, error) {
	return s.mutate(ctx, id, false, func(now time.Time) Patch { return errorPatch(msg, now) })
}

func (s *BadgerStore) Get(_ context.Context, id string) (*Job, error) {
	var job *Job
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		job, err = readJob(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return job, nil
}

func (s *BadgerStore) List(_ context.Context) ([]*Job, error) {
	var out []*Job
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(badgerKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			var job Job
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &job)
			}); err != nil {
				return fmt.Errorf("failed to decode %s: %w", it.Item().Key(), err)
			}
			out = append(out, &job)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortJobs(out)
	return out, nil
}

// Evict deletes stale jobs. Each candidate is re-checked inside its own
// transaction so a concurrent update keeps the job alive.
func (s *BadgerStore) Evict(ctx context.Context, maxAge time.Duration) (int, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, candidate := range jobs {
		if !candidate.LastModified().Before(s.now().Add(-maxAge)) {
			continue
		}
		deleted := false
		err := s.db.Update(func(txn *badger.Txn) error {
			job, err := readJob(txn, candidate.ID)
			if err != nil || job == nil {
				return err
			}
			if !job.LastModified().Before(s.now().Add(-maxAge)) {
				return nil
			}
			deleted = true
			return txn.Delete(badgerKey(job.ID))
		})
		if errors.Is(err, badger.ErrConflict) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}

func (s *BadgerStore) Close() error {
	return s.db.Close()
}

var _ Store = (*BadgerStore)(nil)
