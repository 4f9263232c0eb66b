package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	DefaultRedisPrefix = "chaptermark:job:"
	redisTxRetry       = 32
	redisScanCount     = 100
)

// RedisStore keeps jobs in Redis, one JSON document per key, so several
// server instances can share job state.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	now    func() time.Time
	logger *slog.Logger
}

// NewRedisStore wraps an existing client. An empty prefix uses DefaultRedisPrefix.
func NewRedisStore(rdb *goredis.Client, prefix string, logger *slog.Logger, opts ...Option) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if logger == nil {
		logger = slog.Default()
	}
	o := buildOptions(opts)
	return &RedisStore{rdb: rdb, prefix: prefix, now: o.now, logger: logger}
}

// OpenRedisStore connects to a redis:// URL and verifies the connection.
func OpenRedisStore(ctx context.Context, url, prefix string, logger *slog.Logger, opts ...Option) (*RedisStore, error) {
	ropts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := goredis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return NewRedisStore(rdb, prefix, logger, opts...), nil
}

func (s *RedisStore) key(id string) string {
	return s.prefix + id
}

func decodeJob(data []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// getter is satisfied by both *goredis.Client and *goredis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *goredis.StringCmd
}

func (s *RedisStore) load(ctx context.Context, c getter, id string) (*Job, error) {
	data, err := c.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	job, err := decodeJob(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode job %s: %w", id, err)
	}
	return job, nil
}

// mutate runs an optimistic WATCH/MULTI transaction on the job key.
func (s *RedisStore) mutate(ctx context.Context, id string, create bool, patch func(time.Time) Patch) (*Job, error) {
	key := s.key(id)
	var out *Job

	txf := func(tx *goredis.Tx) error {
		job, err := s.load(ctx, tx, id)
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

		data, err := json.Marshal(job)
		if err != nil {
			return fmt.Errorf("failed to encode job %s: %w", id, err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		if err != nil {
			return err
		}
		out = job
		return nil
	}

	for attempt := 0; attempt < redisTxRetry; attempt++ {
		err := s.rdb.Watch(ctx, txf, key)
		if errors.Is(err, goredis.TxFailedErr) {
			s.logger.Debug("job update conflict, retrying", "job_id", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return nil, err
		}
		return out, nil
	}
	return nil, fmt.Errorf("job %s: too many concurrent updates", id)
}

func (s *RedisStore) Update(ctx context.Context, id string, p Patch) (*Job, error) {
	return s.mutate(ctx, id, true, func(time.Time) Patch { return p })
}

func (s *RedisStore) StoreResult(ctx context.Context, id, text string) (*Job, error) {
	return s.mutate(ctx, id, false, func(now time.Time) Patch { return resultPatch(text, now) })
}

func (s *RedisStore) MarkError(ctx context.Context, id, msg string) (*Job, error) {
	return s.mutate(ctx, id, false, func(now time.Time) Patch { return errorPatch(msg, now) })
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Job, error) {
	return s.load(ctx, s.rdb, id)
}

func (s *RedisStore) List(ctx context.Context) ([]*Job, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", redisScanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan jobs: %w", err)
	}
	if len(keys) == 0 {
		return []*Job{}, nil
	}

	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load jobs: %w", err)
	}

	out := make([]*Job, 0, len(vals))
	for i, v := range vals {
		str, ok := v.(string)
		if !ok {
			// Evicted between SCAN and MGET.
			continue
		}
		job, err := decodeJob([]byte(str))
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
		}
		out = append(out, job)
	}
	sortJobs(out)
	return out, nil
}

// Evict deletes stale jobs, re-checking each under WATCH so a concurrent
// update keeps the job alive.
func (s *RedisStore) Evict(ctx context.Context, maxAge time.Duration) (int, error) {
	jobs, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, candidate := range jobs {
		if !candidate.LastModified().Before(s.now().Add(-maxAge)) {
			continue
		}
		key := s.key(candidate.ID)
		deleted := false
		err := s.rdb.Watch(ctx, func(tx *goredis.Tx) error {
			job, err := s.load(ctx, tx, candidate.ID)
			if err != nil || job == nil {
				return err
			}
			if !job.LastModified().Before(s.now().Add(-maxAge)) {
				return nil
			}
			_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
				pipe.Del(ctx, key)
				return nil
			})
			deleted = err == nil
			return err
		}, key)
		if errors.Is(err, goredis.TxFailedErr) {
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

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

var _ Store = (*RedisStore)(nil)
