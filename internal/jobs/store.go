package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
	BackendRedis  = "redis"
)

// StoreConfig selects and configures a Store backend.
type StoreConfig struct {
	Backend     string
	BadgerPath  string
	RedisURL    string
	RedisPrefix string
}

// Open builds the configured store. An empty backend means memory.
func Open(ctx context.Context, cfg StoreConfig, logger *slog.Logger, opts ...Option) (Store, error) {
	switch cfg.Backend {
	case "", BackendMemory:
		return NewMemoryStore(opts...), nil
	case BackendBadger:
		if cfg.BadgerPath == "" {
			return nil, fmt.Errorf("badger store requires a path")
		}
		return OpenBadgerStore(cfg.BadgerPath, logger, opts...)
	case BackendRedis:
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("redis store requires a url")
		}
		return OpenRedisStore(ctx, cfg.RedisURL, cfg.RedisPrefix, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown job store backend %q", cfg.Backend)
	}
}
