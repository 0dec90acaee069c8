package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/config"
)

// Open connects the blob backend selected by cfg.Store.Driver. The returned
// close func releases its connections and is never nil.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (BlobStore, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		logger.Warn("using in-memory ticket store; data is lost on restart")
		return NewMemory(), func() {}, nil

	case config.StoreDriverRedis:
		redis := NewRedis(cfg.Redis, logger)
		return redis, redis.Close, nil

	case config.StoreDriverPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), cfg.Postgres.MigrationsDir, logger); err != nil {
				pg.Close()
				return nil, nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		return pg, pg.Close, nil

	case config.StoreDriverFile, "":
		file, err := NewFile(cfg.Store.Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return file, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}
