package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/config"
)

var errPostgresNotConfigured = errors.New("postgres pool not configured")

// Postgres wraps access to a pgx connection pool and stores blobs in the
// ticket_blobs table.
type Postgres struct {
	Pool *pgxpool.Pool
}

// NewPostgres establishes a connection pool when DSN is provided.
func NewPostgres(ctx context.Context, cfg config.PostgresConfig, logger *zap.Logger) (*Postgres, error) {
	if cfg.DSN == "" {
		logger.Warn("POSTGRES_DSN not provided; skipping database connection")
		return &Postgres{Pool: nil}, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.ConnMaxIdleSec > 0 {
		poolCfg.MaxConnIdleTime = time.Duration(cfg.ConnMaxIdleSec) * time.Second
	}
	if cfg.ConnMaxLifeSec > 0 {
		poolCfg.MaxConnLifetime = time.Duration(cfg.ConnMaxLifeSec) * time.Second
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	logger.Info("connected to postgres")
	return &Postgres{Pool: pool}, nil
}

// Close releases pool resources.
func (p *Postgres) Close() {
	if p != nil && p.Pool != nil {
		p.Pool.Close()
	}
}

// PoolHandle returns the underlying pgx pool.
func (p *Postgres) PoolHandle() *pgxpool.Pool {
	if p == nil {
		return nil
	}
	return p.Pool
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	pool, err := p.pool()
	if err != nil {
		return err
	}
	return pool.Ping(ctx)
}

func (p *Postgres) pool() (*pgxpool.Pool, error) {
	if p == nil || p.Pool == nil {
		return nil, errPostgresNotConfigured
	}
	return p.Pool, nil
}

func (p *Postgres) Read(ctx context.Context, key string) ([]byte, error) {
	pool, err := p.pool()
	if err != nil {
		return nil, err
	}
	const query = `SELECT value::text FROM ticket_blobs WHERE key=$1`
	var value string
	if err := pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlobNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (p *Postgres) Write(ctx context.Context, key string, data []byte) error {
	pool, err := p.pool()
	if err != nil {
		return err
	}
	const query = `
        INSERT INTO ticket_blobs (key, value, updated_at)
        VALUES ($1, $2::jsonb, NOW())
        ON CONFLICT (key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`
	_, err = pool.Exec(ctx, query, key, string(data))
	return err
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	pool, err := p.pool()
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `DELETE FROM ticket_blobs WHERE key=$1`, key)
	return err
}
