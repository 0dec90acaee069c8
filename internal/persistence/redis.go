package persistence

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/supportpilot/internal/config"
)

var errRedisNotConfigured = errors.New("redis client not configured")

// Redis keeps each blob as one string value.
type Redis struct {
	Client *redis.Client
}

// NewRedis builds the client. An unreachable server is only logged: reads
// and writes fail until it comes back, and the ticket repository degrades.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("using redis store", zap.String("addr", cfg.Addr), zap.Int("db", cfg.DB))
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

func (r *Redis) client() (*redis.Client, error) {
	if r == nil || r.Client == nil {
		return nil, errRedisNotConfigured
	}
	return r.Client, nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	return c.Ping(ctx).Err()
}

func (r *Redis) Read(ctx context.Context, key string) ([]byte, error) {
	c, err := r.client()
	if err != nil {
		return nil, err
	}
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobNotFound
	}
	return data, err
}

func (r *Redis) Write(ctx context.Context, key string, data []byte) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, 0).Err()
}

func (r *Redis) Remove(ctx context.Context, key string) error {
	c, err := r.client()
	if err != nil {
		return err
	}
	return c.Del(ctx, key).Err()
}
