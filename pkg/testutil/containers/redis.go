//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"marina/internal/platform/config"
	platformredis "marina/internal/platform/redis"
)

// RedisContainer is a throwaway Redis reached through the same Open path the
// server uses.
type RedisContainer struct {
	URL    string
	Client *redis.Client

	container *tcredis.RedisContainer
}

// NewRedisContainer starts redis:7-alpine. The Manager owns its lifetime and
// Ryuk reaps it when the test binary exits.
func NewRedisContainer(t *testing.T) *RedisContainer {
	t.Helper()
	ctx := context.Background()

	c, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	url, err := c.ConnectionString(ctx)
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("redis connection string: %v", err)
	}
	client, err := platformredis.Open(ctx, config.RedisConfig{URL: url})
	if err != nil {
		_ = c.Terminate(ctx)
		t.Fatalf("open redis: %v", err)
	}
	return &RedisContainer{URL: url, Client: client, container: c}
}

// Reset drops every key so each test starts from an empty keyspace.
func (r *RedisContainer) Reset(ctx context.Context) error {
	return r.Client.FlushDB(ctx).Err()
}
