package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artifactlab/review-scoring/internal/config"
)

func setupTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisCacheFromClient(client), mr
}

func TestRedisCache_GetMissingKey(t *testing.T) {
	c, _ := setupTestCache(t)

	val, err := c.Get(context.Background(), "absent")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestRedisCache_SetGetDel(t *testing.T) {
	c, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "aggregate:1:stories", `{"overall_score":3}`, time.Minute))

	val, err := c.Get(ctx, "aggregate:1:stories")
	require.NoError(t, err)
	assert.Equal(t, `{"overall_score":3}`, val)

	mr.FastForward(2 * time.Minute)
	val, err = c.Get(ctx, "aggregate:1:stories")
	require.NoError(t, err)
	assert.Empty(t, val, "value expires after its TTL")

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	require.NoError(t, c.Del(ctx, "k"))
	assert.False(t, mr.Exists("k"))
	assert.NoError(t, c.Health(ctx))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	c, err := NewRedisCache(context.Background(), &config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)})
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Health(context.Background()))
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &config.RedisConfig{Host: mr.Host(), Port: mustPort(t, mr)}
	mr.Close()

	_, err := NewRedisCache(context.Background(), cfg)
	assert.Error(t, err)
}

func mustPort(t *testing.T, mr *miniredis.Miniredis) int {
	t.Helper()
	var port int
	_, err := fmt.Sscanf(mr.Port(), "%d", &port)
	require.NoError(t, err)
	return port
}
