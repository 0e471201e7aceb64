package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimExpires(t *testing.T) {
	c := New()
	defer c.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	ok, err := c.Claim(ctx, "k", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = c.Claim(ctx, "k", time.Minute)
	assert.False(t, ok, "held key cannot be claimed")

	now = now.Add(time.Minute)
	ok, _ = c.Claim(ctx, "k", time.Minute)
	assert.True(t, ok, "expired key can be claimed again")
}

func TestReleaseFreesKey(t *testing.T) {
	c := New()
	defer c.Close()
	ctx := context.Background()

	ok, _ := c.Claim(ctx, "k", time.Hour)
	require.True(t, ok)
	require.NoError(t, c.Release(ctx, "k"))
	ok, _ = c.Claim(ctx, "k", time.Hour)
	assert.True(t, ok)
}

func TestEvictAndStats(t *testing.T) {
	c := New()
	defer c.Close()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, _ = c.Claim(ctx, "short", time.Second)
	_, _ = c.Claim(ctx, "long", time.Hour)
	now = now.Add(time.Minute)

	stats := c.Stats(ctx)
	assert.Equal(t, 2, stats["total_keys"])
	assert.Equal(t, 1, stats["active_keys"])

	c.evict()
	assert.Equal(t, 1, c.Stats(ctx)["total_keys"])
}

func TestCloseIsIdempotent(t *testing.T) {
	c := New()
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
}

func TestOpenPicksBackend(t *testing.T) {
	mem := Open("", "")
	defer mem.Close()
	assert.IsType(t, &Cache{}, mem)

	r := Open("localhost:6379", "")
	defer r.Close()
	assert.IsType(t, &Redis{}, r)
}

func TestRedisClaim(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	r := NewRedis(addr, os.Getenv("TEST_REDIS_PASS"))
	defer r.Close()
	ctx := context.Background()
	key := "test:" + uuid.NewString()

	ok, err := r.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = r.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, r.Release(ctx, key))
	ok, err = r.Claim(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, r.Release(ctx, key))

	assert.Equal(t, true, r.Stats(ctx)["reachable"])
}
