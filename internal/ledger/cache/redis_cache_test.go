package cache_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/chankeeper/chankeeper/internal/ledger/cache"
)

func startRedisContainer(t *testing.T) string {
	t.Helper()

	ctx := context.Background()

	redisC, err := tcredis.Run(ctx, "redis:alpine")
	require.NoError(t, err)

	t.Cleanup(func() {
		if err := redisC.Terminate(context.Background()); err != nil {
			t.Logf("failed to stop redis container: %v", err)
		}
	})

	connString, err := redisC.ConnectionString(ctx)
	require.NoError(t, err)

	return strings.TrimPrefix(connString, "redis://")
}

func TestRedisViewCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisURL := startRedisContainer(t)

	viewCache, err := cache.NewRedisViewCache(redisURL, "", 0, 30*time.Second, "#chan", logger)
	require.NoError(t, err)

	defer viewCache.Close()

	ctx := context.Background()

	_, ok, err := viewCache.Get(ctx, "#chan:L1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, viewCache.Set(ctx, "#chan:L1", "L1: A Read <https://example.com/a> (Alice)"))
	require.NoError(t, viewCache.Set(ctx, "#chan:L2", "L2: Another <https://example.com/b> (Bob)"))

	view, ok, err := viewCache.Get(ctx, "#chan:L1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "L1: A Read <https://example.com/a> (Alice)", view)

	// One mutation anywhere clears every cached view.
	require.NoError(t, viewCache.InvalidateAll(ctx))

	_, ok, err = viewCache.Get(ctx, "#chan:L1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = viewCache.Get(ctx, "#chan:L2")
	require.NoError(t, err)
	assert.False(t, ok)

	// InvalidateAll on an empty cache is fine.
	require.NoError(t, viewCache.InvalidateAll(ctx))
}

func TestRedisViewCache_TTL(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	redisURL := startRedisContainer(t)

	viewCache, err := cache.NewRedisViewCache(redisURL, "", 0, 1*time.Second, "#chan", logger)
	require.NoError(t, err)

	defer viewCache.Close()

	ctx := context.Background()

	require.NoError(t, viewCache.Set(ctx, "#chan:L1", "L1: A Read <https://example.com/a> (Alice)"))

	_, ok, err := viewCache.Get(ctx, "#chan:L1")
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(2 * time.Second)

	_, ok, err = viewCache.Get(ctx, "#chan:L1")
	require.NoError(t, err)
	assert.False(t, ok)
}
