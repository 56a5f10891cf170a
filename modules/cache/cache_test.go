package cache

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/gofiber/storage/redis/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRedisAddr = "localhost:6379"

// checkRedisAvailable skips the test when no Redis server is listening.
// gofiber/storage/redis panics on connection failure, so we check first.
func checkRedisAvailable(t *testing.T) {
	t.Helper()
	conn, err := net.DialTimeout("tcp", testRedisAddr, 2*time.Second)
	if err != nil {
		t.Skipf("Redis not available at %s: %v", testRedisAddr, err)
	}
	conn.Close()
}

func setupTestCacheService(t *testing.T, prefix string) CacheService {
	t.Helper()
	checkRedisAvailable(t)

	store := redis.New(redis.Config{Host: "localhost", Port: 6379})
	svc := NewCacheService(store, prefix, time.Minute, nil)
	t.Cleanup(func() { store.Close() })
	return svc
}

type cachedTask struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

func TestCacheService_SetGetDelete(t *testing.T) {
	svc := setupTestCacheService(t, "test:cache:")
	ctx := context.Background()
	t.Cleanup(func() { svc.Delete(ctx, "id:1") })

	var got cachedTask
	found, err := svc.Get(ctx, "id:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, svc.Set(ctx, "id:1", cachedTask{ID: 1, Name: "write docs"}))

	found, err = svc.Get(ctx, "id:1", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cachedTask{ID: 1, Name: "write docs"}, got)

	require.NoError(t, svc.Delete(ctx, "id:1", "id:never-set"))
	found, err = svc.Get(ctx, "id:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	stats := svc.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
}

func TestCacheService_SetWithTTLExpires(t *testing.T) {
	svc := setupTestCacheService(t, "test:cache:")
	ctx := context.Background()

	require.NoError(t, svc.SetWithTTL(ctx, "ttl", cachedTask{ID: 2}, time.Second))
	time.Sleep(1500 * time.Millisecond)

	var got cachedTask
	found, err := svc.Get(ctx, "ttl", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNoop(t *testing.T) {
	var c CacheService = Noop{}
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1))
	var v int
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, c.Delete(ctx, "k"))
	assert.Equal(t, Stats{}, c.Stats())
}

func TestParseRedisAddr(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort int
	}{
		{addr: "localhost:6380", wantHost: "localhost", wantPort: 6380},
		{addr: ":6379", wantHost: "127.0.0.1", wantPort: 6379},
		{addr: "redis:abc", wantHost: "redis", wantPort: 6379},
		{addr: "garbage", wantHost: "127.0.0.1", wantPort: 6379},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port := parseRedisAddr(tt.addr)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestPluginModule_StartFailsWithoutRedis(t *testing.T) {
	m := NewPluginModule(PluginConfig{Addr: "127.0.0.1:1"}, nil)
	assert.Error(t, m.Start(context.Background()))
	assert.False(t, m.Health(context.Background()).Healthy)
	assert.NoError(t, m.Stop(context.Background()))
}
