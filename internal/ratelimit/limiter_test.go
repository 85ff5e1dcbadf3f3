package ratelimit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appconfig "github.com/ZanzyTHEbar/similar-dev-search/internal/config"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/resilience"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *monitoring.Logger {
	return monitoring.NewLoggerWithWriter(io.Discard, slog.LevelError)
}

func newFallbackLimiter(t *testing.T, config Config) (*RateLimiter, *monitoring.Metrics) {
	t.Helper()

	store, err := OpenRedisStore(context.Background(), &appconfig.Config{}, testLogger())
	require.NoError(t, err)
	require.False(t, store.Connected())

	metrics := monitoring.NewMetrics()
	limiter := NewRateLimiter(store, config, metrics, testLogger())
	t.Cleanup(limiter.Close)
	return limiter, metrics
}

func TestRateLimiter_FallbackBlocksAfterLimit(t *testing.T) {
	limiter, metrics := newFallbackLimiter(t, Config{IPLimitPerMin: 5, BurstMultiplier: 1})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d should be allowed", i+1)
		assert.Equal(t, 5, result.Limit)
		assert.Equal(t, 4-i, result.Remaining)
	}

	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 12*time.Second, result.RetryAfter)

	other, err := limiter.AllowIP(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, other.Allowed, "limits are tracked per IP")

	assert.Equal(t, int64(7), metrics.GetRateLimitStats()["fallback_count"])
}

func TestRateLimiter_RedisFailuresTripBreaker(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 50 * time.Millisecond,
	})
	t.Cleanup(func() { _ = client.Close() })

	metrics := monitoring.NewMetrics()
	store := &RedisStore{client: client, logger: testLogger(), addr: "127.0.0.1:1"}
	limiter := NewRateLimiter(store, Config{IPLimitPerMin: 100}, metrics, testLogger())
	t.Cleanup(limiter.Close)
	require.NotNil(t, limiter.redisLimiter)

	ctx := context.Background()
	for i := 0; i < redisFailureThreshold+3; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.9")
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	assert.Equal(t, resilience.StateOpen, limiter.breaker.State())
	stats := metrics.GetRateLimitStats()
	assert.Equal(t, int64(redisFailureThreshold), stats["redis_errors"])
	assert.Equal(t, int64(redisFailureThreshold+3), stats["fallback_count"])
}

func TestRateLimiter_BurstMultiplier(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{IPLimitPerMin: 3, BurstMultiplier: 2})
	ctx := context.Background()

	allowed := 0
	for i := 0; i < 10; i++ {
		result, err := limiter.AllowIP(ctx, "10.0.0.1")
		require.NoError(t, err)
		if result.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 6, allowed)
}

func TestRateLimiter_ZeroLimitDisables(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{IPLimitPerMin: 0})

	for i := 0; i < 100; i++ {
		result, err := limiter.AllowIP(context.Background(), "10.0.0.1")
		require.NoError(t, err)
		require.True(t, result.Allowed)
	}
}

func TestRateLimiter_EndpointIsolatedFromIP(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{IPLimitPerMin: 100, SnapshotLimitPerMin: 1})
	ctx := context.Background()

	first, err := limiter.AllowEndpoint(ctx, "snapshots", "10.0.0.1", 1)
	require.NoError(t, err)
	assert.True(t, first.Allowed)

	second, err := limiter.AllowEndpoint(ctx, "snapshots", "10.0.0.1", 1)
	require.NoError(t, err)
	assert.False(t, second.Allowed)

	ip, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, ip.Allowed)
}

func TestRateLimiter_InvalidateIP(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{IPLimitPerMin: 1})
	ctx := context.Background()

	_, _ = limiter.AllowIP(ctx, "10.0.0.1")
	_, _ = limiter.AllowEndpoint(ctx, "snapshots", "10.0.0.1", 1)
	_, _ = limiter.AllowIP(ctx, "10.0.0.2")
	blocked, _ := limiter.AllowIP(ctx, "10.0.0.1")
	require.False(t, blocked.Allowed)

	require.NoError(t, limiter.InvalidateIP(ctx, "10.0.0.1"))
	assert.Equal(t, 1, limiter.GetStats()["fallback_limiters"])

	result, err := limiter.AllowIP(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestRateLimiter_EvictIdle(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, Config{IPLimitPerMin: 10})
	ctx := context.Background()

	_, _ = limiter.AllowIP(ctx, "10.0.0.1")
	_, _ = limiter.AllowIP(ctx, "10.0.0.2")

	assert.Equal(t, 0, limiter.evictIdle(time.Now().Add(-time.Minute)))
	assert.Equal(t, 2, limiter.evictIdle(time.Now().Add(time.Minute)))
	assert.Equal(t, 0, limiter.GetStats()["fallback_limiters"])
}

func TestRateLimiter_Stats(t *testing.T) {
	limiter, _ := newFallbackLimiter(t, DefaultConfig())

	stats := limiter.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, 60, stats["ip_limit_per_min"])
	assert.Equal(t, 10, stats["snapshot_limit_per_min"])
	assert.NotContains(t, stats, "redis_pool")
	assert.Contains(t, stats, "metrics")
}

func TestRedisStore_Unconfigured(t *testing.T) {
	var logs bytes.Buffer
	store, err := OpenRedisStore(context.Background(), &appconfig.Config{RedisDB: 2},
		monitoring.NewLoggerWithWriter(&logs, slog.LevelInfo))
	require.NoError(t, err)

	assert.False(t, store.Connected())
	assert.Equal(t, RedisStats{Backend: "memory", DB: 2}, store.Stats())
	assert.NoError(t, store.Close())
	assert.Contains(t, logs.String(), "REDIS_ADDR not set")

	var nilStore *RedisStore
	assert.False(t, nilStore.Connected())
	assert.Equal(t, "memory", nilStore.Stats().Backend)
}

func TestRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	store, err := OpenRedisStore(ctx, &appconfig.Config{RedisAddr: "127.0.0.1:1", RedisDB: 3}, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "127.0.0.1:1")
	require.NotNil(t, store)
	assert.False(t, store.Connected())
	assert.Equal(t, RedisStats{Backend: "memory", Addr: "127.0.0.1:1", DB: 3}, store.Stats())
}

func TestRedisStore_StatsWhenConnected(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
	store := &RedisStore{client: client, logger: testLogger(), addr: "127.0.0.1:1", db: 1}
	t.Cleanup(func() { _ = store.Close() })

	stats := store.Stats()
	assert.Equal(t, "redis", stats.Backend)
	assert.Equal(t, "127.0.0.1:1", stats.Addr)
	assert.Equal(t, 1, stats.DB)

	encoded, err := json.Marshal(stats)
	require.NoError(t, err)
	for _, key := range []string{"backend", "addr", "db", "hits", "misses", "timeouts", "total_conns", "idle_conns"} {
		assert.Contains(t, string(encoded), `"`+key+`"`)
	}
}

func TestRetrySeconds(t *testing.T) {
	assert.Equal(t, 1, retrySeconds(0))
	assert.Equal(t, 1, retrySeconds(200*time.Millisecond))
	assert.Equal(t, 12, retrySeconds(12*time.Second))
	assert.Equal(t, 13, retrySeconds(12*time.Second+time.Millisecond))
}

func TestIPRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, metrics := newFallbackLimiter(t, Config{IPLimitPerMin: 2})

	router := gin.New()
	router.Use(limiter.IPRateLimitMiddleware("/health"))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/work", func(c *gin.Context) { c.Status(http.StatusOK) })

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	for i := 0; i < 2; i++ {
		w := get("/work")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := get("/work")
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "30", w.Header().Get("Retry-After"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["error"])
	assert.Equal(t, float64(30), body["retry_after"])
	assert.Contains(t, body["message"], "2 requests per minute")

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, get("/health").Code)
	}
	assert.Equal(t, int64(1), metrics.GetRateLimitStats()["ip_blocks"])
}

func TestEndpointRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, metrics := newFallbackLimiter(t, Config{IPLimitPerMin: 100})

	router := gin.New()
	router.POST("/snapshots", limiter.EndpointRateLimitMiddleware("snapshots", 1), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/snapshots", nil))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/snapshots", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, int64(1), metrics.GetRateLimitStats()["endpoint_blocks"])
}

func TestHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	limiter, _ := newFallbackLimiter(t, DefaultConfig())

	router := gin.New()
	router.GET("/ratelimit/status", limiter.HandleRateLimitStatus())
	router.GET("/ratelimit/stats", limiter.HandleStats())
	router.DELETE("/ratelimit/ip/:ip", limiter.HandleInvalidateIP())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/status", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ip_per_minute"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ratelimit/stats", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"limiter_stats"`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/ratelimit/ip/10.0.0.9", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"10.0.0.9"`)
}
