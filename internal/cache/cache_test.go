package cache

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingMetrics struct {
	hits, misses int64
}

func (m *countingMetrics) IncrementCacheHit()  { atomic.AddInt64(&m.hits, 1) }
func (m *countingMetrics) IncrementCacheMiss() { atomic.AddInt64(&m.misses, 1) }

func TestCache_SetGet(t *testing.T) {
	c := NewCache(time.Minute)
	defer c.Close()

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("k", []byte("v"))
	data, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), data)
	assert.Equal(t, 1, c.Size())

	c.Delete("k")
	assert.Equal(t, 0, c.Size())

	c.Set("a", nil)
	c.Set("b", nil)
	c.Clear()
	assert.Equal(t, 0, c.Size())
}

func TestCache_Expiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	defer c.Close()

	c.Set("k", []byte("v"))
	c.Set("j", []byte("w"))
	time.Sleep(20 * time.Millisecond)

	stats := c.Stats()
	assert.Equal(t, 2, stats["expired_items"])
	assert.Equal(t, 0, stats["active_items"])

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Size(), "expired item is dropped on read")

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 0, c.Size())
}

func TestCache_CloseIsIdempotent(t *testing.T) {
	c := NewCache(time.Minute)
	c.Close()
	assert.NotPanics(t, c.Close)
}

func TestGenerateKey(t *testing.T) {
	a := GenerateKey("/similar", []byte(`{"query":"a"}`))
	assert.Len(t, a, 32)
	assert.Equal(t, a, GenerateKey("/similar", []byte(`{"query":"a"}`)))
	assert.NotEqual(t, a, GenerateKey("/similar", []byte(`{"query":"b"}`)))
	assert.NotEqual(t, a, GenerateKey("/other", []byte(`{"query":"a"}`)))
}

func TestCache_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c := NewCache(time.Minute)
	defer c.Close()
	metrics := &countingMetrics{}
	logger := monitoring.NewLoggerWithWriter(io.Discard, slog.LevelInfo)

	var calls int64
	router := gin.New()
	router.Use(c.Middleware(metrics, logger, "/similar"))
	router.POST("/similar", func(ctx *gin.Context) {
		atomic.AddInt64(&calls, 1)
		body, _ := io.ReadAll(ctx.Request.Body)
		if strings.Contains(string(body), "fail") {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "bad"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"echo": string(body)})
	})
	router.POST("/uncached", func(ctx *gin.Context) {
		atomic.AddInt64(&calls, 1)
		ctx.Status(http.StatusOK)
	})

	post := func(path, body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, path, strings.NewReader(body)))
		return w
	}

	first := post("/similar", `{"query":"a"}`)
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := post("/similar", `{"query":"a"}`)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls), "handler body must see the restored request only once")

	post("/similar", `{"fail":true}`)
	post("/similar", `{"fail":true}`)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls), "failed responses are not cached")

	post("/uncached", `{}`)
	post("/uncached", `{}`)
	assert.Equal(t, int64(5), atomic.LoadInt64(&calls))

	assert.Equal(t, int64(1), metrics.hits)
	assert.Equal(t, int64(3), metrics.misses)
	assert.Equal(t, 1, c.Size())
}
