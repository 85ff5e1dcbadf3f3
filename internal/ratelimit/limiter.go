package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/resilience"
	"github.com/go-redis/redis_rate/v10"
	"golang.org/x/time/rate"
)

const (
	fallbackCleanupInterval = time.Hour
	fallbackIdleTTL         = 30 * time.Minute

	redisFailureThreshold = 5
	redisRecoveryTimeout  = 30 * time.Second
)

// Config holds rate limiter configuration
type Config struct {
	IPLimitPerMin       int // IP-based rate limit per minute
	SnapshotLimitPerMin int // per-IP limit for snapshot uploads
	BurstMultiplier     int // Burst capacity multiplier for the in-memory fallback
}

// DefaultConfig returns default rate limiting configuration
func DefaultConfig() Config {
	return Config{
		IPLimitPerMin:       60,
		SnapshotLimitPerMin: 10,
		BurstMultiplier:     1,
	}
}

// Result represents the result of a rate limit check
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter time.Duration
}

type fallbackEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter provides distributed rate limiting with Redis and in-memory fallback
type RateLimiter struct {
	redisLimiter *redis_rate.Limiter
	store        *RedisStore
	breaker      *resilience.CircuitBreaker
	config       Config
	metrics      *monitoring.Metrics
	logger       *monitoring.Logger

	fallbackLimiters map[string]*fallbackEntry
	fallbackMutex    sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter creates a rate limiter that uses store when connected and
// in-memory token buckets otherwise
func NewRateLimiter(store *RedisStore, config Config, metrics *monitoring.Metrics, logger *monitoring.Logger) *RateLimiter {
	if config.BurstMultiplier < 1 {
		config.BurstMultiplier = 1
	}

	rl := &RateLimiter{
		store:            store,
		config:           config,
		metrics:          metrics,
		logger:           logger,
		fallbackLimiters: make(map[string]*fallbackEntry),
		stop:             make(chan struct{}),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: redisFailureThreshold,
			RecoveryTimeout:  redisRecoveryTimeout,
		}),
	}

	if store.Connected() {
		rl.redisLimiter = store.newLimiter()
	}

	go rl.cleanupFallbackLimiters()

	return rl
}

// Close stops the fallback cleanup goroutine
func (rl *RateLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func ipKey(ip string) string {
	return fmt.Sprintf("ratelimit:ip:%s", ip)
}

func endpointKey(endpoint, ip string) string {
	return fmt.Sprintf("ratelimit:endpoint:%s:%s", endpoint, ip)
}

// AllowIP checks if an IP address is allowed to make a request (per-minute limit)
func (rl *RateLimiter) AllowIP(ctx context.Context, ip string) (*Result, error) {
	return rl.allow(ctx, ipKey(ip), rl.config.IPLimitPerMin, time.Minute)
}

// AllowEndpoint checks a per-IP limit scoped to one endpoint
func (rl *RateLimiter) AllowEndpoint(ctx context.Context, endpoint, ip string, limit int) (*Result, error) {
	return rl.allow(ctx, endpointKey(endpoint, ip), limit, time.Minute)
}

func (rl *RateLimiter) allow(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	if limit <= 0 {
		return &Result{Allowed: true, Limit: limit, ResetAt: time.Now()}, nil
	}

	if rl.redisLimiter != nil {
		var result *Result
		err := rl.breaker.Call(func() error {
			var err error
			result, err = rl.allowRedis(ctx, key, limit, period)
			return err
		})
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			rl.logger.Warn("Redis rate limit check failed, using fallback", "key", key, "error", err)
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitRedisError()
			}
		}
	}

	if rl.metrics != nil {
		rl.metrics.IncrementRateLimitFallback()
	}
	return rl.allowFallback(key, limit, period), nil
}

// allowRedis uses the GCRA limiter backed by Redis
func (rl *RateLimiter) allowRedis(ctx context.Context, key string, limit int, period time.Duration) (*Result, error) {
	res, err := rl.redisLimiter.Allow(ctx, key, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: period,
	})
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}

	return &Result{
		Allowed:    res.Allowed > 0,
		Limit:      res.Limit.Rate,
		Remaining:  res.Remaining,
		ResetAt:    time.Now().Add(res.ResetAfter),
		RetryAfter: res.RetryAfter,
	}, nil
}

// allowFallback uses an in-memory token bucket per key
func (rl *RateLimiter) allowFallback(key string, limit int, period time.Duration) *Result {
	now := time.Now()
	interval := period / time.Duration(limit)

	rl.fallbackMutex.Lock()
	entry, exists := rl.fallbackLimiters[key]
	if !exists {
		entry = &fallbackEntry{
			limiter: rate.NewLimiter(rate.Every(interval), limit*rl.config.BurstMultiplier),
		}
		rl.fallbackLimiters[key] = entry
	}
	entry.lastSeen = now
	rl.fallbackMutex.Unlock()

	allowed := entry.limiter.AllowN(now, 1)

	remaining := int(entry.limiter.TokensAt(now))
	if remaining < 0 {
		remaining = 0
	}

	result := &Result{
		Allowed:   allowed,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   now.Add(period),
	}

	if !allowed {
		result.RetryAfter = interval
		result.ResetAt = now.Add(interval)
	}

	return result
}

// InvalidateIP clears the per-minute and endpoint limits recorded for an IP
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	rl.fallbackMutex.Lock()
	for key := range rl.fallbackLimiters {
		if key == ipKey(ip) || hasEndpointIP(key, ip) {
			delete(rl.fallbackLimiters, key)
		}
	}
	rl.fallbackMutex.Unlock()

	if rl.redisLimiter == nil {
		rl.logger.Info("Invalidated IP rate limits (in-memory)", "ip", ip)
		return nil
	}

	if err := rl.redisLimiter.Reset(ctx, ipKey(ip)); err != nil {
		return fmt.Errorf("failed to reset ip limit: %w", err)
	}
	// redis_rate stores keys under its own "rate:" prefix
	pattern := "rate:" + endpointKey("*", ip)
	deleted, err := rl.store.deleteMatching(ctx, pattern)
	if err != nil {
		return err
	}
	rl.logger.Info("Invalidated IP rate limits", "ip", ip, "endpoint_keys", deleted)
	return nil
}

func hasEndpointIP(key, ip string) bool {
	return strings.HasPrefix(key, "ratelimit:endpoint:") && strings.HasSuffix(key, ":"+ip)
}

func (rl *RateLimiter) cleanupFallbackLimiters() {
	ticker := time.NewTicker(fallbackCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := rl.evictIdle(time.Now().Add(-fallbackIdleTTL)); n > 0 {
				rl.logger.Info("Cleaned up idle fallback rate limiters", "count", n)
			}
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops fallback limiters not used since cutoff
func (rl *RateLimiter) evictIdle(cutoff time.Time) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key, entry := range rl.fallbackLimiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}
	return removed
}

// GetStats returns rate limiter statistics
func (rl *RateLimiter) GetStats() map[string]interface{} {
	rl.fallbackMutex.Lock()
	fallbackCount := len(rl.fallbackLimiters)
	rl.fallbackMutex.Unlock()

	stats := map[string]interface{}{
		"redis_enabled":          rl.redisLimiter != nil,
		"fallback_limiters":      fallbackCount,
		"ip_limit_per_min":       rl.config.IPLimitPerMin,
		"snapshot_limit_per_min": rl.config.SnapshotLimitPerMin,
	}

	if rl.redisLimiter != nil {
		stats["redis_pool"] = rl.store.Stats()
		stats["redis_breaker"] = rl.breaker.GetStats()
	}
	if rl.metrics != nil {
		stats["metrics"] = rl.metrics.GetRateLimitStats()
	}

	return stats
}
