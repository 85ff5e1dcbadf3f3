package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/similar-dev-search/internal/config"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

const (
	redisDialTimeout = 5 * time.Second
	redisIOTimeout   = 3 * time.Second
	redisScanBatch   = 100
)

// RedisStore holds the shared GCRA counters for every server instance.
// A store without a connection leaves limits in process memory.
type RedisStore struct {
	client *redis.Client
	logger *monitoring.Logger
	addr   string
	db     int
}

// RedisStats is the redis_pool section of /metrics
type RedisStats struct {
	Backend    string `json:"backend"`
	Addr       string `json:"addr,omitempty"`
	DB         int    `json:"db"`
	Hits       uint32 `json:"hits"`
	Misses     uint32 `json:"misses"`
	Timeouts   uint32 `json:"timeouts"`
	TotalConns uint32 `json:"total_conns"`
	IdleConns  uint32 `json:"idle_conns"`
}

// OpenRedisStore connects to REDIS_ADDR. An unset address is not an error;
// an unreachable one returns a disconnected store alongside the ping error.
func OpenRedisStore(ctx context.Context, cfg *config.Config, logger *monitoring.Logger) (*RedisStore, error) {
	store := &RedisStore{logger: logger, addr: cfg.RedisAddr, db: cfg.RedisDB}
	if cfg.RedisAddr == "" {
		logger.SystemLogger("rate_limit_backend", "memory (REDIS_ADDR not set)")
		return store, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		MaxRetries:   3,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisIOTimeout,
		WriteTimeout: redisIOTimeout,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	pingCtx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return store, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}

	store.client = client
	logger.SystemLogger("rate_limit_backend", fmt.Sprintf("redis %s db=%d", cfg.RedisAddr, cfg.RedisDB))
	return store, nil
}

// Connected reports whether limits are shared through Redis
func (s *RedisStore) Connected() bool {
	return s != nil && s.client != nil
}

func (s *RedisStore) newLimiter() *redis_rate.Limiter {
	return redis_rate.NewLimiter(s.client)
}

// deleteMatching removes every key matching pattern and returns how many went
func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) (int, error) {
	var cursor uint64
	deleted := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, redisScanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := s.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete keys: %w", err)
			}
			deleted += int(n)
		}
		if cursor = next; cursor == 0 {
			return deleted, nil
		}
	}
}

// Stats reports the backend in use and, when connected, the pool counters
func (s *RedisStore) Stats() RedisStats {
	if !s.Connected() {
		stats := RedisStats{Backend: "memory"}
		if s != nil {
			stats.Addr, stats.DB = s.addr, s.db
		}
		return stats
	}

	pool := s.client.PoolStats()
	return RedisStats{
		Backend:    "redis",
		Addr:       s.addr,
		DB:         s.db,
		Hits:       pool.Hits,
		Misses:     pool.Misses,
		Timeouts:   pool.Timeouts,
		TotalConns: pool.TotalConns,
		IdleConns:  pool.IdleConns,
	}
}

// Close releases the connection pool
func (s *RedisStore) Close() error {
	if !s.Connected() {
		return nil
	}
	return s.client.Close()
}
