package main

import (
	"context"
	"net/http"

	_ "github.com/ZanzyTHEbar/similar-dev-search/docs"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/cache"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/config"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/database"
	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/middleware"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/monitoring"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/privacy"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/ratelimit"
	"github.com/ZanzyTHEbar/similar-dev-search/internal/security"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const version = "1.0.0"

// server owns the service dependencies
type server struct {
	cfg       *config.Config
	logger    *monitoring.Logger
	metrics   *monitoring.Metrics
	cache     *cache.Cache
	redis     *ratelimit.RedisStore
	limiter   *ratelimit.RateLimiter
	db        *database.DB
	snapshots *database.SnapshotService
	security  *security.SecurityMiddleware
	compress  *middleware.CompressionMiddleware
}

func newServer(cfg *config.Config, logger *monitoring.Logger) (*server, error) {
	db, err := database.NewDB(cfg.DataDir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to open snapshot store", err)
	}

	redisStore, err := ratelimit.OpenRedisStore(context.Background(), cfg, logger)
	if err != nil {
		logger.Warn("Redis unavailable, continuing with in-memory rate limiting", "error", err)
	}

	metrics := monitoring.NewMetrics()

	snapshots := database.NewSnapshotService(database.NewRepository(db), logger).
		WithAnonymizer(privacy.NewAnonymizer(cfg.IPHashSalt))

	secConfig := security.DefaultSecurityConfig()
	secConfig.AllowedOrigins = cfg.CORSOrigins

	return &server{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		cache:   cache.NewCache(cfg.CacheTTL),
		redis:   redisStore,
		limiter: ratelimit.NewRateLimiter(redisStore, ratelimit.Config{
			IPLimitPerMin:       cfg.RateLimitPerMin,
			SnapshotLimitPerMin: cfg.SnapshotRateLimitPerMin,
			BurstMultiplier:     1,
		}, metrics, logger),
		db:        db,
		snapshots: snapshots,
		security:  security.NewSecurityMiddleware(secConfig),
		compress:  middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig()),
	}, nil
}

// Close releases background workers and connections
func (s *server) Close() {
	s.cache.Close()
	s.limiter.Close()
	apperrors.SafeClose(s.redis, "redis")
	apperrors.SafeClose(s.db, "database")
}

// Router builds the gin engine with every route and middleware
func (s *server) Router() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestIDMiddleware())
	r.Use(apperrors.RecoveryHandler())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(apperrors.ErrorHandler())
	r.Use(s.security.CORS())
	r.Use(s.security.SecurityHeaders)
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.ValidateContentType)
	r.Use(s.security.LimitBody)
	r.Use(s.limiter.IPRateLimitMiddleware("/health"))
	r.Use(s.compress.Handler())
	r.Use(s.cache.Middleware(s.metrics, s.logger, "/similar"))

	r.GET("/health", s.handleHealth)

	r.POST("/similar", s.handleSimilar)

	snapshots := r.Group("/snapshots")
	snapshots.GET("", s.handleListSnapshots)
	snapshots.POST("", s.limiter.EndpointRateLimitMiddleware("snapshots", s.cfg.SnapshotRateLimitPerMin), s.handleStoreSnapshot)
	snapshots.GET("/:id", s.handleGetSnapshot)
	snapshots.GET("/:id/similar/:developer", s.handleSnapshotSimilar)

	r.GET("/metrics", s.handleMetrics)
	r.GET("/cache/stats", s.handleCacheStats)
	r.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())
	r.GET("/ratelimit/stats", s.limiter.HandleStats())

	if s.cfg.EnableSwagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	if s.cfg.EnableAdmin {
		snapshots.DELETE("/:id", s.handleDeleteSnapshot)
		r.DELETE("/ratelimit/ip/:ip", s.limiter.HandleInvalidateIP())
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "NOT_FOUND", "message": "route not found"})
	})

	return r
}
