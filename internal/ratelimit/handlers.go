package ratelimit

import (
	"net/http"
	"time"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus returns the limits that apply to the requesting IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"period": "1 minute",
				},
				"snapshots_per_minute": gin.H{
					"limit":  rl.config.SnapshotLimitPerMin,
					"period": "1 minute",
				},
			},
			"redis_enabled": rl.redisLimiter != nil,
			"timestamp":     time.Now().Format(time.RFC3339),
		})
	}
}

// HandleStats returns limiter statistics
func (rl *RateLimiter) HandleStats() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"limiter_stats": rl.GetStats(),
			"timestamp":     time.Now().Format(time.RFC3339),
		})
	}
}

// HandleInvalidateIP clears all rate limits recorded for the :ip path parameter
func (rl *RateLimiter) HandleInvalidateIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.Param("ip")
		if ip == "" {
			_ = c.Error(apperrors.NewValidationError("IP address is required"))
			return
		}

		if err := rl.InvalidateIP(c.Request.Context(), ip); err != nil {
			_ = c.Error(apperrors.NewStorageError("failed to invalidate IP rate limits", err))
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "IP rate limits invalidated successfully",
			"ip":        ip,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}
