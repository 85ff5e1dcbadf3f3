package ratelimit

import (
	"fmt"
	"math"
	"strconv"
	"time"

	apperrors "github.com/ZanzyTHEbar/similar-dev-search/internal/errors"
	"github.com/gin-gonic/gin"
)

// IPRateLimitMiddleware creates middleware for IP-based rate limiting.
// Requests to any of skipPaths bypass the limiter.
func (rl *RateLimiter) IPRateLimitMiddleware(skipPaths ...string) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		ip := c.ClientIP()
		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// never block on limiter failure
			rl.logger.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}
			reject(c, result, fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit))
			return
		}

		c.Next()
	}
}

// EndpointRateLimitMiddleware creates middleware for endpoint-specific rate limiting
func (rl *RateLimiter) EndpointRateLimitMiddleware(endpoint string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowEndpoint(c.Request.Context(), endpoint, ip, limit)
		if err != nil {
			rl.logger.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Endpoint-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Endpoint-Remaining", strconv.Itoa(result.Remaining))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitEndpointBlock()
			}
			reject(c, result, fmt.Sprintf("You have exceeded the rate limit of %d requests per minute for %s", result.Limit, endpoint))
			return
		}

		c.Next()
	}
}

func reject(c *gin.Context, result *Result, message string) {
	retryAfter := retrySeconds(result.RetryAfter)
	c.Header("Retry-After", strconv.Itoa(retryAfter))

	appErr := apperrors.NewRateLimitError(strconv.Itoa(retryAfter) + "s")
	appErr.RequestID = c.GetString("request_id")

	body := appErr.Response()
	body["message"] = message
	body["retry_after"] = retryAfter
	body["reset_at"] = result.ResetAt.Unix()

	c.AbortWithStatusJSON(appErr.HTTPStatus, body)
}

// retrySeconds rounds up so clients never retry early
func retrySeconds(d time.Duration) int {
	if d <= 0 {
		return 1
	}
	return int(math.Ceil(d.Seconds()))
}
