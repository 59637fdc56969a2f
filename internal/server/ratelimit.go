package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	obslogger "github.com/smallbiznis/billdesk/internal/observability/logger"
	"github.com/smallbiznis/billdesk/internal/ratelimit"
	"go.uber.org/zap"
)

// writeRateLimit throttles mutating requests per workspace. Reads are never
// limited, and a limiter failure lets the request through.
func writeRateLimit(limiter *ratelimit.WriteLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Enabled() || c.Request.Method == http.MethodGet || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		workspaceID, err := parseSnowflakeID(c.Param("workspace_id"))
		if err != nil {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		res, err := limiter.AllowWorkspace(ctx, workspaceID)
		if err != nil {
			obslogger.FromContext(ctx).Warn("rate limiter unavailable", zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many requests",
			}})
			return
		}
		c.Next()
	}
}
