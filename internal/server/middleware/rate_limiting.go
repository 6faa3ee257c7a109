package middleware

import (
	"context"
	"github.com/gin-gonic/gin"
	"github/wdns/chatproxy/pkg/metrics"
	"github/wdns/chatproxy/pkg/rate_limiter"
	"net/http"
	"strconv"
)

type RateLimitMiddlewareServicer interface {
	CheckRateLimit(ctx context.Context, clientKey string) (rate_limiter.Decision, error)
}

const (
	RateLimitLimitHeader     = "X-RateLimit-Limit"
	RateLimitRemainingHeader = "X-RateLimit-Remaining"
)

// RateLimitMiddleware rejects with 429 once the caller's counter reached
// the limit; the handler behind it never runs for rejected requests.
func RateLimitMiddleware(servicer RateLimitMiddlewareServicer, exceededMessage string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := ClientKey(c)
		decision, err := servicer.CheckRateLimit(c.Request.Context(), key)
		if err != nil {
			_ = c.Error(NewHTTPError(http.StatusInternalServerError, err))
			c.Abort()
			return
		}

		c.Header(RateLimitLimitHeader, strconv.Itoa(decision.Limit))
		c.Header(RateLimitRemainingHeader, strconv.FormatInt(decision.Remaining(), 10))

		if decision.Allowed {
			Logger(c).Info("Request allowed", "key", decision.Key, "count", decision.Count)
			c.Next()
			return
		}

		Logger(c).Info("Request not allowed", "key", decision.Key, "count", decision.Count)
		metrics.ChatRequestsTotal.WithLabelValues(metrics.OutcomeRateLimited).Inc()
		metrics.ChatRequestDuration.WithLabelValues(metrics.OutcomeRateLimited).Observe(SinceArrival(c).Seconds())
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": exceededMessage})
	}
}
