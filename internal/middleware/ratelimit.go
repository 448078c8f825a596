package middleware

import (
	"math"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KGR33N-dev/Portfolio-Backend/pkg/logger"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/metrics"
	"github.com/KGR33N-dev/Portfolio-Backend/pkg/response"
)

// RateRule names a request class and its fixed-window budget. Rules are
// keyed per client IP, so distinct clients never share a window.
type RateRule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// RateLimit enforces the rule against the shared store. Counting is
// fail-open: if the store errors the request proceeds, because an outage in
// Redis must not take down login.
func RateLimit(store RateStore, rule RateRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || rule.Limit <= 0 || rule.Window <= 0 {
			c.Next()
			return
		}

		key := "rl:" + rule.Name + ":" + c.ClientIP()
		count, ttl, err := store.Increment(c.Request.Context(), key, rule.Window)
		if err != nil {
			logger.WithComponent("ratelimit").Warn("counter unavailable",
				zap.String("rule", rule.Name),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := rule.Limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(rule.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.Itoa(int(math.Ceil(ttl.Seconds()))))

		if count > rule.Limit {
			metrics.RateLimitRejections.WithLabelValues(rule.Name).Inc()
			response.RateLimited(c, int(math.Ceil(ttl.Seconds())))
			c.Abort()
			return
		}

		c.Next()
	}
}
