package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

// RateLimiter caps requests per caller. Authenticated callers are keyed by
// user id, everyone else by client IP.
type RateLimiter struct {
	limiter *limiter.Limiter
	name    string
	logger  *logger.Logger
}

// NewRateLimiter parses a formatted rate such as "10-M". A nil store uses
// process memory.
func NewRateLimiter(name, rate string, store limiter.Store, log *logger.Logger) (*RateLimiter, error) {
	r, err := limiter.NewRateFromFormatted(rate)
	if err != nil {
		return nil, err
	}
	if store == nil {
		store = memory.NewStore()
	}
	return &RateLimiter{
		limiter: limiter.New(store, r),
		name:    name,
		logger:  log.WithField("limiter", name),
	}, nil
}

func (l *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := limitKey(c)
		ctx, err := l.limiter.Get(c.Request.Context(), l.name+":"+key)
		if err != nil {
			// Store errors fail open.
			l.logger.WithError(err).Warn("Rate limiter unavailable")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(ctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(ctx.Remaining, 10))
		if ctx.Reached {
			retry := int(time.Until(time.Unix(ctx.Reset, 0)).Seconds())
			if retry < 0 {
				retry = 0
			}
			c.Header("Retry-After", strconv.Itoa(retry))
			l.logger.LogSecurityEvent("rate_limited", "low", map[string]interface{}{
				"key":  key,
				"path": c.FullPath(),
			})
			utils.RetryableErrorResponse(c, http.StatusTooManyRequests, "RATE_LIMITED", "Too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}

func limitKey(c *gin.Context) string {
	if userID := c.GetString(ContextUserID); userID != "" {
		return "user:" + userID
	}
	return "ip:" + strings.TrimPrefix(c.ClientIP(), "::ffff:")
}
