package middleware

import (
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/resilience"
)

// RateLimitConfig configures per-caller rate limiting. Zero
// RequestsPerMinute disables it.
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	Burst             int `yaml:"burst" mapstructure:"burst"`
}

// RateLimit applies a token bucket per caller. It must run after Auth so the
// user id is available; unauthenticated requests are keyed by client IP.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := resilience.NewKeyedLimiter(cfg.RequestsPerMinute, cfg.Burst)
	var lastPrune atomic.Int64
	return func(c *gin.Context) {
		now := time.Now().UnixNano()
		if last := lastPrune.Load(); now-last > int64(5*time.Minute) && lastPrune.CompareAndSwap(last, now) {
			go limiter.Prune()
		}
		if !limiter.Allow(rateKey(c)) {
			abortWithError(c, apperrors.RateLimited())
			return
		}
		c.Next()
	}
}

func rateKey(c *gin.Context) string {
	if uid := c.GetString(logger.FieldUserID); uid != "" {
		return "user:" + uid
	}
	return "ip:" + c.ClientIP()
}
