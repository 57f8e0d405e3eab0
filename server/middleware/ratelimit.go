package middleware

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/captionkit/errors"
	"github.com/kbukum/captionkit/resilience"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// RequestsPerSecond is the refill rate. Zero disables the limiter.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	// Burst is the bucket size.
	Burst int `yaml:"burst" mapstructure:"burst"`
	// IdleTTL drops buckets unused for this long.
	IdleTTL time.Duration `yaml:"idle_ttl" mapstructure:"idle_ttl"`
	// KeyFunc extracts the client key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string `yaml:"-" mapstructure:"-"`
}

// RateLimit rejects requests with 429 RATE_LIMITED once a client's bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	buckets := &bucketSet{cfg: cfg, limiters: make(map[string]*resilience.RateLimiter)}

	return func(c *gin.Context) {
		if !buckets.get(cfg.KeyFunc(c)).Allow() {
			appErr := apperrors.RateLimited()
			c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.Next()
	}
}

type bucketSet struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	limiters  map[string]*resilience.RateLimiter
	lastSweep time.Time
}

func (b *bucketSet) get(key string) *resilience.RateLimiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	if now.Sub(b.lastSweep) > b.cfg.IdleTTL {
		for k, rl := range b.limiters {
			if now.Sub(rl.LastUsed()) > b.cfg.IdleTTL {
				delete(b.limiters, k)
			}
		}
		b.lastSweep = now
	}

	rl, ok := b.limiters[key]
	if !ok {
		rl = resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  key,
			Rate:  b.cfg.RequestsPerSecond,
			Burst: b.cfg.Burst,
		})
		b.limiters[key] = rl
	}
	return rl
}
