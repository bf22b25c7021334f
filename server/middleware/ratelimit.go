package middleware

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/resilience"
)

// RateLimitConfig configures per-client token buckets.
type RateLimitConfig struct {
	// Name labels the limited operation in error messages.
	Name string
	// Rate is requests per second per key.
	Rate  float64
	Burst int
	// KeyFunc extracts the bucket key. Defaults to the client IP.
	KeyFunc func(*gin.Context) string
	// IdleTTL drops buckets unused for this long. Defaults to 10m.
	IdleTTL time.Duration
	Now     func() time.Time
}

// RateLimit refuses requests with 429 once a key's bucket is empty.
func RateLimit(cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.Name == "" {
		cfg.Name = "api"
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = IPBasedKey
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	buckets := &bucketSet{cfg: cfg, entries: make(map[string]*bucket)}

	return func(c *gin.Context) {
		if !buckets.get(cfg.KeyFunc(c)).Allow() {
			err := errors.RateLimited(cfg.Name)
			retryAfter := 1.0
			if cfg.Rate > 0 {
				retryAfter = 1 / cfg.Rate
			}
			c.Header("Retry-After", strconv.Itoa(int(retryAfter+0.999)))
			abort(c, err)
			return
		}
		c.Next()
	}
}

// IPBasedKey keys buckets by client IP.
func IPBasedKey(c *gin.Context) string {
	return c.ClientIP()
}

type bucket struct {
	*resilience.RateLimiter
	lastSeen time.Time
}

type bucketSet struct {
	cfg RateLimitConfig

	mu        sync.Mutex
	entries   map[string]*bucket
	lastSweep time.Time
}

func (s *bucketSet) get(key string) *bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.cfg.Now()
	if now.Sub(s.lastSweep) > s.cfg.IdleTTL {
		for k, b := range s.entries {
			if now.Sub(b.lastSeen) > s.cfg.IdleTTL {
				delete(s.entries, k)
			}
		}
		s.lastSweep = now
	}
	b, ok := s.entries[key]
	if !ok {
		b = &bucket{RateLimiter: resilience.NewRateLimiter(resilience.RateLimiterConfig{
			Name:  s.cfg.Name + ":" + key,
			Rate:  s.cfg.Rate,
			Burst: s.cfg.Burst,
			Now:   s.cfg.Now,
		})}
		s.entries[key] = b
	}
	b.lastSeen = now
	return b
}
