package mw

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/scalapatisserie/muffin-site/internal/logger"
	"github.com/scalapatisserie/muffin-site/internal/utils"
)

type RateLimitConfig struct {
	Burst             int
	RefillPerIPPerMin int
	MaxEntries        int           // clients tracked before idle ones are evicted
	IdleTTL           time.Duration // a client idle this long starts with a full bucket again
	TrustProxy        bool          // resolve IP from proxy headers
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// clients keeps one token bucket per client IP.
type clients struct {
	cfg       RateLimitConfig
	limit     rate.Limit
	mu        sync.Mutex
	visitors  map[string]*visitor
	lastSweep time.Time
}

func newClients(cfg RateLimitConfig) *clients {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 15 * time.Minute
	}
	if cfg.Burst < 1 {
		cfg.Burst = 1
	}
	if cfg.RefillPerIPPerMin < 1 {
		cfg.RefillPerIPPerMin = 1
	}
	return &clients{
		cfg:       cfg,
		limit:     rate.Every(time.Minute / time.Duration(cfg.RefillPerIPPerMin)),
		visitors:  make(map[string]*visitor),
		lastSweep: time.Now(),
	}
}

func (c *clients) get(key string, now time.Time) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	full := c.cfg.MaxEntries > 0 && len(c.visitors) >= c.cfg.MaxEntries
	if full || now.Sub(c.lastSweep) >= c.cfg.IdleTTL {
		c.sweepLocked(now)
	}
	v := c.visitors[key]
	if v == nil {
		v = &visitor{limiter: rate.NewLimiter(c.limit, c.cfg.Burst)}
		c.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter
}

func (c *clients) sweepLocked(now time.Time) {
	for ip, v := range c.visitors {
		if now.Sub(v.lastSeen) > c.cfg.IdleTTL {
			delete(c.visitors, ip)
		}
	}
	c.lastSweep = now
}

// retryAfter is the wait in whole seconds, at least 1, until l has a token.
func retryAfter(l *rate.Limiter, now time.Time) int {
	r := l.ReserveN(now, 1)
	defer r.CancelAt(now)
	if !r.OK() {
		return 1
	}
	return max(1, int(math.Ceil(r.DelayFrom(now).Seconds())))
}

// RateLimit is a per client IP token bucket. Rejected requests get 429 with
// Retry-After.
func RateLimit(cfg RateLimitConfig, log logger.Logger) func(http.Handler) http.Handler {
	c := newClients(cfg)
	limitStr := strconv.Itoa(c.cfg.Burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			now := time.Now()
			key := utils.ClientIP(r, c.cfg.TrustProxy)
			l := c.get(key, now)

			w.Header().Set("X-RateLimit-Limit", limitStr)
			if !l.AllowN(now, 1) {
				retry := retryAfter(l, now)
				log.Warn("rate limit exceeded",
					logger.String("remote_ip", key),
					logger.String("path", r.URL.Path),
					logger.Int("retry_after_s", retry))
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("X-RateLimit-Remaining", "0")
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			remaining := max(0, int(math.Floor(l.TokensAt(now))))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))

			next.ServeHTTP(w, r)
		})
	}
}
