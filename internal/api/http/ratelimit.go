package http

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/spec-kit/taskflow/internal/config"
	apperrors "github.com/spec-kit/taskflow/pkg/util/errorutil"
)

const limiterIdleSweep = 5 * time.Minute

// ipRateLimiter keeps one token bucket per client IP.
type ipRateLimiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	limit    rate.Limit
	burst    int

	mu        sync.Mutex
	lastSweep time.Time
}

func newIPRateLimiter(cfg config.RateLimitConfig) *ipRateLimiter {
	burst := cfg.LoginBurst
	if burst <= 0 {
		burst = 1
	}
	return &ipRateLimiter{
		limit:     rate.Limit(float64(cfg.LoginPerMinute) / 60),
		burst:     burst,
		lastSweep: time.Now(),
	}
}

func (rl *ipRateLimiter) get(key string) *rate.Limiter {
	if limiter, ok := rl.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}
	actual, _ := rl.limiters.LoadOrStore(key, rate.NewLimiter(rl.limit, rl.burst))
	rl.sweep()
	return actual.(*rate.Limiter)
}

// sweep drops buckets that have refilled completely.
func (rl *ipRateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if time.Since(rl.lastSweep) < limiterIdleSweep {
		return
	}
	rl.lastSweep = time.Now()
	rl.limiters.Range(func(key, value any) bool {
		if value.(*rate.Limiter).Tokens() >= float64(rl.burst) {
			rl.limiters.Delete(key)
		}
		return true
	})
}

// LoginRateLimit throttles requests per client IP. A non-positive rate
// disables the limiter.
func LoginRateLimit(cfg config.RateLimitConfig) fiber.Handler {
	if cfg.LoginPerMinute <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	rl := newIPRateLimiter(cfg)
	return func(c *fiber.Ctx) error {
		limiter := rl.get(c.IP())
		if !limiter.Allow() {
			reservation := limiter.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(max(int(delay.Seconds()), 1)))
			return apperrors.NewRateLimited()
		}
		return c.Next()
	}
}
