package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/diewo77/go-katalog/internal/httpx"
	"github.com/diewo77/go-katalog/internal/logger"
	"github.com/diewo77/go-katalog/internal/metrics"
	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig configures a RateLimiter.
type RateLimitConfig struct {
	Limit     redis_rate.Limit
	KeyFunc   func(*http.Request) string
	OnLimited func(http.ResponseWriter, *http.Request, *redis_rate.Result)
}

// RateLimiter throttles requests per key. Limits are shared through Redis
// when a client is given and kept in process otherwise or when Redis fails.
type RateLimiter struct {
	limiter  *redis_rate.Limiter
	fallback *localLimiter
	config   RateLimitConfig
	metrics  *metrics.Metrics
}

// NewRateLimiter builds a limiter. rdb may be nil.
func NewRateLimiter(rdb *redis.Client, cfg RateLimitConfig, m *metrics.Metrics) *RateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = KeyByIP
	}
	rl := &RateLimiter{fallback: newLocalLimiter(), config: cfg, metrics: m}
	if rdb != nil {
		rl.limiter = redis_rate.NewLimiter(rdb)
	}
	return rl
}

// Handler enforces the limit on next.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.allow(r.Context(), rl.config.KeyFunc(r))
		setRateLimitHeaders(w, res, rl.config.Limit)

		if res.Allowed == 0 {
			rl.metrics.RateLimited(r.URL.Path)
			retryAfter := int(res.RetryAfter.Seconds())
			if retryAfter < 1 {
				retryAfter = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			if rl.config.OnLimited != nil {
				rl.config.OnLimited(w, r, res)
				return
			}
			httpx.JSONError(w, http.StatusTooManyRequests,
				fmt.Sprintf("Rate limit exceeded. Retry after %d seconds.", retryAfter), nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) *redis_rate.Result {
	if rl.limiter != nil {
		res, err := rl.limiter.Allow(ctx, key, rl.config.Limit)
		if err == nil {
			return res
		}
		logger.FromContext(ctx).Warn("rate limiter redis error, using local limiter", zap.Error(err))
	}
	return rl.fallback.allow(key, rl.config.Limit)
}

// KeyByIP keys on the client address.
func KeyByIP(r *http.Request) string {
	return "ratelimit:ip:" + httpx.ClientIP(r)
}

// PerWindow builds a limit of n requests per window.
func PerWindow(n, burst int, window time.Duration) redis_rate.Limit {
	return redis_rate.Limit{Rate: n, Burst: burst, Period: window}
}

func setRateLimitHeaders(w http.ResponseWriter, res *redis_rate.Result, limit redis_rate.Limit) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy", fmt.Sprintf("%d;w=%d", limit.Rate, int(limit.Period.Seconds())))
}

type limiterEntry struct {
	limiter    *rate.Limiter
	mu         sync.Mutex
	lastAccess time.Time
}

// localLimiter keeps one token bucket per key. Idle buckets are swept on
// the request path at most once per cleanupInterval, so no goroutine
// outlives the limiter.
type localLimiter struct {
	limiters sync.Map
	now      func() time.Time

	sweepMu   sync.Mutex
	lastSweep time.Time
}

const (
	cleanupInterval = 5 * time.Minute
	entryTTL        = 10 * time.Minute
)

func newLocalLimiter() *localLimiter {
	return &localLimiter{now: time.Now, lastSweep: time.Now()}
}

// maybeSweep runs sweep when the previous one is older than cleanupInterval.
func (l *localLimiter) maybeSweep(now time.Time) {
	l.sweepMu.Lock()
	due := now.Sub(l.lastSweep) >= cleanupInterval
	if due {
		l.lastSweep = now
	}
	l.sweepMu.Unlock()
	if due {
		l.sweep()
	}
}

func (l *localLimiter) sweep() {
	cutoff := l.now().Add(-entryTTL)
	l.limiters.Range(func(key, value any) bool {
		e := value.(*limiterEntry)
		e.mu.Lock()
		stale := e.lastAccess.Before(cutoff)
		e.mu.Unlock()
		if stale {
			l.limiters.Delete(key)
		}
		return true
	})
}

func (l *localLimiter) allow(key string, limit redis_rate.Limit) *redis_rate.Result {
	perSec := float64(limit.Rate) / limit.Period.Seconds()
	now := l.now()
	l.maybeSweep(now)

	v, ok := l.limiters.Load(key)
	if !ok {
		v, _ = l.limiters.LoadOrStore(key, &limiterEntry{
			limiter: rate.NewLimiter(rate.Limit(perSec), limit.Burst),
		})
	}
	e := v.(*limiterEntry)
	e.mu.Lock()
	e.lastAccess = now
	allowed := e.limiter.AllowN(now, 1)
	remaining := int(e.limiter.TokensAt(now))
	e.mu.Unlock()

	if remaining < 0 {
		remaining = 0
	}
	interval := time.Duration(float64(time.Second) / perSec)
	res := &redis_rate.Result{Limit: limit, Remaining: remaining, ResetAfter: interval, RetryAfter: -1}
	if allowed {
		res.Allowed = 1
	} else {
		res.RetryAfter = interval
	}
	return res
}
