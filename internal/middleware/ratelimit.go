// AngelaMos | 2026
// ratelimit.go

package middleware

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	redis_rate "github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/lumennodes/portal/internal/core"
)

// Limiter scopes. Each scope has its own budget and key space in redis.
const (
	ScopeClient = "client"
	ScopeAuth   = "auth"
	ScopeUser   = "user"
	ScopeOrders = "orders"
)

// Per builds a budget of rate requests per window with the given burst.
func Per(window time.Duration, requests, burst int) redis_rate.Limit {
	if window <= 0 {
		window = time.Minute
	}
	if burst < 1 {
		burst = 1
	}
	return redis_rate.Limit{Rate: requests, Burst: burst, Period: window}
}

// RateLimiter enforces one budget per key in redis. When redis is
// unreachable it keeps enforcing the same budget from in-process buckets.
type RateLimiter struct {
	scope    string
	limit    redis_rate.Limit
	keyFunc  func(*http.Request) string
	redis    *redis_rate.Limiter
	local    *localBuckets
	degraded atomic.Bool
}

func NewRateLimiter(
	rdb *redis.Client,
	scope string,
	limit redis_rate.Limit,
	keyFunc func(*http.Request) string,
) *RateLimiter {
	return &RateLimiter{
		scope:   scope,
		limit:   limit,
		keyFunc: keyFunc,
		redis:   redis_rate.NewLimiter(rdb),
		local:   newLocalBuckets(),
	}
}

// ClientRateLimiter is the outermost budget, shared by every request from
// one client address.
func ClientRateLimiter(rdb *redis.Client, limit redis_rate.Limit) *RateLimiter {
	return NewRateLimiter(rdb, ScopeClient, limit, ClientIP)
}

// AuthRateLimiter gives login and register their own per-address budget.
func AuthRateLimiter(rdb *redis.Client, limit redis_rate.Limit) *RateLimiter {
	return NewRateLimiter(rdb, ScopeAuth, limit, ClientIP)
}

// UserRateLimiter must run after Authenticator. It keys by account so a
// customer behind a shared address is not throttled by their neighbours.
func UserRateLimiter(rdb *redis.Client, limit redis_rate.Limit) *RateLimiter {
	return NewRateLimiter(rdb, ScopeUser, limit, AccountOrClientIP)
}

// OrderWriteLimiter guards order placement and payment reference
// submission, which each produce a staff notification.
func OrderWriteLimiter(rdb *redis.Client, limit redis_rate.Limit) *RateLimiter {
	return NewRateLimiter(rdb, ScopeOrders, limit, AccountOrClientIP)
}

func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := rl.allow(r, "ratelimit:"+rl.scope+":"+rl.keyFunc(r))

		writeBudgetHeaders(w, res)

		if res.Allowed == 0 {
			retryAfter := max(int(res.RetryAfter.Seconds()), 1)
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			core.JSONError(w, core.RateLimitedError(retryAfter))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(r *http.Request, key string) *redis_rate.Result {
	res, err := rl.redis.Allow(r.Context(), key, rl.limit)
	if err == nil {
		if rl.degraded.CompareAndSwap(true, false) {
			slog.Info("rate limiter back on redis", "scope", rl.scope)
		}
		return res
	}

	if rl.degraded.CompareAndSwap(false, true) {
		slog.Warn("rate limiter using local buckets",
			"scope", rl.scope,
			"error", err,
		)
	}
	return rl.local.take(key, rl.limit, time.Now())
}

// ClientIP keys by the address the nearest proxy saw.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		hops := strings.Split(xff, ",")
		return "ip:" + strings.TrimSpace(hops[len(hops)-1])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return "ip:" + strings.TrimSpace(xri)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}

// AccountOrClientIP keys by the authenticated user id, falling back to
// the client address on anonymous requests.
func AccountOrClientIP(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	return ClientIP(r)
}

func writeBudgetHeaders(w http.ResponseWriter, res *redis_rate.Result) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit.Rate))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	h.Set("X-RateLimit-Reset",
		strconv.FormatInt(time.Now().Add(res.ResetAfter).Unix(), 10))
	h.Set("RateLimit-Policy",
		fmt.Sprintf("%d;w=%d", res.Limit.Rate, int(res.Limit.Period.Seconds())))
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// localBuckets holds token buckets for keys seen while redis is down.
// Idle buckets are swept on access.
type localBuckets struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

const (
	bucketIdleTTL = 10 * time.Minute
	sweepEvery    = time.Minute
)

func newLocalBuckets() *localBuckets {
	return &localBuckets{
		buckets:   make(map[string]*bucket),
		lastSweep: time.Now(),
	}
}

func (l *localBuckets) take(
	key string,
	limit redis_rate.Limit,
	now time.Time,
) *redis_rate.Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepEvery {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) > bucketIdleTTL {
				delete(l.buckets, k)
			}
		}
		l.lastSweep = now
	}

	perSec := float64(limit.Rate) / limit.Period.Seconds()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(perSec), limit.Burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	res := &redis_rate.Result{Limit: limit, RetryAfter: -1}

	reservation := b.limiter.ReserveN(now, 1)
	switch delay := reservation.DelayFrom(now); {
	case !reservation.OK():
		res.RetryAfter = limit.Period
	case delay > 0:
		reservation.CancelAt(now)
		res.RetryAfter = delay
	default:
		res.Allowed = 1
	}

	tokens := b.limiter.TokensAt(now)
	res.Remaining = max(int(tokens), 0)
	if perSec > 0 {
		missing := float64(limit.Burst) - tokens
		res.ResetAfter = time.Duration(missing / perSec * float64(time.Second))
	}
	return res
}
