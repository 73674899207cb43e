package middleware

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/Majkoo/PicturesApi/internal/metrics"
)

// KeyFunc picks who a request is counted against.
type KeyFunc func(c fiber.Ctx) string

// Limit is a fixed-window quota: Max requests per Window for each key.
type Limit struct {
	Max    int
	Window time.Duration
	Key    KeyFunc
}

// Route classes of the API, each with its own quota.
const (
	RouteFeed    = "feed"
	RouteVote    = "vote"
	RouteListing = "listing"
	RouteStats   = "stats"
	RouteAdmin   = "admin"
)

// RouteLimits holds the per-route quotas. Feed and vote traffic is counted per
// account so accounts behind one NAT don't starve each other; read-only and
// admin routes are counted per client IP.
var RouteLimits = map[string]Limit{
	RouteFeed:    {Max: 60, Window: time.Minute, Key: KeyByAccount},
	RouteVote:    {Max: 30, Window: time.Minute, Key: KeyByAccount},
	RouteListing: {Max: 100, Window: time.Minute, Key: KeyByIP},
	RouteStats:   {Max: 10, Window: time.Minute, Key: KeyByIP},
	RouteAdmin:   {Max: 10, Window: time.Minute, Key: KeyByIP},
}

type window struct {
	used    int
	resetAt time.Time
}

// RateLimiter counts requests per key in memory. One instance guards one
// route class.
type RateLimiter struct {
	route string
	limit Limit
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	stop     chan struct{}
	stopOnce sync.Once
}

// ForRoute returns a limiter for one of the RouteLimits classes.
func ForRoute(route string) *RateLimiter {
	l, ok := RouteLimits[route]
	if !ok {
		panic("ratelimit: unknown route class " + route)
	}
	return NewRateLimiter(route, l)
}

// NewRateLimiter starts a limiter and its sweeper. Call Stop to end the sweeper.
func NewRateLimiter(route string, l Limit) *RateLimiter {
	rl := &RateLimiter{
		route:   route,
		limit:   l,
		now:     time.Now,
		windows: make(map[string]*window),
		stop:    make(chan struct{}),
	}
	go rl.sweep(5 * time.Minute)
	return rl
}

// take counts one request against key. remaining is clamped at zero.
func (rl *RateLimiter) take(key string) (ok bool, remaining int, resetAt time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, exists := rl.windows[key]
	if !exists || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(rl.limit.Window)}
		rl.windows[key] = w
	}
	w.used++
	return w.used <= rl.limit.Max, max(rl.limit.Max-w.used, 0), w.resetAt
}

// Allow counts one request against key and reports whether it fits the quota.
func (rl *RateLimiter) Allow(key string) bool {
	ok, _, _ := rl.take(key)
	return ok
}

// Handler enforces the quota. Rejections carry Retry-After and the usual error
// envelope.
func (rl *RateLimiter) Handler() fiber.Handler {
	return func(c fiber.Ctx) error {
		ok, remaining, resetAt := rl.take(rl.limit.Key(c))

		c.Set("X-RateLimit-Limit", strconv.Itoa(rl.limit.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
		if ok {
			return c.Next()
		}

		retryAfter := int(resetAt.Sub(rl.now()).Seconds()) + 1
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		metrics.RateLimited.WithLabelValues(rl.route).Inc()
		return ErrorResponse(c, fiber.StatusTooManyRequests, "RATE_LIMITED",
			fmt.Sprintf("Too many %s requests, try again in %d seconds", rl.route, retryAfter))
	}
}

// Stop ends the background sweeper.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *RateLimiter) sweep(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictExpired()
		}
	}
}

func (rl *RateLimiter) evictExpired() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, w := range rl.windows {
		if !now.Before(w.resetAt) {
			delete(rl.windows, key)
		}
	}
}

// KeyByIP counts against the client IP.
func KeyByIP(c fiber.Ctx) string {
	return "ip:" + c.IP()
}

// KeyByAccount counts against the X-Account-ID header, falling back to the
// client IP for anonymous requests.
func KeyByAccount(c fiber.Ctx) string {
	if id := c.Get(AccountIDHeader); id != "" {
		return "account:" + id
	}
	return KeyByIP(c)
}
