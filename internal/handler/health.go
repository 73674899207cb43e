package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/Majkoo/PicturesApi/internal/events"
)

// Version is reported by the readiness probe; overridden at build time.
var Version = "dev"

// dependency is one entry of the readiness report. Only required
// dependencies turn the service unready when they are down; disabled is fine.
type dependency struct {
	name     string
	required bool
	check    func(ctx context.Context) fiber.Map
}

// HealthHandler serves liveness and readiness for the feed service.
type HealthHandler struct {
	deps    []dependency
	startAt time.Time
}

// NewHealthHandler builds the readiness report. pool is nil on the in-memory
// store, rdb is nil with the listing cache off and publisher may be nil when
// vote events are not configured.
func NewHealthHandler(pool *pgxpool.Pool, rdb *redis.Client, publisher events.Publisher) *HealthHandler {
	return &HealthHandler{
		deps: []dependency{
			{name: "database", required: true, check: func(ctx context.Context) fiber.Map { return checkStore(ctx, pool) }},
			{name: "listing_cache", required: true, check: func(ctx context.Context) fiber.Map { return checkListingCache(ctx, rdb) }},
			{name: "vote_events", check: func(context.Context) fiber.Map { return checkVoteEvents(publisher) }},
		},
		startAt: time.Now(),
	}
}

// Live handles GET /health/live.
func (h *HealthHandler) Live(c fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Ready handles GET /health/ready. The vote event broker is reported but never
// makes the service unready, since votes commit without it.
func (h *HealthHandler) Ready(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
	defer cancel()

	checks := make(fiber.Map, len(h.deps))
	ready := true
	for _, d := range h.deps {
		res := d.check(ctx)
		checks[d.name] = res
		if d.required && res["status"] == "down" {
			ready = false
		}
	}

	status, code := "healthy", fiber.StatusOK
	if !ready {
		status, code = "degraded", fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":         status,
		"checks":         checks,
		"uptime_seconds": int(time.Since(h.startAt).Seconds()),
		"version":        Version,
	})
}

func checkStore(ctx context.Context, pool *pgxpool.Pool) fiber.Map {
	if pool == nil {
		return fiber.Map{"status": "up", "driver": "memory"}
	}
	return pingResult(ctx, pool.Ping)
}

func checkListingCache(ctx context.Context, rdb *redis.Client) fiber.Map {
	if rdb == nil {
		return fiber.Map{"status": "disabled"}
	}
	return pingResult(ctx, func(ctx context.Context) error { return rdb.Ping(ctx).Err() })
}

func pingResult(ctx context.Context, ping func(context.Context) error) fiber.Map {
	start := time.Now()
	err := ping(ctx)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return fiber.Map{"status": "down", "latency_ms": latency, "error": "connection failed"}
	}
	return fiber.Map{"status": "up", "latency_ms": latency}
}

// checkVoteEvents maps the broker circuit breaker onto a check status. An
// open breaker means events are being dropped, not that votes fail.
func checkVoteEvents(publisher events.Publisher) fiber.Map {
	r, ok := publisher.(events.BreakerReporter)
	if !ok || r.BreakerState() == "" {
		return fiber.Map{"status": "disabled"}
	}
	state := r.BreakerState()
	res := fiber.Map{"breaker": state}
	switch state {
	case "closed":
		res["status"] = "up"
	case "half-open":
		res["status"] = "recovering"
	default:
		res["status"] = "down"
	}
	if q, ok := publisher.(interface{ Pending() int }); ok {
		res["queued"] = q.Pending()
	}
	return res
}
