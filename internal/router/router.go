package router

import (
	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"

	"github.com/Majkoo/PicturesApi/internal/handler"
	"github.com/Majkoo/PicturesApi/internal/middleware"
)

// Handlers holds all handler instances needed by the router.
type Handlers struct {
	Feed    *handler.FeedHandler
	Picture *handler.PictureHandler
	Vote    *handler.VoteHandler
	Account *handler.AccountHandler
	Stats   *handler.StatsHandler
	Admin   *handler.AdminHandler
	Health  *handler.HealthHandler
}

// Options carries the router settings that come from configuration.
type Options struct {
	CORSOrigins string
	AdminToken  string
	// RateLimit disables the per-route limiters when false (tests, load runs).
	RateLimit bool
}

// Setup configures the middleware stack and all API routes on the given Fiber app.
func Setup(app *fiber.App, h *Handlers, opts Options) {
	// Middleware stack (order matters)
	app.Use(recoverer.New())
	app.Use(middleware.NewRequestLogger())
	app.Use(handler.MetricsMiddleware())
	app.Use(middleware.NewCORS(opts.CORSOrigins))

	// Probes and metrics sit outside the API group
	app.Get("/health/live", h.Health.Live)
	app.Get("/health/ready", h.Health.Ready)
	app.Get("/metrics", handler.MetricsHandler())

	limit := func(route string) fiber.Handler {
		if !opts.RateLimit {
			return func(c fiber.Ctx) error { return c.Next() }
		}
		return middleware.ForRoute(route).Handler()
	}

	api := app.Group("/api")

	// Feed
	api.Get("/feed", limit(middleware.RouteFeed), h.Feed.Get)

	// Pictures
	listing := limit(middleware.RouteListing)
	api.Get("/pictures", listing, h.Picture.List)
	api.Get("/pictures/:id/votes", listing, h.Picture.Votes)

	// Votes
	votes := limit(middleware.RouteVote)
	api.Patch("/pictures/:id/voteup", votes, h.Vote.VoteUp)
	api.Patch("/pictures/:id/votedown", votes, h.Vote.VoteDown)
	api.Post("/votes", votes, h.Vote.Submit)

	// Accounts
	api.Get("/accounts/:id/affinity", listing, h.Account.Affinity)

	// Stats
	api.Get("/stats", limit(middleware.RouteStats), h.Stats.GetStats)

	// Admin
	admin := api.Group("/admin", limit(middleware.RouteAdmin), middleware.RequireAdmin(opts.AdminToken))
	admin.Delete("/accounts/:id/seen", h.Admin.ResetSeen)
	admin.Post("/accounts/:id/affinity/compact", h.Admin.CompactAffinity)
	admin.Delete("/pictures/:id", h.Admin.TombstonePicture)
}
