package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Majkoo/PicturesApi/internal/config"
	"github.com/Majkoo/PicturesApi/internal/db"
	"github.com/Majkoo/PicturesApi/internal/events"
	"github.com/Majkoo/PicturesApi/internal/handler"
	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/ranking"
	"github.com/Majkoo/PicturesApi/internal/repository"
	"github.com/Majkoo/PicturesApi/internal/router"
	"github.com/Majkoo/PicturesApi/internal/service"
)

const shutdownTimeout = 10 * time.Second

// stores groups the persistence contracts the services depend on.
type stores struct {
	accounts service.AccountStore
	pictures service.PictureStore
	votes    service.VoteStore
	affinity service.AffinityStore
	seen     service.SeenStore
	stats    service.StatsStore
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info", "pictures-api")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	middleware.InitLogger(cfg.Log.Level, "pictures-api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
	log.Info().Msg("server stopped")
}

func run(ctx context.Context, cfg *config.Config) error {
	var (
		pool *pgxpool.Pool
		st   stores
	)
	switch cfg.Storage.Driver {
	case "memory":
		mem := repository.NewMemStore()
		st = stores{accounts: mem, pictures: mem, votes: mem, affinity: mem, seen: mem, stats: mem}
		log.Warn().Msg("storage: using in-memory store, data is not persisted")
	default:
		var err error
		pool, err = db.NewPool(ctx, cfg.Database)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		st = stores{
			accounts: repository.NewAccountRepo(pool),
			pictures: repository.NewPictureRepo(pool),
			votes:    repository.NewVoteRepo(pool),
			affinity: repository.NewAffinityRepo(pool),
			seen:     repository.NewSeenRepo(pool),
			stats:    repository.NewStatsRepo(pool),
		}
	}
	metrics.Register(pool)

	cache := service.NewCacheService(cfg.Redis.URL, cfg.Cache.ListingTTL)
	defer cache.Close()

	publisher := events.New(cfg.Kafka)
	defer publisher.Close()

	// With Postgres, vote transactions NOTIFY the invalidator directly.
	invalidator := service.NewListingInvalidator(pool, cache, cfg.Workers.ListingBatchWindow)
	var notifier service.ChangeNotifier
	if pool == nil {
		notifier = invalidator
	}

	timeout := cfg.Storage.Timeout
	scorer := ranking.NewScorer(cfg.Ranking.ScoreGravity)
	policy := ranking.AffinityPolicy{
		WindowSize: cfg.Ranking.WindowSize,
		Multiplier: cfg.Ranking.AffinityMultiplier,
	}

	affinitySvc := service.NewAffinityService(st.affinity, st.accounts, policy, timeout)
	seenSvc := service.NewSeenService(st.seen, st.accounts, timeout)
	feedSvc := service.NewFeedService(st.pictures, st.accounts, affinitySvc, seenSvc, service.FeedOptions{
		CandidatePool: cfg.Ranking.CandidatePool,
		MaxPageSize:   cfg.Ranking.MaxPageSize,
		Timeout:       timeout,
	})
	voteSvc := service.NewVoteService(st.votes, st.pictures, scorer, publisher, notifier, timeout)
	listingSvc := service.NewListingService(st.pictures, cache, cfg.Ranking.MaxPageSize, timeout)
	pictureSvc := service.NewPictureService(st.pictures, scorer, notifier, timeout)
	statsSvc := service.NewStatsService(st.stats, timeout)
	refresher := service.NewScoreRefresher(st.pictures, scorer, cache, cfg.Workers.ScoreRefreshInterval, cfg.Workers.ScoreRefreshBatch)

	app := fiber.New(fiber.Config{
		AppName:      "Pictures API",
		ServerHeader: "PicturesApi",
	})
	router.Setup(app, &router.Handlers{
		Feed:    handler.NewFeedHandler(feedSvc),
		Picture: handler.NewPictureHandler(listingSvc, voteSvc),
		Vote:    handler.NewVoteHandler(voteSvc),
		Account: handler.NewAccountHandler(affinitySvc),
		Stats:   handler.NewStatsHandler(statsSvc),
		Admin:   handler.NewAdminHandler(seenSvc, affinitySvc, pictureSvc),
		Health:  handler.NewHealthHandler(pool, cache.Client(), publisher),
	}, router.Options{
		CORSOrigins: cfg.Server.CORSOrigins,
		AdminToken:  cfg.Server.AdminToken,
		RateLimit:   cfg.Server.Environment != "test",
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		invalidator.Start(gctx)
		return nil
	})
	g.Go(func() error {
		refresher.Start(gctx)
		return nil
	})
	g.Go(func() error {
		log.Info().
			Str("port", cfg.Server.Port).
			Str("env", cfg.Server.Environment).
			Str("storage", cfg.Storage.Driver).
			Msg("pictures api starting")
		err := app.Listen(":"+cfg.Server.Port, fiber.ListenConfig{DisableStartupMessage: true})
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return app.ShutdownWithContext(shutdownCtx)
	})

	return g.Wait()
}
