// Command seed fills the configured store with fake accounts, tagged
// pictures and votes, going through the same services the API uses.
package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/config"
	"github.com/Majkoo/PicturesApi/internal/db"
	"github.com/Majkoo/PicturesApi/internal/middleware"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
	"github.com/Majkoo/PicturesApi/internal/repository"
	"github.com/Majkoo/PicturesApi/internal/service"
)

var tagPool = []string{
	"cats", "dogs", "landscape", "night", "city", "portrait", "food",
	"sea", "mountains", "street", "macro", "bw", "sunset", "forest", "art",
}

func main() {
	accounts := flag.Int("accounts", 50, "number of accounts to create")
	pictures := flag.Int("pictures", 500, "number of pictures to create")
	votes := flag.Int("votes", 5000, "number of votes to cast")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		middleware.InitLogger("info", "pictures-seed")
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	middleware.InitLogger(cfg.Log.Level, "pictures-seed")
	gofakeit.Seed(*seed)

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("connect database")
	}
	defer pool.Close()
	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrate")
	}

	accountRepo := repository.NewAccountRepo(pool)
	pictureRepo := repository.NewPictureRepo(pool)
	scorer := ranking.NewScorer(cfg.Ranking.ScoreGravity)
	pictureSvc := service.NewPictureService(pictureRepo, scorer, nil, cfg.Storage.Timeout)
	voteSvc := service.NewVoteService(repository.NewVoteRepo(pool), pictureRepo, scorer, nil, nil, cfg.Storage.Timeout)

	accountIDs := make([]uuid.UUID, 0, *accounts)
	for i := 0; i < *accounts; i++ {
		a, err := accountRepo.CreateAccount(ctx, gofakeit.Username())
		if err != nil {
			log.Fatal().Err(err).Msg("create account")
		}
		accountIDs = append(accountIDs, a.ID)
	}
	if len(accountIDs) == 0 {
		log.Fatal().Msg("at least one account is required")
	}

	now := time.Now().UTC()
	pictureIDs := make([]uuid.UUID, 0, *pictures)
	for i := 0; i < *pictures; i++ {
		p, err := pictureSvc.Create(ctx, model.NewPicture{
			AccountID:   accountIDs[gofakeit.Number(0, len(accountIDs)-1)],
			Name:        fmt.Sprintf("%s %s", gofakeit.Adjective(), gofakeit.Noun()),
			Description: gofakeit.Sentence(8),
			URL:         gofakeit.URL(),
			Tags:        randomTags(),
			CreatedAt:   gofakeit.DateRange(now.Add(-30*24*time.Hour), now),
		})
		if err != nil {
			log.Fatal().Err(err).Msg("create picture")
		}
		pictureIDs = append(pictureIDs, p.ID)
	}

	cast := 0
	for i := 0; i < *votes && len(pictureIDs) > 0; i++ {
		polarity := model.Like
		if gofakeit.Number(1, 100) <= 30 {
			polarity = model.Dislike
		}
		_, err := voteSvc.SetVote(ctx,
			accountIDs[gofakeit.Number(0, len(accountIDs)-1)],
			pictureIDs[gofakeit.Number(0, len(pictureIDs)-1)],
			polarity,
		)
		if err != nil {
			log.Warn().Err(err).Msg("vote skipped")
			continue
		}
		cast++
	}

	log.Info().
		Int("accounts", len(accountIDs)).
		Int("pictures", len(pictureIDs)).
		Int("votes", cast).
		Msg("seed complete")
}

func randomTags() []string {
	n := gofakeit.Number(0, 4)
	tags := make([]string, 0, n)
	for i := 0; i < n; i++ {
		tags = append(tags, tagPool[gofakeit.Number(0, len(tagPool)-1)])
	}
	return tags
}
