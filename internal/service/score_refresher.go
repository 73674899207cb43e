package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// ScoreRefresher periodically re-applies age decay to stored popularity
// scores. Votes already write a fresh score in their own transaction; this
// only catches up pictures that have not been voted on lately. A row whose
// counts changed since it was read is skipped.
type ScoreRefresher struct {
	pictures PictureStore
	scorer   ranking.Scorer
	cache    *CacheService
	interval time.Duration
	batch    int
	now      func() time.Time
}

func NewScoreRefresher(pictures PictureStore, scorer ranking.Scorer, cache *CacheService, interval time.Duration, batch int) *ScoreRefresher {
	if batch <= 0 {
		batch = 1000
	}
	return &ScoreRefresher{
		pictures: pictures,
		scorer:   scorer,
		cache:    cache,
		interval: interval,
		batch:    batch,
		now:      time.Now,
	}
}

// Start runs one pass immediately, then every interval. A non-positive
// interval disables the worker.
func (w *ScoreRefresher) Start(ctx context.Context) {
	if w.interval <= 0 {
		log.Info().Msg("score-refresher: disabled")
		return
	}
	log.Info().Dur("interval", w.interval).Int("batch", w.batch).Msg("score-refresher: starting")

	w.tick(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.tick(ctx)
		case <-ctx.Done():
			log.Info().Msg("score-refresher: stopping (context cancelled)")
			return
		}
	}
}

func (w *ScoreRefresher) tick(ctx context.Context) {
	start := time.Now()

	scanned, updated, err := w.RefreshAll(ctx)
	elapsed := time.Since(start)
	metrics.ScoreRefreshDuration.Observe(elapsed.Seconds())
	if err != nil {
		log.Error().Err(err).Int("scanned", scanned).Msg("score-refresher: pass failed")
		return
	}

	log.Info().
		Int("scanned", scanned).
		Int64("updated", updated).
		Dur("elapsed", elapsed).
		Msg("score-refresher: pass complete")
}

// RefreshAll walks every live picture in id order, in batches.
func (w *ScoreRefresher) RefreshAll(ctx context.Context) (scanned int, updated int64, err error) {
	now := w.now()
	after := uuid.Nil
	for {
		rows, err := w.pictures.ScoreBatch(ctx, after, w.batch)
		if err != nil {
			return scanned, updated, err
		}
		if len(rows) == 0 {
			break
		}
		for i := range rows {
			rows[i].Score = w.scorer.ScoreAt(rows[i].Likes, rows[i].Dislikes, rows[i].CreatedAt, now)
		}
		n, err := w.pictures.UpdateScores(ctx, rows)
		if err != nil {
			return scanned, updated, err
		}
		scanned += len(rows)
		updated += n
		after = rows[len(rows)-1].ID
		if len(rows) < w.batch {
			break
		}
	}

	if updated > 0 {
		if err := w.cache.BumpListingGeneration(ctx); err != nil {
			log.Warn().Err(err).Msg("score-refresher: cache invalidate error")
		}
	}
	return scanned, updated, nil
}
