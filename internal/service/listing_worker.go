package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/repository"
)

const reconnectDelay = 5 * time.Second

// ListingInvalidator batches picture change notifications and bumps the
// listing cache generation once per window, so a burst of votes on hot
// pictures costs one invalidation instead of one per vote.
//
// With a pool it LISTENs on repository.VoteChannel; without one it only
// drains what Enqueue receives in-process.
type ListingInvalidator struct {
	pool   *pgxpool.Pool
	cache  *CacheService
	window time.Duration

	mu      sync.Mutex
	pending map[uuid.UUID]struct{}
}

func NewListingInvalidator(pool *pgxpool.Pool, cache *CacheService, window time.Duration) *ListingInvalidator {
	if window <= 0 {
		window = 2 * time.Second
	}
	return &ListingInvalidator{
		pool:    pool,
		cache:   cache,
		window:  window,
		pending: make(map[uuid.UUID]struct{}),
	}
}

// Enqueue marks a picture as changed.
func (w *ListingInvalidator) Enqueue(pictureID uuid.UUID) {
	w.mu.Lock()
	w.pending[pictureID] = struct{}{}
	w.mu.Unlock()
}

// Start runs until ctx is cancelled.
func (w *ListingInvalidator) Start(ctx context.Context) {
	log.Info().Dur("window", w.window).Bool("listen", w.pool != nil).Msg("listing-invalidator: starting")

	done := make(chan struct{})
	go func() {
		defer close(done)
		w.flushLoop(ctx)
	}()

	if w.pool != nil {
		for {
			err := w.listenLoop(ctx)
			if ctx.Err() != nil {
				break
			}
			log.Warn().Err(err).Dur("retry_in", reconnectDelay).Msg("listing-invalidator: listen error, reconnecting")
			select {
			case <-time.After(reconnectDelay):
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
	}

	<-done
	log.Info().Msg("listing-invalidator: stopped")
}

// listenLoop acquires a dedicated connection, LISTENs on the vote channel and
// queues each notified picture id.
func (w *ListingInvalidator) listenLoop(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+repository.VoteChannel); err != nil {
		return err
	}
	log.Info().Str("channel", repository.VoteChannel).Msg("listing-invalidator: listening")

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		id, err := uuid.Parse(n.Payload)
		if err != nil {
			log.Debug().Str("payload", n.Payload).Msg("listing-invalidator: ignoring malformed payload")
			continue
		}
		w.Enqueue(id)
	}
}

func (w *ListingInvalidator) flushLoop(ctx context.Context) {
	ticker := time.NewTicker(w.window)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.flush(ctx)
		case <-ctx.Done():
			// Final flush before exit
			flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			w.flush(flushCtx)
			cancel()
			return
		}
	}
}

// flush drains the pending set and bumps the generation if anything changed.
func (w *ListingInvalidator) flush(ctx context.Context) int {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return 0
	}
	n := len(w.pending)
	w.pending = make(map[uuid.UUID]struct{})
	w.mu.Unlock()

	if err := w.cache.BumpListingGeneration(ctx); err != nil {
		log.Warn().Err(err).Msg("listing-invalidator: bump generation failed")
		return n
	}
	log.Debug().Int("pictures", n).Msg("listing-invalidator: listings invalidated")
	return n
}
