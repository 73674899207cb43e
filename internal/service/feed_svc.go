package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

const (
	DefaultCandidatePool = 500
	DefaultMaxPageSize   = 100
)

// FeedOptions tunes the personalised feed.
type FeedOptions struct {
	CandidatePool int
	MaxPageSize   int
	Timeout       time.Duration
}

// FeedService composes the personalised feed: unseen candidates, tag affinity
// and popularity, ordered by composite score. Every returned picture is marked
// seen before the page is handed back.
type FeedService struct {
	pictures PictureStore
	accounts AccountStore
	affinity *AffinityService
	seen     *SeenService
	opts     FeedOptions
}

func NewFeedService(pictures PictureStore, accounts AccountStore, affinity *AffinityService, seen *SeenService, opts FeedOptions) *FeedService {
	if opts.CandidatePool <= 0 {
		opts.CandidatePool = DefaultCandidatePool
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = DefaultMaxPageSize
	}
	return &FeedService{
		pictures: pictures,
		accounts: accounts,
		affinity: affinity,
		seen:     seen,
		opts:     opts,
	}
}

// GetFeed returns up to pageSize pictures the account has never been served.
// Fewer unseen pictures than pageSize yields a short page, not an error.
// Page sizes above the configured maximum are clamped.
func (s *FeedService) GetFeed(ctx context.Context, accountID uuid.UUID, pageSize int) ([]model.PictureSummary, error) {
	page, err := s.getFeed(ctx, accountID, pageSize)
	if err != nil {
		metrics.FeedRequests.WithLabelValues(outcome(err)).Inc()
		return nil, err
	}
	metrics.FeedRequests.WithLabelValues("ok").Inc()
	metrics.FeedPageSize.Observe(float64(len(page)))
	return page, nil
}

func (s *FeedService) getFeed(ctx context.Context, accountID uuid.UUID, pageSize int) ([]model.PictureSummary, error) {
	if pageSize <= 0 {
		return nil, apperr.Invalid("page size must be positive, got %d", pageSize)
	}
	if pageSize > s.opts.MaxPageSize {
		pageSize = s.opts.MaxPageSize
	}
	if err := requireAccount(ctx, s.accounts, accountID, s.opts.Timeout); err != nil {
		return nil, err
	}

	poolSize := s.opts.CandidatePool
	if poolSize < pageSize {
		poolSize = pageSize
	}

	var (
		weights    map[string]float64
		candidates []model.Picture
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		weights, err = s.affinity.weights(gctx, accountID)
		return err
	})
	g.Go(func() error {
		cctx, cancel := withTimeout(gctx, s.opts.Timeout)
		defer cancel()
		var err error
		candidates, err = s.pictures.Candidates(cctx, accountID, s.affinity.Policy().WindowSize, poolSize)
		if err != nil {
			return fmt.Errorf("load candidates: %w", apperr.FromStore(err))
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	page := ranking.Rank(candidates, weights, pageSize)
	if len(page) == 0 {
		return page, nil
	}

	ids := make([]uuid.UUID, len(page))
	for i := range page {
		ids[i] = page[i].ID
	}
	// A page that could not be marked is not returned, otherwise it could be
	// served again.
	if err := s.seen.MarkSeen(ctx, accountID, ids); err != nil {
		return nil, err
	}

	log.Debug().
		Str("account_id", accountID.String()).
		Int("candidates", len(candidates)).
		Int("affinity_tags", len(weights)).
		Int("returned", len(page)).
		Msg("feed served")
	return page, nil
}

func outcome(err error) string {
	if kind := apperr.Kind(err); kind != "" {
		return kind
	}
	return "error"
}
