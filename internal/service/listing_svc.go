package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/model"
)

// ListingService serves the global, non-personalised orderings. No seen
// exclusion and no affinity weighting apply.
type ListingService struct {
	pictures PictureStore
	cache    *CacheService
	maxTake  int
	timeout  time.Duration
}

func NewListingService(pictures PictureStore, cache *CacheService, maxTake int, timeout time.Duration) *ListingService {
	if maxTake <= 0 {
		maxTake = DefaultMaxPageSize
	}
	return &ListingService{pictures: pictures, cache: cache, maxTake: maxTake, timeout: timeout}
}

// GetGlobalListing returns one page of live pictures in the given mode, with
// an optional case-insensitive name filter.
func (s *ListingService) GetGlobalListing(ctx context.Context, q model.ListingQuery) ([]model.PictureSummary, error) {
	if err := s.validate(&q); err != nil {
		return nil, err
	}

	cached, gen, err := s.cache.GetListing(ctx, q)
	cacheable := err == nil
	if err != nil {
		log.Warn().Err(err).Msg("cache: get listing error")
	} else if cached != nil {
		var page []model.PictureSummary
		if err := json.Unmarshal(cached, &page); err == nil {
			metrics.CacheHits.Inc()
			return page, nil
		}
	}
	metrics.CacheMisses.Inc()

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	pics, err := s.pictures.Listing(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("load listing: %w", apperr.FromStore(err))
	}
	page := make([]model.PictureSummary, len(pics))
	for i := range pics {
		page[i] = pics[i].Summary()
	}

	if cacheable {
		if err := s.cache.SetListing(ctx, gen, q, page); err != nil {
			log.Warn().Err(err).Msg("cache: set listing error")
		}
	}
	return page, nil
}

func (s *ListingService) validate(q *model.ListingQuery) error {
	mode, ok := model.ParseListingMode(string(q.Mode))
	if !ok {
		return apperr.Invalid("unknown listing mode %q", q.Mode)
	}
	q.Mode = mode
	if q.Skip < 0 {
		return apperr.Invalid("skip must not be negative")
	}
	if q.Take <= 0 {
		return apperr.Invalid("take must be positive, got %d", q.Take)
	}
	if q.Take > s.maxTake {
		q.Take = s.maxTake
	}
	if utf8.RuneCountInString(q.Search) > model.MaxSearchLen {
		return apperr.Invalid("search phrase must be at most %d characters", model.MaxSearchLen)
	}
	return nil
}
