package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
)

const (
	statsTopTags   = 10
	statsMostLiked = 10
)

type StatsService struct {
	store   StatsStore
	timeout time.Duration
}

func NewStatsService(store StatsStore, timeout time.Duration) *StatsService {
	return &StatsService{store: store, timeout: timeout}
}

// GetStats returns aggregate platform statistics.
func (s *StatsService) GetStats(ctx context.Context) (*model.StatsResponse, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	stats, err := s.store.GetStats(ctx, statsTopTags, statsMostLiked)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", apperr.FromStore(err))
	}
	return stats, nil
}
