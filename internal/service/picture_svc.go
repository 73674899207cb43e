package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// PictureService covers the picture lifecycle the ranker cares about:
// registration with an initial score, and tombstoning.
type PictureService struct {
	pictures PictureStore
	scorer   ranking.Scorer
	notifier ChangeNotifier
	timeout  time.Duration
	now      func() time.Time
}

func NewPictureService(pictures PictureStore, scorer ranking.Scorer, notifier ChangeNotifier, timeout time.Duration) *PictureService {
	return &PictureService{pictures: pictures, scorer: scorer, notifier: notifier, timeout: timeout, now: time.Now}
}

// Create registers a picture with zero votes.
func (s *PictureService) Create(ctx context.Context, np model.NewPicture) (*model.Picture, error) {
	np.Name = strings.TrimSpace(np.Name)
	if np.Name == "" {
		return nil, apperr.Invalid("picture name is required")
	}
	if np.CreatedAt.IsZero() {
		np.CreatedAt = s.now().UTC()
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p, err := s.pictures.Create(ctx, np, s.scorer.ScoreAt(0, 0, np.CreatedAt, s.now()))
	if err != nil {
		return nil, fmt.Errorf("create picture: %w", apperr.FromStore(err))
	}
	if s.notifier != nil {
		s.notifier.Enqueue(p.ID)
	}
	return p, nil
}

// Tombstone hides a picture from every ranking and count. History is kept.
func (s *PictureService) Tombstone(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.pictures.Tombstone(ctx, id); err != nil {
		return fmt.Errorf("tombstone picture: %w", apperr.FromStore(err))
	}
	if s.notifier != nil {
		s.notifier.Enqueue(id)
	}
	log.Info().Str("picture_id", id.String()).Msg("picture tombstoned")
	return nil
}
