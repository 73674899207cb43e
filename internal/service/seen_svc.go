package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
)

// SeenService is the per-account seen-set filter. The set only grows, except
// through the administrative Reset.
type SeenService struct {
	store    SeenStore
	accounts AccountStore
	timeout  time.Duration
	now      func() time.Time
}

func NewSeenService(store SeenStore, accounts AccountStore, timeout time.Duration) *SeenService {
	return &SeenService{store: store, accounts: accounts, timeout: timeout, now: time.Now}
}

// MarkSeen records the pictures as served. Duplicates are absorbed.
func (s *SeenService) MarkSeen(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID) error {
	if len(pictureIDs) == 0 {
		return nil
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.store.MarkSeen(ctx, accountID, pictureIDs, s.now().UTC()); err != nil {
		return fmt.Errorf("mark seen: %w", apperr.FromStore(err))
	}
	return nil
}

// Exclude returns the ids the account has not been served, in input order.
func (s *SeenService) Exclude(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID) ([]uuid.UUID, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	out, err := s.store.Exclude(ctx, accountID, pictureIDs)
	if err != nil {
		return nil, fmt.Errorf("exclude seen: %w", apperr.FromStore(err))
	}
	return out, nil
}

// Reset clears the account's seen set so the feed starts over.
func (s *SeenService) Reset(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if err := requireAccount(ctx, s.accounts, accountID, s.timeout); err != nil {
		return 0, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	n, err := s.store.Reset(ctx, accountID)
	if err != nil {
		return 0, fmt.Errorf("reset seen: %w", apperr.FromStore(err))
	}
	log.Info().Str("account_id", accountID.String()).Int64("cleared", n).Msg("seen set reset")
	return n, nil
}
