package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// AffinityService computes tag affinity weights on read from the append-only
// affinity ledger. Nothing is cached between calls.
type AffinityService struct {
	entries  AffinityStore
	accounts AccountStore
	policy   ranking.AffinityPolicy
	timeout  time.Duration
}

func NewAffinityService(entries AffinityStore, accounts AccountStore, policy ranking.AffinityPolicy, timeout time.Duration) *AffinityService {
	return &AffinityService{
		entries:  entries,
		accounts: accounts,
		policy:   policy.Normalize(),
		timeout:  timeout,
	}
}

// Policy returns the window policy in use.
func (s *AffinityService) Policy() ranking.AffinityPolicy {
	return s.policy
}

// GetAffinityWeights returns tag -> weight for the account's current window.
func (s *AffinityService) GetAffinityWeights(ctx context.Context, accountID uuid.UUID) (map[string]float64, error) {
	if err := requireAccount(ctx, s.accounts, accountID, s.timeout); err != nil {
		return nil, err
	}
	return s.weights(ctx, accountID)
}

// weights skips the account check; callers have done it.
func (s *AffinityService) weights(ctx context.Context, accountID uuid.UUID) (map[string]float64, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.entries.RecentEntries(ctx, accountID, s.policy.WindowSize)
	if err != nil {
		return nil, fmt.Errorf("load affinity window: %w", apperr.FromStore(err))
	}
	return s.policy.WeightsFromEntries(entries), nil
}

// Compact drops the account's entries that fall outside the window. Weights
// are identical before and after.
func (s *AffinityService) Compact(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if err := requireAccount(ctx, s.accounts, accountID, s.timeout); err != nil {
		return 0, err
	}
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	removed, err := s.entries.Compact(ctx, accountID, s.policy.WindowSize)
	if err != nil {
		return 0, fmt.Errorf("compact affinity: %w", apperr.FromStore(err))
	}
	log.Info().Str("account_id", accountID.String()).Int64("removed", removed).Msg("affinity compacted")
	return removed, nil
}

// requireAccount returns ErrNotFound unless the account exists.
func requireAccount(ctx context.Context, accounts AccountStore, id uuid.UUID, timeout time.Duration) error {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	ok, err := accounts.AccountExists(ctx, id)
	if err != nil {
		return fmt.Errorf("check account: %w", apperr.FromStore(err))
	}
	if !ok {
		return fmt.Errorf("account %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
