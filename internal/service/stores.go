package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// The store contracts below are implemented by the Postgres repositories and
// by repository.MemStore.

type AccountStore interface {
	AccountExists(ctx context.Context, id uuid.UUID) (bool, error)
	CreateAccount(ctx context.Context, nickname string) (*model.Account, error)
}

type PictureStore interface {
	Candidates(ctx context.Context, accountID uuid.UUID, window, limit int) ([]model.Picture, error)
	Listing(ctx context.Context, q model.ListingQuery) ([]model.Picture, error)
	FindByID(ctx context.Context, id uuid.UUID) (*model.Picture, error)
	Create(ctx context.Context, np model.NewPicture, score float64) (*model.Picture, error)
	Tombstone(ctx context.Context, id uuid.UUID) error
	ScoreBatch(ctx context.Context, after uuid.UUID, limit int) ([]model.ScoreRow, error)
	UpdateScores(ctx context.Context, rows []model.ScoreRow) (int64, error)
}

type VoteStore interface {
	ApplyVote(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity, scorer ranking.Scorer, now time.Time) (model.VoteResult, error)
	ListVotes(ctx context.Context, pictureID uuid.UUID, polarity model.Polarity, limit int) ([]model.Vote, error)
}

type AffinityStore interface {
	RecentEntries(ctx context.Context, accountID uuid.UUID, n int) ([]model.AffinityEntry, error)
	Compact(ctx context.Context, accountID uuid.UUID, keep int) (int64, error)
}

type SeenStore interface {
	MarkSeen(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID, at time.Time) error
	Exclude(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID) ([]uuid.UUID, error)
	Reset(ctx context.Context, accountID uuid.UUID) (int64, error)
}

type StatsStore interface {
	GetStats(ctx context.Context, topTags, mostLiked int) (*model.StatsResponse, error)
}

// ChangeNotifier is told about pictures whose ranking inputs changed. Nil when
// the store announces changes itself (Postgres NOTIFY).
type ChangeNotifier interface {
	Enqueue(pictureID uuid.UUID)
}

// withTimeout bounds a single store call.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
