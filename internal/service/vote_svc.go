package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/events"
	"github.com/Majkoo/PicturesApi/internal/metrics"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

const (
	// voteAttempts is the first try plus one retry on conflict.
	voteAttempts = 2

	DefaultVoteListLimit = 50
	MaxVoteListLimit     = 500
)

// VoteService is the vote ledger. Each SetVote is one store transaction that
// also recomputes the picture's score and appends affinity entries.
type VoteService struct {
	votes     VoteStore
	pictures  PictureStore
	scorer    ranking.Scorer
	publisher events.Publisher
	notifier  ChangeNotifier
	timeout   time.Duration
	now       func() time.Time
}

func NewVoteService(votes VoteStore, pictures PictureStore, scorer ranking.Scorer, publisher events.Publisher, notifier ChangeNotifier, timeout time.Duration) *VoteService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &VoteService{
		votes:     votes,
		pictures:  pictures,
		scorer:    scorer,
		publisher: publisher,
		notifier:  notifier,
		timeout:   timeout,
		now:       time.Now,
	}
}

// SetVote applies a like or dislike:
//
//	no live vote       -> record it
//	same polarity      -> remove it (toggle off)
//	opposite polarity  -> replace it in place
//
// A Conflict from the store is retried once with fresh state, then surfaced.
func (s *VoteService) SetVote(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity) (*model.VoteResult, error) {
	if !polarity.Valid() {
		return nil, apperr.Invalid("unknown polarity %q", polarity)
	}

	var (
		res model.VoteResult
		err error
	)
	for attempt := 1; attempt <= voteAttempts; attempt++ {
		res, err = s.apply(ctx, accountID, pictureID, polarity)
		if !errors.Is(err, apperr.ErrConflict) {
			break
		}
		metrics.VoteConflicts.Inc()
		log.Debug().Err(err).Int("attempt", attempt).Str("picture_id", pictureID.String()).Msg("vote conflict")
	}
	if err != nil {
		return nil, err
	}

	metrics.VotesTotal.WithLabelValues(string(polarity), string(res.State)).Inc()
	if s.notifier != nil {
		s.notifier.Enqueue(pictureID)
	}
	s.publish(ctx, accountID, res)

	return &res, nil
}

func (s *VoteService) apply(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity) (model.VoteResult, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.votes.ApplyVote(ctx, accountID, pictureID, polarity, s.scorer, s.now().UTC())
	if err != nil {
		return res, fmt.Errorf("apply vote: %w", apperr.FromStore(err))
	}
	return res, nil
}

// publish is best effort: the vote is committed whether or not the event goes
// out. The configured publisher queues, so this does not wait on the broker.
func (s *VoteService) publish(ctx context.Context, accountID uuid.UUID, res model.VoteResult) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	ev := model.VoteEvent{
		AccountID:  accountID,
		PictureID:  res.PictureID,
		Previous:   res.Previous,
		State:      res.State,
		Likes:      res.Likes,
		Dislikes:   res.Dislikes,
		Score:      res.Score,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.PublishVote(ctx, ev); err != nil {
		log.Warn().Err(err).Str("picture_id", res.PictureID.String()).Msg("vote event not published")
	}
}

// ListVotes returns live votes on a live picture, newest first. polarity may
// be empty to list both kinds.
func (s *VoteService) ListVotes(ctx context.Context, pictureID uuid.UUID, polarity model.Polarity, limit int) ([]model.Vote, error) {
	if polarity != "" && !polarity.Valid() {
		return nil, apperr.Invalid("unknown polarity %q", polarity)
	}
	if limit <= 0 {
		limit = DefaultVoteListLimit
	}
	if limit > MaxVoteListLimit {
		limit = MaxVoteListLimit
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if _, err := s.pictures.FindByID(ctx, pictureID); err != nil {
		return nil, fmt.Errorf("find picture: %w", apperr.FromStore(err))
	}
	votes, err := s.votes.ListVotes(ctx, pictureID, polarity, limit)
	if err != nil {
		return nil, fmt.Errorf("list votes: %w", apperr.FromStore(err))
	}
	return votes, nil
}
