package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

// conflictingStore fails the first n ApplyVote calls with a conflict.
type conflictingStore struct {
	VoteStore
	mu        sync.Mutex
	conflicts int
	calls     int
}

func (c *conflictingStore) ApplyVote(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity, scorer ranking.Scorer, now time.Time) (model.VoteResult, error) {
	c.mu.Lock()
	c.calls++
	fail := c.calls <= c.conflicts
	c.mu.Unlock()
	if fail {
		return model.VoteResult{}, fmt.Errorf("serialize: %w", apperr.ErrConflict)
	}
	return c.VoteStore.ApplyVote(ctx, accountID, pictureID, polarity, scorer, now)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.VoteEvent
	err    error
}

func (r *recordingPublisher) PublishVote(_ context.Context, ev model.VoteEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

type recordingNotifier struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingNotifier) Enqueue(id uuid.UUID) {
	r.mu.Lock()
	r.ids = append(r.ids, id)
	r.mu.Unlock()
}

func TestSetVote_LikeTwiceReturnsToNone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t)
	p := env.picture(0, time.Now().Add(-time.Hour), "cats")

	first, err := env.votes.SetVote(ctx, acc, p.ID, model.Like)
	if err != nil {
		t.Fatal(err)
	}
	if first.State != model.VoteLike || first.Likes != 1 {
		t.Errorf("first = %+v", first)
	}
	second, err := env.votes.SetVote(ctx, acc, p.ID, model.Like)
	if err != nil {
		t.Fatal(err)
	}
	if second.State != model.VoteNone || second.Likes != 0 {
		t.Errorf("second = %+v, want none with likes back to 0", second)
	}

	// Un-liking leaves affinity history untouched.
	weights, _ := env.affinity.GetAffinityWeights(ctx, acc)
	if weights["cats"] != 2.25 {
		t.Errorf("cats weight = %f, want 2.25", weights["cats"])
	}
}

func TestSetVote_FlipKeepsOneLiveVote(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	acc := env.account(t)
	p := env.picture(0, time.Now())

	if _, err := env.votes.SetVote(ctx, acc, p.ID, model.Like); err != nil {
		t.Fatal(err)
	}
	res, err := env.votes.SetVote(ctx, acc, p.ID, model.Dislike)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != model.VoteDislike || res.Likes != 0 || res.Dislikes != 1 {
		t.Errorf("flip = %+v, want dislike 0/1", res)
	}
	if res.Score > 0 {
		t.Errorf("score = %f, want <= 0 with more dislikes than likes", res.Score)
	}

	votes, err := env.votes.ListVotes(ctx, p.ID, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(votes) != 1 {
		t.Errorf("live votes = %d, want 1", len(votes))
	}
}

func TestSetVote_ScoreFollowsCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.picture(0, time.Now().Add(-3*time.Hour))

	var last float64
	for i := 0; i < 4; i++ {
		res, err := env.votes.SetVote(ctx, env.account(t), p.ID, model.Like)
		if err != nil {
			t.Fatal(err)
		}
		if i > 0 && res.Score <= last {
			t.Errorf("score after %d likes = %f, not above %f", i+1, res.Score, last)
		}
		last = res.Score
	}
}

func TestSetVote_Errors(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t)
	p := env.picture(0, time.Now())

	tests := []struct {
		name     string
		account  uuid.UUID
		picture  uuid.UUID
		polarity model.Polarity
		want     error
	}{
		{"unknown polarity", acc, p.ID, model.Polarity("meh"), apperr.ErrInvalidInput},
		{"unknown picture", acc, uuid.New(), model.Like, apperr.ErrNotFound},
		{"unknown account", uuid.New(), p.ID, model.Like, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.votes.SetVote(context.Background(), tt.account, tt.picture, tt.polarity)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestSetVote_RetriesConflictOnce(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t)
	p := env.picture(0, time.Now())

	store := &conflictingStore{VoteStore: env.store, conflicts: 1}
	svc := NewVoteService(store, env.store, ranking.NewScorer(0), nil, nil, time.Second)

	res, err := svc.SetVote(context.Background(), acc, p.ID, model.Like)
	if err != nil {
		t.Fatalf("SetVote after one conflict: %v", err)
	}
	if res.State != model.VoteLike || store.calls != 2 {
		t.Errorf("state = %s after %d calls, want like after 2", res.State, store.calls)
	}
}

func TestSetVote_SurfacesRepeatedConflict(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t)
	p := env.picture(0, time.Now())

	store := &conflictingStore{VoteStore: env.store, conflicts: 5}
	svc := NewVoteService(store, env.store, ranking.NewScorer(0), nil, nil, time.Second)

	_, err := svc.SetVote(context.Background(), acc, p.ID, model.Like)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if store.calls != voteAttempts {
		t.Errorf("calls = %d, want %d", store.calls, voteAttempts)
	}
	got, _ := env.store.FindByID(context.Background(), p.ID)
	if got.LikeCount != 0 {
		t.Error("a failed vote must not leave partial state")
	}
}

func TestSetVote_PublishesAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t)
	p := env.picture(0, time.Now())

	pub := &recordingPublisher{err: errors.New("broker down")}
	notifier := &recordingNotifier{}
	svc := NewVoteService(env.store, env.store, ranking.NewScorer(0), pub, notifier, time.Second)

	res, err := svc.SetVote(context.Background(), acc, p.ID, model.Dislike)
	if err != nil {
		t.Fatalf("publish failure must not fail the vote: %v", err)
	}
	if len(pub.events) != 1 {
		t.Fatalf("events = %d, want 1", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Previous != model.VoteNone || ev.State != model.VoteDislike || ev.Dislikes != res.Dislikes {
		t.Errorf("event = %+v", ev)
	}
	if len(notifier.ids) != 1 || notifier.ids[0] != p.ID {
		t.Errorf("notified = %v, want [%s]", notifier.ids, p.ID)
	}
}

func TestSetVote_ConcurrentTogglesStayConsistent(t *testing.T) {
	env := newTestEnv(t)
	acc := env.account(t)
	p := env.picture(0, time.Now())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := env.votes.SetVote(context.Background(), acc, p.ID, model.Like); err != nil {
				t.Errorf("SetVote: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := env.store.FindByID(context.Background(), p.ID)
	votes, _ := env.votes.ListVotes(context.Background(), p.ID, "", 0)
	if got.LikeCount != 0 || len(votes) != 0 {
		t.Errorf("after 10 toggles likes = %d, live votes = %d; want 0 and 0", got.LikeCount, len(votes))
	}
}

func TestListVotes_FiltersAndValidates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.picture(0, time.Now())
	for i := 0; i < 3; i++ {
		if _, err := env.votes.SetVote(ctx, env.account(t), p.ID, model.Like); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := env.votes.SetVote(ctx, env.account(t), p.ID, model.Dislike); err != nil {
		t.Fatal(err)
	}

	likes, err := env.votes.ListVotes(ctx, p.ID, model.Like, 0)
	if err != nil || len(likes) != 3 {
		t.Errorf("likes = %d, %v; want 3", len(likes), err)
	}
	if _, err := env.votes.ListVotes(ctx, p.ID, model.Polarity("x"), 0); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("bad polarity err = %v", err)
	}
	if _, err := env.votes.ListVotes(ctx, uuid.New(), "", 0); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown picture err = %v", err)
	}
}
