package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

func seedPicture(m *MemStore, owner uuid.UUID, name string, score float64, created time.Time, tags ...string) model.Picture {
	p := model.Picture{
		ID:              uuid.New(),
		AccountID:       owner,
		Name:            name,
		PopularityScore: score,
		CreatedAt:       created,
		Tags:            tags,
	}
	m.Insert(p)
	return p
}

func TestMemStore_ApplyVoteToggle(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "alice")
	pic := seedPicture(m, acc.ID, "sunset", 0, time.Now().Add(-time.Hour), "sky")
	scorer := ranking.NewScorer(0)

	first, err := m.ApplyVote(ctx, acc.ID, pic.ID, model.Like, scorer, time.Now())
	if err != nil {
		t.Fatalf("first vote: %v", err)
	}
	if first.State != model.VoteLike || first.Likes != 1 {
		t.Errorf("first = %+v, want like with 1 like", first)
	}

	second, err := m.ApplyVote(ctx, acc.ID, pic.ID, model.Like, scorer, time.Now())
	if err != nil {
		t.Fatalf("second vote: %v", err)
	}
	if second.State != model.VoteNone || second.Likes != 0 {
		t.Errorf("second = %+v, want none with 0 likes", second)
	}

	entries, _ := m.RecentEntries(ctx, acc.ID, 15)
	if len(entries) != 1 || entries[0].Tag != "sky" {
		t.Errorf("affinity = %+v, want one sky entry kept after un-like", entries)
	}
}

func TestMemStore_ApplyVoteFlipUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "bob")
	pic := seedPicture(m, acc.ID, "dog", 0, time.Now(), "dogs")
	scorer := ranking.NewScorer(0)

	if _, err := m.ApplyVote(ctx, acc.ID, pic.ID, model.Dislike, scorer, time.Now()); err != nil {
		t.Fatal(err)
	}
	res, err := m.ApplyVote(ctx, acc.ID, pic.ID, model.Like, scorer, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if res.Likes != 1 || res.Dislikes != 0 || res.Previous != model.VoteDislike {
		t.Errorf("flip = %+v, want 1/0 from dislike", res)
	}
	votes, _ := m.ListVotes(ctx, pic.ID, "", 10)
	if len(votes) != 1 || votes[0].Polarity != model.Like {
		t.Errorf("votes = %+v, want a single like", votes)
	}
}

func TestMemStore_ApplyVoteNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "carol")
	pic := seedPicture(m, acc.ID, "gone", 1, time.Now())
	if err := m.Tombstone(ctx, pic.ID); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		account uuid.UUID
		picture uuid.UUID
	}{
		{"unknown account", uuid.New(), pic.ID},
		{"unknown picture", acc.ID, uuid.New()},
		{"tombstoned picture", acc.ID, pic.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.ApplyVote(ctx, tt.account, tt.picture, model.Like, ranking.NewScorer(0), time.Now())
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}

func TestMemStore_CandidatesExcludeSeenAndUnionAffinity(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "dave")
	now := time.Now()

	top := seedPicture(m, acc.ID, "top", 100, now)
	seen := seedPicture(m, acc.ID, "seen", 90, now)
	low := seedPicture(m, acc.ID, "low cat", 1, now, "cats")
	liked := seedPicture(m, acc.ID, "liked cat", 50, now, "cats")

	if err := m.MarkSeen(ctx, acc.ID, []uuid.UUID{seen.ID}, now); err != nil {
		t.Fatal(err)
	}
	if _, err := m.ApplyVote(ctx, acc.ID, liked.ID, model.Like, ranking.NewScorer(0), now); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkSeen(ctx, acc.ID, []uuid.UUID{liked.ID}, now); err != nil {
		t.Fatal(err)
	}

	got, err := m.Candidates(ctx, acc.ID, 15, 1)
	if err != nil {
		t.Fatal(err)
	}
	ids := map[uuid.UUID]bool{}
	for _, p := range got {
		ids[p.ID] = true
	}
	if !ids[top.ID] || !ids[low.ID] || len(got) != 2 {
		t.Errorf("candidates = %v, want top by popularity plus the cats picture", got)
	}
	if ids[seen.ID] || ids[liked.ID] {
		t.Error("seen pictures must never be candidates")
	}
}

func TestMemStore_ListingModesAndSearch(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "erin")
	now := time.Now()

	old := seedPicture(m, acc.ID, "Old Barn", 5, now.Add(-48*time.Hour))
	mid := seedPicture(m, acc.ID, "barn owl", 9, now.Add(-time.Hour))
	fresh := seedPicture(m, acc.ID, "river", 1, now)
	m.mu.Lock()
	m.pictures[old.ID].LikeCount = 30
	m.mu.Unlock()

	tests := []struct {
		name string
		q    model.ListingQuery
		want []uuid.UUID
	}{
		{"popularity", model.ListingQuery{Mode: model.ListingPopularity, Take: 10}, []uuid.UUID{mid.ID, old.ID, fresh.ID}},
		{"newest", model.ListingQuery{Mode: model.ListingNewest, Take: 10}, []uuid.UUID{fresh.ID, mid.ID, old.ID}},
		{"most liked", model.ListingQuery{Mode: model.ListingMostLiked, Take: 1}, []uuid.UUID{old.ID}},
		{"search is case-insensitive", model.ListingQuery{Mode: model.ListingNewest, Take: 10, Search: "BARN"}, []uuid.UUID{mid.ID, old.ID}},
		{"skip past end", model.ListingQuery{Mode: model.ListingNewest, Skip: 5, Take: 10}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := m.Listing(ctx, tt.q)
			if err != nil {
				t.Fatal(err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("pos %d = %s, want %s", i, got[i].Name, tt.want[i])
				}
			}
		})
	}
}

func TestMemStore_UpdateScoresSkipsChangedCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "fay")
	pic := seedPicture(m, acc.ID, "p", 3, time.Now())

	rows, err := m.ScoreBatch(ctx, uuid.Nil, 10)
	if err != nil || len(rows) != 1 {
		t.Fatalf("ScoreBatch = %v, %v", rows, err)
	}
	if _, err := m.ApplyVote(ctx, acc.ID, pic.ID, model.Like, ranking.NewScorer(0), time.Now()); err != nil {
		t.Fatal(err)
	}

	rows[0].Score = -99
	n, err := m.UpdateScores(ctx, rows)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("updated %d rows, want 0 after a concurrent vote", n)
	}
	got, _ := m.FindByID(ctx, pic.ID)
	if got.PopularityScore == -99 {
		t.Error("stale refresh overwrote the vote's score")
	}
}

func TestMemStore_CompactKeepsWindow(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc, _ := m.CreateAccount(ctx, "gus")
	scorer := ranking.NewScorer(0)
	for i := 0; i < 20; i++ {
		p := seedPicture(m, acc.ID, "p", 0, time.Now(), "t")
		if _, err := m.ApplyVote(ctx, acc.ID, p.ID, model.Like, scorer, time.Now()); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := m.Compact(ctx, acc.ID, 15)
	if err != nil {
		t.Fatal(err)
	}
	if removed != 5 {
		t.Errorf("removed = %d, want 5", removed)
	}
	left, _ := m.RecentEntries(ctx, acc.ID, 100)
	if len(left) != 15 {
		t.Errorf("left = %d, want 15", len(left))
	}
}

func TestMemStore_SeenIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	acc := uuid.New()
	a, b := uuid.New(), uuid.New()

	for i := 0; i < 3; i++ {
		if err := m.MarkSeen(ctx, acc, []uuid.UUID{a, a}, time.Now()); err != nil {
			t.Fatal(err)
		}
	}
	left, _ := m.Exclude(ctx, acc, []uuid.UUID{b, a})
	if len(left) != 1 || left[0] != b {
		t.Errorf("Exclude = %v, want [b]", left)
	}
	n, _ := m.Reset(ctx, acc)
	if n != 1 {
		t.Errorf("Reset removed %d, want 1", n)
	}
}

func TestMemStore_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewMemStore().Candidates(ctx, uuid.New(), 15, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestMemStore_CreateRequiresLiveOwner(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	live, _ := m.CreateAccount(ctx, "dave")
	gone, _ := m.CreateAccount(ctx, "erin")
	m.mu.Lock()
	a := m.accounts[gone.ID]
	a.Deleted = true
	m.accounts[gone.ID] = a
	m.mu.Unlock()

	if _, err := m.Create(ctx, model.NewPicture{AccountID: live.ID, Name: "ok"}, 1); err != nil {
		t.Fatalf("live owner: %v", err)
	}
	tests := []struct {
		name  string
		owner uuid.UUID
	}{
		{"unknown owner", uuid.New()},
		{"deleted owner", gone.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.Create(ctx, model.NewPicture{AccountID: tt.owner, Name: "x"}, 1)
			if !errors.Is(err, apperr.ErrNotFound) {
				t.Errorf("err = %v, want ErrNotFound", err)
			}
		})
	}
}
