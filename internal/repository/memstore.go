package repository

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Majkoo/PicturesApi/internal/apperr"
	"github.com/Majkoo/PicturesApi/internal/model"
	"github.com/Majkoo/PicturesApi/internal/ranking"
)

type pairKey struct {
	account uuid.UUID
	picture uuid.UUID
}

// MemStore is an in-process store with the same contracts as the Postgres
// repositories. A single mutex stands in for row locks.
type MemStore struct {
	mu sync.Mutex

	accounts map[uuid.UUID]model.Account
	pictures map[uuid.UUID]*model.Picture
	votes    map[pairKey]model.Vote
	affinity map[uuid.UUID][]model.AffinityEntry
	seen     map[uuid.UUID]map[uuid.UUID]time.Time

	nextVoteID  int64
	nextEntryID int64
}

func NewMemStore() *MemStore {
	return &MemStore{
		accounts: make(map[uuid.UUID]model.Account),
		pictures: make(map[uuid.UUID]*model.Picture),
		votes:    make(map[pairKey]model.Vote),
		affinity: make(map[uuid.UUID][]model.AffinityEntry),
		seen:     make(map[uuid.UUID]map[uuid.UUID]time.Time),
	}
}

// Insert stores p as given, including its counters and score.
func (m *MemStore) Insert(p model.Picture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Tags = model.NormalizeTags(p.Tags)
	m.pictures[p.ID] = &p
}

func (m *MemStore) AccountExists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	return ok && !a.Deleted, nil
}

func (m *MemStore) CreateAccount(ctx context.Context, nickname string) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a := model.Account{ID: uuid.New(), Nickname: nickname, CreatedAt: time.Now().UTC()}
	m.accounts[a.ID] = a
	return &a, nil
}

func (m *MemStore) Candidates(ctx context.Context, accountID uuid.UUID, window, limit int) ([]model.Picture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	windowTags := make(map[string]struct{})
	for _, e := range m.recentLocked(accountID, window) {
		windowTags[e.Tag] = struct{}{}
	}

	seen := m.seen[accountID]
	var unseen, tagged []*model.Picture
	for _, p := range m.pictures {
		if p.Deleted {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		unseen = append(unseen, p)
		for _, t := range p.Tags {
			if _, ok := windowTags[t]; ok {
				tagged = append(tagged, p)
				break
			}
		}
	}

	byPopularity := listingLess(model.ListingPopularity)
	picked := make(map[uuid.UUID]struct{})
	var out []model.Picture
	for _, group := range [][]*model.Picture{unseen, tagged} {
		sort.Slice(group, func(i, j int) bool { return byPopularity(group[i], group[j]) })
		if len(group) > limit {
			group = group[:limit]
		}
		for _, p := range group {
			if _, dup := picked[p.ID]; dup {
				continue
			}
			picked[p.ID] = struct{}{}
			out = append(out, clonePicture(p))
		}
	}
	return out, nil
}

func (m *MemStore) Listing(ctx context.Context, q model.ListingQuery) ([]model.Picture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	less := listingLess(q.Mode)
	if less == nil {
		return nil, apperr.Invalid("unknown listing mode %q", q.Mode)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	search := strings.ToLower(strings.TrimSpace(q.Search))
	var live []*model.Picture
	for _, p := range m.pictures {
		if p.Deleted {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		live = append(live, p)
	}
	sort.Slice(live, func(i, j int) bool { return less(live[i], live[j]) })

	if q.Skip >= len(live) {
		return []model.Picture{}, nil
	}
	live = live[q.Skip:]
	if q.Take < len(live) {
		live = live[:q.Take]
	}
	out := make([]model.Picture, len(live))
	for i, p := range live {
		out[i] = clonePicture(p)
	}
	return out, nil
}

func (m *MemStore) FindByID(ctx context.Context, id uuid.UUID) (*model.Picture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pictures[id]
	if !ok || p.Deleted {
		return nil, fmt.Errorf("picture %s: %w", id, apperr.ErrNotFound)
	}
	c := clonePicture(p)
	return &c, nil
}

func (m *MemStore) Create(ctx context.Context, np model.NewPicture, score float64) (*model.Picture, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.accounts[np.AccountID]; !ok || a.Deleted {
		return nil, fmt.Errorf("account %s: %w", np.AccountID, apperr.ErrNotFound)
	}
	p := &model.Picture{
		ID:              uuid.New(),
		AccountID:       np.AccountID,
		Name:            np.Name,
		Description:     np.Description,
		URL:             np.URL,
		Tags:            model.NormalizeTags(np.Tags),
		PopularityScore: score,
		CreatedAt:       np.CreatedAt,
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.pictures[p.ID] = p
	c := clonePicture(p)
	return &c, nil
}

func (m *MemStore) Tombstone(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.pictures[id]
	if !ok || p.Deleted {
		return fmt.Errorf("picture %s: %w", id, apperr.ErrNotFound)
	}
	p.Deleted = true
	return nil
}

func (m *MemStore) ScoreBatch(ctx context.Context, after uuid.UUID, limit int) ([]model.ScoreRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []model.ScoreRow
	for _, p := range m.pictures {
		if p.Deleted || bytes.Compare(p.ID[:], after[:]) <= 0 {
			continue
		}
		rows = append(rows, model.ScoreRow{
			ID: p.ID, Likes: p.LikeCount, Dislikes: p.DislikeCount, CreatedAt: p.CreatedAt,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return bytes.Compare(rows[i].ID[:], rows[j].ID[:]) < 0 })
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (m *MemStore) UpdateScores(ctx context.Context, rows []model.ScoreRow) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, s := range rows {
		p, ok := m.pictures[s.ID]
		if !ok || p.Deleted || p.LikeCount != s.Likes || p.DislikeCount != s.Dislikes {
			continue
		}
		p.PopularityScore = s.Score
		n++
	}
	return n, nil
}

func (m *MemStore) ApplyVote(ctx context.Context, accountID, pictureID uuid.UUID, polarity model.Polarity, scorer ranking.Scorer, now time.Time) (model.VoteResult, error) {
	var res model.VoteResult
	if err := ctx.Err(); err != nil {
		return res, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if a, ok := m.accounts[accountID]; !ok || a.Deleted {
		return res, fmt.Errorf("account %s: %w", accountID, apperr.ErrNotFound)
	}
	p, ok := m.pictures[pictureID]
	if !ok || p.Deleted {
		return res, fmt.Errorf("picture %s: %w", pictureID, apperr.ErrNotFound)
	}

	key := pairKey{account: accountID, picture: pictureID}
	var current *model.Polarity
	if v, ok := m.votes[key]; ok {
		pol := v.Polarity
		current = &pol
	}

	tr := ranking.NextVote(current, polarity)
	switch tr.Action {
	case ranking.ActionInsert:
		m.nextVoteID++
		m.votes[key] = model.Vote{
			ID: m.nextVoteID, AccountID: accountID, PictureID: pictureID,
			Polarity: polarity, CreatedAt: now,
		}
	case ranking.ActionDelete:
		delete(m.votes, key)
	case ranking.ActionUpdate:
		v := m.votes[key]
		v.Polarity = polarity
		v.CreatedAt = now
		m.votes[key] = v
	}

	p.LikeCount += tr.LikeDelta
	p.DislikeCount += tr.DislikeDelta
	p.PopularityScore = scorer.ScoreAt(p.LikeCount, p.DislikeCount, p.CreatedAt, now)

	if tr.IntoLike() {
		for _, tag := range p.Tags {
			m.nextEntryID++
			m.affinity[accountID] = append(m.affinity[accountID], model.AffinityEntry{
				ID: m.nextEntryID, AccountID: accountID, Tag: tag, CreatedAt: now,
			})
		}
	}

	return model.VoteResult{
		PictureID: pictureID,
		State:     tr.To,
		Likes:     p.LikeCount,
		Dislikes:  p.DislikeCount,
		Score:     p.PopularityScore,
		Previous:  tr.From,
	}, nil
}

func (m *MemStore) ListVotes(ctx context.Context, pictureID uuid.UUID, polarity model.Polarity, limit int) ([]model.Vote, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.pictures[pictureID]; !ok || p.Deleted {
		return []model.Vote{}, nil
	}
	votes := []model.Vote{}
	for k, v := range m.votes {
		if k.picture != pictureID || (polarity != "" && v.Polarity != polarity) {
			continue
		}
		votes = append(votes, v)
	}
	sort.Slice(votes, func(i, j int) bool {
		if !votes[i].CreatedAt.Equal(votes[j].CreatedAt) {
			return votes[i].CreatedAt.After(votes[j].CreatedAt)
		}
		return votes[i].ID > votes[j].ID
	})
	if len(votes) > limit {
		votes = votes[:limit]
	}
	return votes, nil
}

func (m *MemStore) RecentEntries(ctx context.Context, accountID uuid.UUID, n int) ([]model.AffinityEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.recentLocked(accountID, n), nil
}

func (m *MemStore) recentLocked(accountID uuid.UUID, n int) []model.AffinityEntry {
	entries := make([]model.AffinityEntry, len(m.affinity[accountID]))
	copy(entries, m.affinity[accountID])
	ranking.SortNewestFirst(entries)
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

func (m *MemStore) Compact(ctx context.Context, accountID uuid.UUID, keep int) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	before := len(m.affinity[accountID])
	kept := m.recentLocked(accountID, keep)
	m.affinity[accountID] = kept
	return int64(before - len(kept)), nil
}

func (m *MemStore) MarkSeen(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.seen[accountID]
	if !ok {
		set = make(map[uuid.UUID]time.Time)
		m.seen[accountID] = set
	}
	for _, id := range pictureIDs {
		if _, dup := set[id]; !dup {
			set[id] = at
		}
	}
	return nil
}

func (m *MemStore) Exclude(ctx context.Context, accountID uuid.UUID, pictureIDs []uuid.UUID) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	set := m.seen[accountID]
	out := make([]uuid.UUID, 0, len(pictureIDs))
	for _, id := range pictureIDs {
		if _, ok := set[id]; !ok {
			out = append(out, id)
		}
	}
	return out, nil
}

func (m *MemStore) Reset(ctx context.Context, accountID uuid.UUID) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	n := int64(len(m.seen[accountID]))
	delete(m.seen, accountID)
	return n, nil
}

func (m *MemStore) GetStats(ctx context.Context, topTags, mostLiked int) (*model.StatsResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()

	stats := model.StatsResponse{TopTags: make(map[string]int)}
	tagUses := make(map[string]int)
	for _, p := range m.pictures {
		if p.Deleted {
			continue
		}
		stats.TotalPictures++
		stats.TotalLikes += int(p.LikeCount)
		for _, t := range p.Tags {
			tagUses[t]++
		}
	}
	for k := range m.votes {
		if p, ok := m.pictures[k.picture]; ok && !p.Deleted {
			stats.TotalVotes++
		}
	}
	for _, a := range m.accounts {
		if !a.Deleted {
			stats.TotalAccounts++
		}
	}
	m.mu.Unlock()

	tags := make([]string, 0, len(tagUses))
	for t := range tagUses {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool {
		if tagUses[tags[i]] != tagUses[tags[j]] {
			return tagUses[tags[i]] > tagUses[tags[j]]
		}
		return tags[i] < tags[j]
	})
	if len(tags) > topTags {
		tags = tags[:topTags]
	}
	for _, t := range tags {
		stats.TopTags[t] = tagUses[t]
	}

	pics, err := m.Listing(ctx, model.ListingQuery{Mode: model.ListingMostLiked, Take: mostLiked})
	if err != nil {
		return nil, err
	}
	stats.MostLiked = make([]model.PictureSummary, len(pics))
	for i := range pics {
		stats.MostLiked[i] = pics[i].Summary()
	}
	return &stats, nil
}

// listingLess mirrors the ORDER BY clauses of listingOrder. It returns nil for
// an unknown mode.
func listingLess(mode model.ListingMode) func(a, b *model.Picture) bool {
	byID := func(a, b *model.Picture) bool { return bytes.Compare(a.ID[:], b.ID[:]) < 0 }
	newest := func(a, b *model.Picture) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return byID(a, b)
	}
	switch mode {
	case model.ListingPopularity:
		return func(a, b *model.Picture) bool {
			if a.PopularityScore != b.PopularityScore {
				return a.PopularityScore > b.PopularityScore
			}
			return newest(a, b)
		}
	case model.ListingNewest:
		return newest
	case model.ListingMostLiked:
		return func(a, b *model.Picture) bool {
			if a.LikeCount != b.LikeCount {
				return a.LikeCount > b.LikeCount
			}
			return newest(a, b)
		}
	}
	return nil
}

func clonePicture(p *model.Picture) model.Picture {
	c := *p
	c.Tags = append([]string{}, p.Tags...)
	return c
}
