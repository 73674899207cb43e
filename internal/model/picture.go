package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Picture is a stored picture together with its denormalised vote counters.
type Picture struct {
	ID              uuid.UUID `json:"id"`
	AccountID       uuid.UUID `json:"accountId"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	URL             string    `json:"url"`
	Tags            []string  `json:"tags"`
	LikeCount       int64     `json:"likes"`
	DislikeCount    int64     `json:"dislikes"`
	PopularityScore float64   `json:"score"`
	CreatedAt       time.Time `json:"createdAt"`
	Deleted         bool      `json:"-"`
}

// Summary converts the picture into its API representation.
func (p *Picture) Summary() PictureSummary {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return PictureSummary{
		ID:        p.ID,
		Name:      p.Name,
		URL:       p.URL,
		Score:     p.PopularityScore,
		Tags:      tags,
		Likes:     p.LikeCount,
		Dislikes:  p.DislikeCount,
		CreatedAt: p.CreatedAt,
	}
}

// PictureSummary is the flat picture shape returned by feeds and listings.
type PictureSummary struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	URL       string    `json:"url"`
	Score     float64   `json:"score"`
	Composite float64   `json:"composite,omitempty"`
	Tags      []string  `json:"tags"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPicture is the input for storing a picture. Upload and URL issuance
// happen elsewhere; this only records the metadata the ranker needs.
type NewPicture struct {
	AccountID   uuid.UUID
	Name        string
	Description string
	URL         string
	Tags        []string
	CreatedAt   time.Time
}

// NormalizeTags lowercases and trims tags, dropping empties and duplicates
// while keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// MaxSearchLen is the longest accepted listing search phrase, in characters.
const MaxSearchLen = 100

// ListingMode selects the ordering of a global, non-personalised listing.
type ListingMode string

const (
	ListingPopularity ListingMode = "popularity"
	ListingNewest     ListingMode = "newest"
	ListingMostLiked  ListingMode = "most-liked"
)

// ParseListingMode returns the mode for s, defaulting to popularity when s is empty.
func ParseListingMode(s string) (ListingMode, bool) {
	switch ListingMode(s) {
	case "", ListingPopularity:
		return ListingPopularity, true
	case ListingNewest:
		return ListingNewest, true
	case ListingMostLiked:
		return ListingMostLiked, true
	}
	return "", false
}

// ListingQuery is the input of a global listing.
type ListingQuery struct {
	Mode   ListingMode
	Skip   int
	Take   int
	Search string
}

// Account is the minimal account record the ranker needs.
type Account struct {
	ID        uuid.UUID `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"createdAt"`
	Deleted   bool      `json:"-"`
}

// StatsResponse is the API response for global statistics.
type StatsResponse struct {
	TotalPictures int              `json:"totalPictures"`
	TotalVotes    int              `json:"totalVotes"`
	TotalLikes    int              `json:"totalLikes"`
	TotalAccounts int              `json:"totalAccounts"`
	TopTags       map[string]int   `json:"topTags"`
	MostLiked     []PictureSummary `json:"mostLiked"`
}

// ScoreRow is the slice of a picture the score refresher reads and writes.
// Likes and Dislikes are the counts the score was computed from; a write is
// skipped when they no longer match the stored counts.
type ScoreRow struct {
	ID        uuid.UUID
	Likes     int64
	Dislikes  int64
	CreatedAt time.Time
	Score     float64
}
