package model

import (
	"time"

	"github.com/google/uuid"
)

// Polarity is the direction of a vote.
type Polarity string

const (
	Like    Polarity = "like"
	Dislike Polarity = "dislike"
)

// Valid reports whether p is a known polarity.
func (p Polarity) Valid() bool {
	return p == Like || p == Dislike
}

// VoteState is the state of an (account, picture) pair after a vote.
type VoteState string

const (
	VoteNone    VoteState = "none"
	VoteLike    VoteState = "like"
	VoteDislike VoteState = "dislike"
)

// StateOf maps a live polarity to its vote state.
func StateOf(p Polarity) VoteState {
	switch p {
	case Like:
		return VoteLike
	case Dislike:
		return VoteDislike
	}
	return VoteNone
}

// Vote represents an individual live vote record.
type Vote struct {
	ID        int64     `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	PictureID uuid.UUID `json:"pictureId"`
	Polarity  Polarity  `json:"polarity"`
	CreatedAt time.Time `json:"createdAt"`
}

// VoteRequest is the API request body for submitting a vote.
type VoteRequest struct {
	PictureID string `json:"pictureId" validate:"required,uuid"`
	Polarity  string `json:"polarity" validate:"required,oneof=like dislike"`
}

// VoteResult is the outcome of a ledger mutation.
type VoteResult struct {
	PictureID uuid.UUID `json:"pictureId"`
	State     VoteState `json:"state"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	Score     float64   `json:"score"`

	// Previous is the state before the mutation; used for events and metrics.
	Previous VoteState `json:"-"`
}

// AffinityEntry records one liked tag for an account.
type AffinityEntry struct {
	ID        int64     `json:"id"`
	AccountID uuid.UUID `json:"accountId"`
	Tag       string    `json:"tag"`
	CreatedAt time.Time `json:"createdAt"`
}

// SeenRecord marks a picture as delivered to an account in a feed.
type SeenRecord struct {
	AccountID uuid.UUID `json:"accountId"`
	PictureID uuid.UUID `json:"pictureId"`
	SeenAt    time.Time `json:"seenAt"`
}

// VoteEvent is published after a committed vote mutation.
type VoteEvent struct {
	AccountID  uuid.UUID `json:"accountId"`
	PictureID  uuid.UUID `json:"pictureId"`
	Previous   VoteState `json:"previous"`
	State      VoteState `json:"state"`
	Likes      int64     `json:"likes"`
	Dislikes   int64     `json:"dislikes"`
	Score      float64   `json:"score"`
	OccurredAt time.Time `json:"occurredAt"`
}
