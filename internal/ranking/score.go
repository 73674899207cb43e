// Package ranking holds the pure scoring rules of the picture feed: the
// popularity score, the tag-affinity window, the vote ledger transitions and
// the composite ordering. Nothing here touches storage.
package ranking

import (
	"math"
	"time"
)

const (
	// DefaultGravity controls how fast score decays with age.
	DefaultGravity = 1.8

	// ageOffsetHours keeps brand-new pictures from dividing by ~0.
	ageOffsetHours = 2.0
)

// Scorer turns vote counts and age into a popularity score.
type Scorer struct {
	gravity float64
}

// NewScorer returns a scorer using the given decay gravity. Non-positive
// gravity falls back to DefaultGravity.
func NewScorer(gravity float64) Scorer {
	if gravity <= 0 {
		gravity = DefaultGravity
	}
	return Scorer{gravity: gravity}
}

// Score computes the popularity of a picture with likes L, dislikes D and the
// given age:
//
//	s     = L - D + 1
//	decay = (ageHours + 2) ^ gravity
//	score = s / decay   when s > 0
//	score = s * decay   otherwise
//
// Positive margins shrink with age and negative margins grow with age, so a
// newer picture never ranks below an older one with the same counts, and any
// picture with D > L scores <= 0 while any picture with L > D scores > 0.
func (s Scorer) Score(likes, dislikes int64, age time.Duration) float64 {
	margin := float64(likes-dislikes) + 1
	hours := age.Hours()
	if hours < 0 {
		hours = 0
	}
	decay := math.Pow(hours+ageOffsetHours, s.gravity)
	if margin > 0 {
		return margin / decay
	}
	return margin * decay
}

// ScoreAt is Score with the age derived from createdAt and now.
func (s Scorer) ScoreAt(likes, dislikes int64, createdAt, now time.Time) float64 {
	return s.Score(likes, dislikes, now.Sub(createdAt))
}
