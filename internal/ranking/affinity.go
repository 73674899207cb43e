package ranking

import (
	"sort"

	"github.com/Majkoo/PicturesApi/internal/model"
)

const (
	DefaultWindowSize = 15
	DefaultMultiplier = 2.25
)

// AffinityPolicy describes the sliding window used for tag affinity.
type AffinityPolicy struct {
	WindowSize int
	Multiplier float64
}

// DefaultAffinityPolicy returns the window of 15 entries weighted by 2.25.
func DefaultAffinityPolicy() AffinityPolicy {
	return AffinityPolicy{WindowSize: DefaultWindowSize, Multiplier: DefaultMultiplier}
}

// Normalize fills zero fields with defaults.
func (p AffinityPolicy) Normalize() AffinityPolicy {
	if p.WindowSize <= 0 {
		p.WindowSize = DefaultWindowSize
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	return p
}

// MaxWeight is the upper bound of any single tag weight.
func (p AffinityPolicy) MaxWeight() float64 {
	return float64(p.WindowSize) * p.Multiplier
}

// SortNewestFirst orders entries by timestamp descending, then id descending.
// The id is monotonically increasing, which makes equal timestamps deterministic.
func SortNewestFirst(entries []model.AffinityEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.After(entries[j].CreatedAt)
		}
		return entries[i].ID > entries[j].ID
	})
}

// Window returns the live part of an account's entries: the most recent
// WindowSize entries. The input is not modified.
func (p AffinityPolicy) Window(entries []model.AffinityEntry) []model.AffinityEntry {
	p = p.Normalize()
	sorted := make([]model.AffinityEntry, len(entries))
	copy(sorted, entries)
	SortNewestFirst(sorted)
	if len(sorted) > p.WindowSize {
		sorted = sorted[:p.WindowSize]
	}
	return sorted
}

// Weights counts tags in an already-windowed, newest-first list of tags and
// scales each count by the multiplier. Tags beyond WindowSize are ignored.
func (p AffinityPolicy) Weights(windowTags []string) map[string]float64 {
	p = p.Normalize()
	if len(windowTags) > p.WindowSize {
		windowTags = windowTags[:p.WindowSize]
	}
	weights := make(map[string]float64, len(windowTags))
	for _, tag := range windowTags {
		weights[tag] += p.Multiplier
	}
	return weights
}

// WeightsFromEntries windows the entries and returns the tag weights.
func (p AffinityPolicy) WeightsFromEntries(entries []model.AffinityEntry) map[string]float64 {
	window := p.Window(entries)
	tags := make([]string, len(window))
	for i, e := range window {
		tags[i] = e.Tag
	}
	return p.Weights(tags)
}
