package ranking

import (
	"bytes"
	"sort"

	"github.com/Majkoo/PicturesApi/internal/model"
)

// Multiplier returns 1 plus the summed affinity weight of the given tags.
// Repeated tags on the same picture count once.
func Multiplier(tags []string, weights map[string]float64) float64 {
	m := 1.0
	if len(weights) == 0 {
		return m
	}
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		m += weights[tag]
	}
	return m
}

// Composite is popularity scaled by the account's tag affinity. With no tag
// overlap it equals the popularity score.
func Composite(score float64, tags []string, weights map[string]float64) float64 {
	return score * Multiplier(tags, weights)
}

// Rank orders candidates by composite score descending, newest first on ties,
// and returns at most limit summaries. limit <= 0 returns every candidate.
func Rank(candidates []model.Picture, weights map[string]float64, limit int) []model.PictureSummary {
	if len(candidates) == 0 {
		return []model.PictureSummary{}
	}

	ranked := make([]model.PictureSummary, len(candidates))
	for i := range candidates {
		s := candidates[i].Summary()
		s.Composite = Composite(s.Score, s.Tags, weights)
		ranked[i] = s
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Composite != b.Composite {
			return a.Composite > b.Composite
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
