package ranking

import (
	"testing"
	"time"

	"github.com/Majkoo/PicturesApi/internal/model"
)

func entriesOf(start time.Time, tags ...string) []model.AffinityEntry {
	entries := make([]model.AffinityEntry, len(tags))
	for i, tag := range tags {
		entries[i] = model.AffinityEntry{
			ID:        int64(i + 1),
			Tag:       tag,
			CreatedAt: start.Add(time.Duration(i) * time.Minute),
		}
	}
	return entries
}

func TestWeights_CountsTimesMultiplier(t *testing.T) {
	p := DefaultAffinityPolicy()
	w := p.Weights([]string{"cats", "dogs", "cats"})

	if !almostEqual(w["cats"], 4.5, 1e-9) {
		t.Errorf("cats = %f, want 4.5", w["cats"])
	}
	if !almostEqual(w["dogs"], 2.25, 1e-9) {
		t.Errorf("dogs = %f, want 2.25", w["dogs"])
	}
	if _, ok := w["birds"]; ok {
		t.Error("tags outside the window must not appear")
	}
}

func TestWeightsFromEntries_OnlyMostRecentWindowCounts(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tags := make([]string, 0, 20)
	for i := 0; i < 5; i++ {
		tags = append(tags, "old")
	}
	for i := 0; i < 15; i++ {
		tags = append(tags, "new")
	}

	w := DefaultAffinityPolicy().WeightsFromEntries(entriesOf(start, tags...))

	if w["old"] != 0 {
		t.Errorf("old = %f, want 0 (outside window)", w["old"])
	}
	if !almostEqual(w["new"], 15*2.25, 1e-9) {
		t.Errorf("new = %f, want %f", w["new"], 15*2.25)
	}
}

func TestWeights_NeverExceedWindowTimesMultiplier(t *testing.T) {
	p := DefaultAffinityPolicy()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tags := make([]string, 200)
	for i := range tags {
		tags[i] = "cats"
	}

	w := p.WeightsFromEntries(entriesOf(start, tags...))
	if w["cats"] > p.MaxWeight() {
		t.Errorf("cats = %f exceeds bound %f", w["cats"], p.MaxWeight())
	}
	if !almostEqual(p.MaxWeight(), 33.75, 1e-9) {
		t.Errorf("MaxWeight = %f, want 33.75", p.MaxWeight())
	}

	// Weights also truncates an oversized list handed to it directly.
	if got := p.Weights(tags)["cats"]; got > p.MaxWeight() {
		t.Errorf("Weights on raw list = %f exceeds bound", got)
	}
}

func TestWindow_TiesBrokenByID(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	entries := []model.AffinityEntry{
		{ID: 1, Tag: "a", CreatedAt: at},
		{ID: 3, Tag: "c", CreatedAt: at},
		{ID: 2, Tag: "b", CreatedAt: at},
	}
	p := AffinityPolicy{WindowSize: 2, Multiplier: 1}

	for i := 0; i < 5; i++ {
		window := p.Window(entries)
		if len(window) != 2 || window[0].ID != 3 || window[1].ID != 2 {
			t.Fatalf("window = %+v, want ids [3 2]", window)
		}
	}
	if entries[0].ID != 1 {
		t.Error("Window must not reorder its input")
	}
}

func TestAffinityPolicy_Normalize(t *testing.T) {
	p := AffinityPolicy{}.Normalize()
	if p.WindowSize != 15 || p.Multiplier != 2.25 {
		t.Errorf("Normalize() = %+v, want 15 x 2.25", p)
	}
}

func TestWeights_EmptyHistory(t *testing.T) {
	w := DefaultAffinityPolicy().WeightsFromEntries(nil)
	if len(w) != 0 {
		t.Errorf("weights = %v, want empty", w)
	}
}
