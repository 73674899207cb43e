package ranking

import "github.com/Majkoo/PicturesApi/internal/model"

// VoteAction is what the ledger must do to the stored vote row.
type VoteAction int

const (
	ActionInsert VoteAction = iota + 1
	ActionDelete
	ActionUpdate
)

func (a VoteAction) String() string {
	switch a {
	case ActionInsert:
		return "insert"
	case ActionDelete:
		return "delete"
	case ActionUpdate:
		return "update"
	}
	return "unknown"
}

// Transition is the effect of one SetVote on a pair.
type Transition struct {
	Action VoteAction
	From   model.VoteState
	To     model.VoteState

	LikeDelta    int64
	DislikeDelta int64
}

// IntoLike reports whether the pair moved into the like state, which is the
// only case that appends affinity entries.
func (t Transition) IntoLike() bool {
	return t.To == model.VoteLike && t.From != model.VoteLike
}

// NextVote decides the transition for a requested polarity given the current
// live vote (nil when none exists):
//
//	none           -> insert requested
//	same polarity  -> delete (toggle off)
//	opposite       -> update in place
func NextVote(current *model.Polarity, requested model.Polarity) Transition {
	t := Transition{From: model.VoteNone}
	if current != nil {
		t.From = model.StateOf(*current)
	}

	switch {
	case current == nil:
		t.Action = ActionInsert
		t.To = model.StateOf(requested)
		t.addDelta(requested, 1)
	case *current == requested:
		t.Action = ActionDelete
		t.To = model.VoteNone
		t.addDelta(requested, -1)
	default:
		t.Action = ActionUpdate
		t.To = model.StateOf(requested)
		t.addDelta(*current, -1)
		t.addDelta(requested, 1)
	}
	return t
}

func (t *Transition) addDelta(p model.Polarity, n int64) {
	if p == model.Like {
		t.LikeDelta += n
	} else {
		t.DislikeDelta += n
	}
}
