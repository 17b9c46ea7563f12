package board

import (
	"cloneops/domain/persona"
)

// Label is the three-way outcome of one clone classification, plus the
// pending sentinel used before a worker has reported.
type Label string

const (
	LabelPositive Label = "positive"
	LabelNegative Label = "negative"
	LabelUnknown  Label = "unknown"
	LabelPending  Label = "pending"
)

// Terminal reports whether the label is a final classification value.
func (l Label) Terminal() bool {
	return l == LabelPositive || l == LabelNegative || l == LabelUnknown
}

// Valid reports whether the label is one of the four known states.
func (l Label) Valid() bool {
	return l.Terminal() || l == LabelPending
}

// Outcome is one clone's classification for one hypothesis run.
type Outcome struct {
	PersonaIndex int    `json:"idx"`
	Label        Label  `json:"label"`
	Reason       string `json:"reason"`
}

// AllBoardName is the synthetic board that mirrors the most recently active
// run. It is a view alias, not a merge across runs.
const AllBoardName = "All"

// Board is the named result set for one hypothesis: one bubble and one
// reason per persona index. Invariant: len(Bubbles) == len(Reasons) always.
type Board struct {
	Name    string   `json:"name"`
	Bubbles []Label  `json:"bubbles"`
	Reasons []string `json:"reasons"`
}

// New creates a board sized to the corpus with every slot pending.
func New(name string, size int) *Board {
	b := &Board{
		Name:    name,
		Bubbles: make([]Label, size),
		Reasons: make([]string, size),
	}
	for i := range b.Bubbles {
		b.Bubbles[i] = LabelPending
	}
	return b
}

// Set writes one slot. Out-of-range indices are ignored rather than grown:
// the corpus length is fixed for the process lifetime.
func (b *Board) Set(idx int, label Label, reason string) bool {
	if idx < 0 || idx >= len(b.Bubbles) {
		return false
	}
	b.Bubbles[idx] = label
	b.Reasons[idx] = reason
	return true
}

// Pad grows the board with unknown/empty slots up to size. Boards shorter
// than the corpus are padded, never truncated.
func (b *Board) Pad(size int) {
	for len(b.Bubbles) < size {
		b.Bubbles = append(b.Bubbles, LabelUnknown)
		b.Reasons = append(b.Reasons, "")
	}
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (b *Board) Clone() *Board {
	out := &Board{
		Name:    b.Name,
		Bubbles: make([]Label, len(b.Bubbles)),
		Reasons: make([]string, len(b.Reasons)),
	}
	copy(out.Bubbles, b.Bubbles)
	copy(out.Reasons, b.Reasons)
	return out
}

// Totals holds label counts for a whole board. Pending slots count as
// unknown so that Positive+Negative+Unknown == Total at all times.
type Totals struct {
	Positive int `json:"p"`
	Negative int `json:"n"`
	Unknown  int `json:"u"`
	Total    int `json:"total"`
}

// ScoreBucket is the per-engagement-score breakdown of one board.
type ScoreBucket struct {
	Score    int `json:"score"`
	Positive int `json:"positive"`
	Negative int `json:"negative"`
	Unknown  int `json:"unknown"`
}

// CountTotals tallies the board's bubbles.
func CountTotals(b *Board) Totals {
	t := Totals{Total: len(b.Bubbles)}
	for _, s := range b.Bubbles {
		switch s {
		case LabelPositive:
			t.Positive++
		case LabelNegative:
			t.Negative++
		default:
			t.Unknown++
		}
	}
	return t
}

// SummarizeByScore recomputes the 30-bucket breakdown from the board and the
// corpus. The result is a pure function of current board state; it is never
// stored independently.
func SummarizeByScore(b *Board, corpus []persona.Record) []ScoreBucket {
	groups := persona.GroupByScore(corpus)
	buckets := make([]ScoreBucket, persona.BucketCount)
	for i, indices := range groups {
		bucket := ScoreBucket{Score: persona.MinScore + i}
		for _, idx := range indices {
			var s Label
			if idx >= 0 && idx < len(b.Bubbles) {
				s = b.Bubbles[idx]
			}
			switch s {
			case LabelPositive:
				bucket.Positive++
			case LabelNegative:
				bucket.Negative++
			default:
				bucket.Unknown++
			}
		}
		buckets[i] = bucket
	}
	return buckets
}
