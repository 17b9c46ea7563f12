package run

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"cloneops/domain/board"
)

// State is the lifecycle of one evaluation run.
type State string

const (
	StatePending State = "pending"
	StateRunning State = "running"
	StateDone    State = "done"
	StateFailed  State = "failed"
)

// MaxTitleLen bounds the derived run title used as the board name.
const MaxTitleLen = 60

// Run is one evaluation of a hypothesis across the whole persona corpus.
// Outcomes is sized to the corpus length up front; each worker completion
// fills exactly one slot.
type Run struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Hypothesis  string          `json:"hypothesis"`
	State       State           `json:"state"`
	Outcomes    []board.Outcome `json:"outcomes"`
	StartedAt   time.Time       `json:"started_at"`
	CompletedAt time.Time       `json:"completed_at,omitempty"`
}

// New creates a pending run with all outcome slots initialized to the
// pending sentinel.
func New(hypothesis string, corpusLen int) *Run {
	r := &Run{
		ID:         uuid.NewString(),
		Title:      TitleOf(hypothesis),
		Hypothesis: hypothesis,
		State:      StatePending,
		Outcomes:   make([]board.Outcome, corpusLen),
		StartedAt:  time.Now(),
	}
	for i := range r.Outcomes {
		r.Outcomes[i] = board.Outcome{PersonaIndex: i, Label: board.LabelPending}
	}
	return r
}

// Settled reports whether every outcome slot holds a terminal label.
func (r *Run) Settled() bool {
	for _, o := range r.Outcomes {
		if !o.Label.Terminal() {
			return false
		}
	}
	return true
}

// TitleOf derives the short run/board title from a hypothesis: cut at the
// first separator, strip wrapping quotes and brackets, truncate to
// MaxTitleLen with an ellipsis.
func TitleOf(hypothesis string) string {
	h := strings.TrimSpace(hypothesis)
	if cut := strings.IndexAny(h, ":—"); cut > 0 {
		h = h[:cut]
	}
	h = strings.TrimSpace(h)
	h = strings.TrimLeft(h, `"'[(`)
	h = strings.TrimRight(h, `"'])`)
	if h == "" {
		h = strings.TrimSpace(hypothesis)
	}
	runes := []rune(h)
	if len(runes) > MaxTitleLen {
		return string(runes[:MaxTitleLen-3]) + "..."
	}
	return h
}

// EventKind names the three lifecycle events a run emits.
type EventKind string

const (
	EventStart EventKind = "eval-start"
	EventChunk EventKind = "eval-chunk"
	EventDone  EventKind = "eval-done"
)

// Event is the only channel through which downstream consumers learn about
// run progress. Chunk events carry one persona outcome; start and done carry
// just the title.
type Event struct {
	Kind   EventKind   `json:"kind"`
	Title  string      `json:"title"`
	Idx    int         `json:"idx,omitempty"`
	Label  board.Label `json:"label,omitempty"`
	Reason string      `json:"reason,omitempty"`
}
