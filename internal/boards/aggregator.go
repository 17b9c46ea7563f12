package boards

import (
	"context"
	"sync"

	"cloneops/domain/board"
	"cloneops/domain/persona"
	"cloneops/domain/run"
	"cloneops/internal"
)

// Aggregator folds run events into named boards. One board per run title,
// deduplicated by name; a second run of the same title resets the existing
// board in place rather than appending a duplicate. The synthetic "All" board
// mirrors whichever run was most recently started.
type Aggregator struct {
	logger *internal.Logger

	mu         sync.RWMutex
	order      []string
	boards     map[string]*board.Board
	corpus     []persona.Record
	activeName string
}

func NewAggregator(logger *internal.Logger) *Aggregator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	a := &Aggregator{
		logger: logger,
		boards: make(map[string]*board.Board),
	}
	a.boards[board.AllBoardName] = board.New(board.AllBoardName, 0)
	a.order = append(a.order, board.AllBoardName)
	return a
}

// SetCorpus records the persona panel used for sizing new boards and for
// score summaries. Existing boards shorter than the corpus are padded.
func (a *Aggregator) SetCorpus(corpus []persona.Record) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.corpus = corpus
	for _, b := range a.boards {
		b.Pad(len(corpus))
	}
}

// Run consumes events until the channel closes or the context ends. Intended
// to be launched once next to a bus subscription.
func (a *Aggregator) Run(ctx context.Context, events <-chan run.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			a.Apply(e)
		}
	}
}

// Apply folds one event into the board map.
func (a *Aggregator) Apply(e run.Event) {
	if e.Title == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	switch e.Kind {
	case run.EventStart:
		b := a.ensure(e.Title)
		// Restarting a title wipes its previous outcomes.
		fresh := board.New(e.Title, len(b.Bubbles))
		fresh.Pad(len(a.corpus))
		a.boards[e.Title] = fresh
		a.activeName = e.Title
		a.boards[board.AllBoardName] = a.mirror(fresh)
	case run.EventChunk:
		b := a.ensure(e.Title)
		b.Set(e.Idx, e.Label, e.Reason)
		if e.Title == a.activeName {
			a.boards[board.AllBoardName].Set(e.Idx, e.Label, e.Reason)
		}
	case run.EventDone:
		// Terminal marker only; chunk slots already hold final state.
	}
}

// ensure returns the board for a title, creating it lazily when a chunk for
// an unseen title arrives before its start event.
func (a *Aggregator) ensure(title string) *board.Board {
	if b, ok := a.boards[title]; ok {
		return b
	}
	b := board.New(title, len(a.corpus))
	a.boards[title] = b
	a.order = append(a.order, title)
	if a.activeName == "" {
		a.activeName = title
		a.boards[board.AllBoardName] = a.mirror(b)
	}
	return b
}

func (a *Aggregator) mirror(src *board.Board) *board.Board {
	m := src.Clone()
	m.Name = board.AllBoardName
	return m
}

// Get returns a deep copy of one board, or nil if the name is unknown.
func (a *Aggregator) Get(name string) *board.Board {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.boards[name]
	if !ok {
		return nil
	}
	return b.Clone()
}

// List returns deep copies of every board in insertion order, "All" first.
func (a *Aggregator) List() []*board.Board {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*board.Board, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.boards[name].Clone())
	}
	return out
}

// Summarize returns the label totals and per-score breakdown for one board.
func (a *Aggregator) Summarize(name string) (board.Totals, []board.ScoreBucket, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.boards[name]
	if !ok {
		return board.Totals{}, nil, false
	}
	return board.CountTotals(b), board.SummarizeByScore(b, a.corpus), true
}
