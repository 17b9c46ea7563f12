package eval

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cloneops/domain/board"
	"cloneops/domain/run"
	"cloneops/internal"
	"cloneops/ports"
)

// Coordinator owns the run registry and drives the classifier pool for each
// submitted hypothesis, publishing lifecycle events as outcomes arrive.
// Concurrent runs share the pool's in-flight budget but are otherwise
// isolated: one run failing never cancels another.
type Coordinator struct {
	pool   *ClassifierPool
	corpus ports.CorpusProvider
	bus    ports.EventPublisher
	logger *internal.Logger

	mu   sync.RWMutex
	runs map[string]*run.Run
}

// NewCoordinator wires the coordinator. The bus may be nil when callers only
// want blocking evaluation.
func NewCoordinator(pool *ClassifierPool, corpus ports.CorpusProvider, bus ports.EventPublisher, logger *internal.Logger) *Coordinator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Coordinator{
		pool:   pool,
		corpus: corpus,
		bus:    bus,
		logger: logger,
		runs:   make(map[string]*run.Run),
	}
}

// Evaluate runs one hypothesis to completion, streaming chunk events and
// recording outcomes in the registry. It returns the finished run. A corpus
// load failure is the only thing that fails the run outright; individual
// persona failures already degrade to unknown inside the pool.
func (c *Coordinator) Evaluate(ctx context.Context, hypothesis string) (*run.Run, error) {
	corpus, err := c.corpus.LoadPersonas(ctx)
	if err != nil {
		r := run.New(hypothesis, 0)
		r.State = run.StateFailed
		r.CompletedAt = time.Now()
		c.register(r)
		return r, err
	}

	r := run.New(hypothesis, len(corpus))
	r.State = run.StateRunning
	c.register(r)
	c.publish(run.Event{Kind: run.EventStart, Title: r.Title})

	for outcome := range c.pool.ClassifyPanel(ctx, hypothesis, corpus) {
		c.record(r.ID, outcome)
		c.publish(run.Event{
			Kind:   run.EventChunk,
			Title:  r.Title,
			Idx:    outcome.PersonaIndex,
			Label:  outcome.Label,
			Reason: outcome.Reason,
		})
	}

	c.finish(r.ID)
	c.publish(run.Event{Kind: run.EventDone, Title: r.Title})
	c.logger.Info("run %s done: %q across %d personas", r.ID, r.Title, len(corpus))
	return c.Get(r.ID), nil
}

// EvaluateAll launches every hypothesis concurrently and waits for all of
// them. Each run swallows its own error into the returned slice ordering so
// siblings always finish; the first corpus error, if any, is returned after
// everything settles.
func (c *Coordinator) EvaluateAll(ctx context.Context, hypotheses []string) ([]*run.Run, error) {
	results := make([]*run.Run, len(hypotheses))
	errs := make([]error, len(hypotheses))

	var g errgroup.Group
	for i, h := range hypotheses {
		i, h := i, h
		g.Go(func() error {
			results[i], errs[i] = c.Evaluate(ctx, h)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// Get returns a snapshot of one run, or nil if unknown.
func (c *Coordinator) Get(id string) *run.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.runs[id]
	if !ok {
		return nil
	}
	return snapshot(r)
}

// List returns snapshots of every registered run.
func (c *Coordinator) List() []*run.Run {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*run.Run, 0, len(c.runs))
	for _, r := range c.runs {
		out = append(out, snapshot(r))
	}
	return out
}

func (c *Coordinator) register(r *run.Run) {
	c.mu.Lock()
	c.runs[r.ID] = r
	c.mu.Unlock()
}

// record applies one outcome, last write wins. Chunks arriving after done
// still land so a retried persona can overwrite its earlier slot.
func (c *Coordinator) record(id string, o board.Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.runs[id]
	if !ok || o.PersonaIndex < 0 || o.PersonaIndex >= len(r.Outcomes) {
		return
	}
	r.Outcomes[o.PersonaIndex] = o
}

func (c *Coordinator) finish(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.runs[id]
	if !ok {
		return
	}
	// Any slot still pending at completion settles as unknown.
	for i, o := range r.Outcomes {
		if !o.Label.Terminal() {
			r.Outcomes[i] = board.Outcome{PersonaIndex: i, Label: board.LabelUnknown, Reason: FailureReason}
		}
	}
	r.State = run.StateDone
	r.CompletedAt = time.Now()
}

func (c *Coordinator) publish(e run.Event) {
	if c.bus != nil {
		c.bus.Publish(e)
	}
}

func snapshot(r *run.Run) *run.Run {
	cp := *r
	cp.Outcomes = make([]board.Outcome, len(r.Outcomes))
	copy(cp.Outcomes, r.Outcomes)
	return &cp
}
