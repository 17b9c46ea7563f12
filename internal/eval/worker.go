package eval

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"cloneops/ai"
	"cloneops/domain/board"
	"cloneops/domain/persona"
	"cloneops/internal"
	"cloneops/internal/config"
	"cloneops/ports"
)

// classifyMaxRetries caps extra attempts per persona classification.
const classifyMaxRetries = 1

// ClassifierPool fans one hypothesis out across the persona panel with
// bounded concurrency. Workers pull the next unclaimed persona index from a
// shared atomic counter, so slow classifications never block faster ones,
// and a weighted semaphore caps in-flight model calls across every
// concurrent run sharing the pool.
type ClassifierPool struct {
	llm         ports.TextGenerator
	model       string
	concurrency int
	inflight    *semaphore.Weighted
	logger      *internal.Logger
}

// NewClassifierPool creates a pool. Concurrency is clamped to the configured
// window; the shared in-flight budget is sized to the same bound.
func NewClassifierPool(llm ports.TextGenerator, model string, concurrency int, logger *internal.Logger) *ClassifierPool {
	if concurrency < config.MinEvalConcurrency {
		concurrency = config.MinEvalConcurrency
	}
	if concurrency > config.MaxEvalConcurrency {
		concurrency = config.MaxEvalConcurrency
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ClassifierPool{
		llm:         llm,
		model:       model,
		concurrency: concurrency,
		inflight:    semaphore.NewWeighted(int64(concurrency)),
		logger:      logger,
	}
}

// ClassifyPanel streams one outcome per persona in completion order. Every
// outcome is tagged with its persona index so consumers can place it
// regardless of arrival order. The channel closes after all personas have a
// terminal outcome; per-persona failures degrade to unknown and never abort
// sibling workers.
func (p *ClassifierPool) ClassifyPanel(ctx context.Context, hypothesis string, corpus []persona.Record) <-chan board.Outcome {
	out := make(chan board.Outcome, len(corpus))

	go func() {
		defer close(out)

		var cursor atomic.Int64
		var g errgroup.Group
		workers := p.concurrency
		if workers > len(corpus) {
			workers = len(corpus)
		}
		for w := 0; w < workers; w++ {
			g.Go(func() error {
				for {
					idx := int(cursor.Add(1)) - 1
					if idx >= len(corpus) {
						return nil
					}
					out <- p.classifyOne(ctx, hypothesis, corpus[idx])
				}
			})
		}
		_ = g.Wait()
	}()

	return out
}

// ClassifyAll is the blocking mode: it drains the stream into a dense slice
// ordered by persona index.
func (p *ClassifierPool) ClassifyAll(ctx context.Context, hypothesis string, corpus []persona.Record) []board.Outcome {
	results := make([]board.Outcome, len(corpus))
	for outcome := range p.ClassifyPanel(ctx, hypothesis, corpus) {
		if outcome.PersonaIndex >= 0 && outcome.PersonaIndex < len(results) {
			results[outcome.PersonaIndex] = outcome
		}
	}
	return results
}

// classifyOne issues one model call and normalizes whatever comes back.
// Failures are recovered locally as unknown.
func (p *ClassifierPool) classifyOne(ctx context.Context, hypothesis string, rec persona.Record) board.Outcome {
	if err := p.inflight.Acquire(ctx, 1); err != nil {
		return board.Outcome{PersonaIndex: rec.Index, Label: board.LabelUnknown, Reason: FailureReason}
	}
	defer p.inflight.Release(1)

	raw, err := p.llm.GenerateText(ctx, ports.TextRequest{
		System:     ai.ClassifierSystemPrompt,
		Prompt:     ai.BuildClassifierPrompt(hypothesis, rec),
		Model:      p.model,
		MaxTokens:  128,
		MaxRetries: classifyMaxRetries,
	})
	if err != nil {
		p.logger.Debug("classification failed for persona %d: %v", rec.Index, err)
		return board.Outcome{PersonaIndex: rec.Index, Label: board.LabelUnknown, Reason: FailureReason}
	}

	label, reason := NormalizeLabel(raw)
	return board.Outcome{PersonaIndex: rec.Index, Label: label, Reason: reason}
}
