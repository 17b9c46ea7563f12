package insight

import (
	"context"
	"sync"

	"cloneops/ai"
	"cloneops/domain/action"
	"cloneops/domain/board"
	"cloneops/internal"
	"cloneops/ports"
)

// Planner turns a finished board into at most four typed next actions. Like
// insights, plans are cached per title and computed once until invalidated.
type Planner struct {
	llm    ports.ObjectGenerator
	model  string
	logger *internal.Logger

	mu      sync.Mutex
	entries map[string]*planEntry
}

type planEntry struct {
	once  sync.Once
	items []action.Item
}

func NewPlanner(llm ports.ObjectGenerator, model string, logger *internal.Logger) *Planner {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Planner{
		llm:     llm,
		model:   model,
		logger:  logger,
		entries: make(map[string]*planEntry),
	}
}

// Plan returns the cached action list for a title, generating on first use.
// Invalid or surplus items from the model are dropped; an empty or failed
// generation falls back to the fixed default plan.
func (p *Planner) Plan(ctx context.Context, title, hypothesis string, totals board.Totals, byScore []board.ScoreBucket) []action.Item {
	e := p.entry(title)
	e.once.Do(func() {
		e.items = p.generate(ctx, hypothesis, totals, byScore)
	})
	return e.items
}

// Invalidate drops the cached plan for a title.
func (p *Planner) Invalidate(title string) {
	p.mu.Lock()
	delete(p.entries, title)
	p.mu.Unlock()
}

func (p *Planner) entry(title string) *planEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[title]
	if !ok {
		e = &planEntry{}
		p.entries[title] = e
	}
	return e
}

func (p *Planner) generate(ctx context.Context, hypothesis string, totals board.Totals, byScore []board.ScoreBucket) []action.Item {
	callCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	defer cancel()

	var payload struct {
		Actions []action.Item `json:"actions"`
	}
	err := p.llm.GenerateObject(callCtx, ports.ObjectRequest{
		System:     ai.ActionsSystemPrompt,
		Prompt:     ai.BuildActionsPrompt(hypothesis, totals, byScore),
		Model:      p.model,
		SchemaHint: ai.ActionsSchemaHint,
	}, &payload)
	if err != nil {
		p.logger.Warn("next-action generation failed: %v", err)
		return DefaultPlan()
	}

	items := make([]action.Item, 0, action.MaxItems)
	for _, it := range payload.Actions {
		if it.Validate() != nil {
			continue
		}
		items = append(items, it)
		if len(items) == action.MaxItems {
			break
		}
	}
	if len(items) == 0 {
		return DefaultPlan()
	}
	return items
}

// DefaultPlan is the deterministic fallback when the model yields nothing
// usable. One lever per surface.
func DefaultPlan() []action.Item {
	return []action.Item{
		{Type: action.TypeUI, Scenario: action.ScenarioFeatureProduct, Payload: "best seller", Content: "Feature the current best seller on the home screen to convert high-intent visitors."},
		{Type: action.TypeUI, Scenario: action.ScenarioCategoryDiscount, Payload: "top category", Content: "Run a 10% discount on the top category to re-engage mid-score cohorts."},
		{Type: action.TypeStartExample, Scenario: action.ScenarioChatbotStartExample, Payload: "What is on sale today?", Content: "Seed the chatbot with a sale-focused starter question to surface offers."},
	}
}
