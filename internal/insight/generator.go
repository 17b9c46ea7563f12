package insight

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/parser"

	"cloneops/ai"
	"cloneops/domain/action"
	"cloneops/domain/board"
	"cloneops/internal"
	"cloneops/ports"
)

// generateTimeout bounds each model call so a stuck upstream degrades to the
// heuristic instead of hanging the dashboard.
const generateTimeout = 12 * time.Second

// Generator produces the three-bullet board insight. Results are cached per
// board title and computed at most once per title until invalidated; callers
// racing on the same title share one generation.
type Generator struct {
	llm           ports.TextGenerator
	primaryModel  string
	fallbackModel string
	logger        *internal.Logger

	mu    sync.Mutex
	cache map[string]*entry
}

type entry struct {
	once    sync.Once
	insight action.Insight
}

func NewGenerator(llm ports.TextGenerator, primaryModel, fallbackModel string, logger *internal.Logger) *Generator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Generator{
		llm:           llm,
		primaryModel:  primaryModel,
		fallbackModel: fallbackModel,
		logger:        logger,
		cache:         make(map[string]*entry),
	}
}

// Insight returns the cached insight for a board, generating it on first
// request. Generation never fails outright: when both models error the
// deterministic summary built from the totals takes its place.
func (g *Generator) Insight(ctx context.Context, title string, totals board.Totals, byScore []board.ScoreBucket) action.Insight {
	e := g.entry(title)
	e.once.Do(func() {
		e.insight = g.generate(ctx, totals, byScore)
	})
	return e.insight
}

// Invalidate drops the cached insight for a title; the next request
// regenerates against fresh board state. Called when a run restarts.
func (g *Generator) Invalidate(title string) {
	g.mu.Lock()
	delete(g.cache, title)
	g.mu.Unlock()
}

func (g *Generator) entry(title string) *entry {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.cache[title]
	if !ok {
		e = &entry{}
		g.cache[title] = e
	}
	return e
}

func (g *Generator) generate(ctx context.Context, totals board.Totals, byScore []board.ScoreBucket) action.Insight {
	prompt := ai.BuildInsightPrompt(totals, byScore)

	for _, model := range []string{g.primaryModel, g.fallbackModel} {
		if model == "" {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, generateTimeout)
		md, err := g.llm.GenerateText(callCtx, ports.TextRequest{
			System:    ai.InsightSystemPrompt,
			Prompt:    prompt,
			Model:     model,
			MaxTokens: 512,
		})
		cancel()
		if err == nil && strings.TrimSpace(md) != "" {
			return render(md)
		}
		g.logger.Warn("insight generation with %s failed: %v", model, err)
	}

	return render(Heuristic(totals, byScore))
}

// Heuristic is the deterministic no-model summary. It always names the
// positive share and, when score data exists, the strongest and weakest
// cohorts.
func Heuristic(totals board.Totals, byScore []board.ScoreBucket) string {
	var sb strings.Builder
	pct := 0
	if totals.Total > 0 {
		pct = totals.Positive * 100 / totals.Total
	}
	fmt.Fprintf(&sb, "- **Positives**: %d/%d (%d%%) of clones reacted favorably.\n", totals.Positive, totals.Total, pct)

	high := topScores(byScore, func(b board.ScoreBucket) int { return b.Positive })
	weak := topScores(byScore, func(b board.ScoreBucket) int { return b.Negative })
	if len(high) > 0 {
		fmt.Fprintf(&sb, "- **High potential**: engagement scores %s carry the most positive reactions.\n", joinScores(high))
	} else {
		sb.WriteString("- **High potential**: no cohort stands out yet.\n")
	}
	if len(weak) > 0 {
		fmt.Fprintf(&sb, "- **Weak spots**: scores %s skew negative and need a different lever.\n", joinScores(weak))
	} else {
		sb.WriteString("- **Weak spots**: no cohort skews negative so far.\n")
	}
	return sb.String()
}

// topScores returns up to three bucket scores ranked by the given count,
// excluding empty buckets.
func topScores(byScore []board.ScoreBucket, count func(board.ScoreBucket) int) []int {
	type ranked struct{ score, n int }
	var rs []ranked
	for _, b := range byScore {
		if n := count(b); n > 0 {
			rs = append(rs, ranked{b.Score, n})
		}
	}
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].n != rs[j].n {
			return rs[i].n > rs[j].n
		}
		return rs[i].score < rs[j].score
	})
	if len(rs) > 3 {
		rs = rs[:3]
	}
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.score
	}
	return out
}

func joinScores(scores []int) string {
	parts := make([]string, len(scores))
	for i, s := range scores {
		parts[i] = fmt.Sprintf("%d", s)
	}
	return strings.Join(parts, ", ")
}

// render converts the markdown body to HTML alongside the raw text.
func render(md string) action.Insight {
	md = strings.TrimSpace(md)
	p := parser.NewWithExtensions(parser.CommonExtensions)
	html := markdown.ToHTML([]byte(md), p, nil)
	return action.Insight{Markdown: md, HTML: string(html)}
}
