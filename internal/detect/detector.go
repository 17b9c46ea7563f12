package detect

import (
	"context"
	"strings"

	"cloneops/ai"
	"cloneops/internal"
	"cloneops/ports"
)

// Title length window for cleaned hypotheses.
const (
	minTitleLen = 4
	maxTitleLen = 50
)

// retryMinMessageLen gates the single retry: short assistant messages are
// not worth a second model call.
const retryMinMessageLen = 20

// Result is the detector's verdict on one assistant message.
type Result struct {
	Actionable bool     `json:"actionable"`
	Hypotheses []string `json:"hypotheses"`
	Reason     string   `json:"reason"`
}

// Detector decides whether the assistant's last message warrants offering a
// clone simulation, and extracts the candidate hypothesis titles to run.
type Detector struct {
	llm    ports.ObjectGenerator
	model  string
	logger *internal.Logger
}

func NewDetector(llm ports.ObjectGenerator, model string, logger *internal.Logger) *Detector {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Detector{llm: llm, model: model, logger: logger}
}

// Detect runs one structured detection call and post-processes the titles.
// The final verdict requires both the model flag and at least one surviving
// cleaned hypothesis. When the model says actionable but every title washes
// out, one retry is made for messages long enough to plausibly contain
// strategies.
func (d *Detector) Detect(ctx context.Context, messages []ai.ConversationTurn, lastAssistant string) (Result, error) {
	res, err := d.call(ctx, messages, lastAssistant)
	if err != nil {
		return Result{}, err
	}

	if res.Actionable && len(res.Hypotheses) == 0 && len(lastAssistant) > retryMinMessageLen {
		retry, err := d.call(ctx, messages, lastAssistant)
		if err == nil {
			res = retry
		}
	}

	res.Actionable = res.Actionable && len(res.Hypotheses) > 0
	if !res.Actionable {
		res.Hypotheses = nil
	}
	return res, nil
}

func (d *Detector) call(ctx context.Context, messages []ai.ConversationTurn, lastAssistant string) (Result, error) {
	var raw Result
	err := d.llm.GenerateObject(ctx, ports.ObjectRequest{
		System:     ai.DetectorSystemPrompt,
		Prompt:     ai.BuildDetectorPrompt(messages, lastAssistant),
		Model:      d.model,
		SchemaHint: ai.DetectorSchemaHint,
	}, &raw)
	if err != nil {
		return Result{}, err
	}
	raw.Hypotheses = CleanHypotheses(raw.Hypotheses)
	return raw, nil
}

// CleanHypotheses strips list punctuation, enforces the title length window
// and drops case-insensitive duplicates, preserving first-seen order.
func CleanHypotheses(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, h := range raw {
		t := CleanTitle(h)
		n := len([]rune(t))
		if n < minTitleLen || n > maxTitleLen {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// CleanTitle trims whitespace and the decorative punctuation models like to
// wrap list items in.
func CleanTitle(s string) string {
	return strings.Trim(s, ` `+"\t"+`["'`+"•"+`-:`+"—。"+`.]`)
}
