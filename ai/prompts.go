package ai

import (
	"encoding/json"
	"fmt"
	"strings"

	"cloneops/domain/action"
	"cloneops/domain/board"
	"cloneops/domain/persona"
)

// ChatSystemPrompt steers the shop-ops assistant. The strategy whitelist
// must stay aligned with the action scenario taxonomy.
const ChatSystemPrompt = `You are an AI assistant that helps operate an online shop.
Provide helpful answers across merchandising, marketing, and customer analytics. Keep your answers clear and concise. Use indent and bold to highlight important information.

When appropriate, you may propose running a digital clone simulation.
When suggesting strategies, do not exceed 4 items.
Always respond in English when the user asks in English.

Actionable strategies could include things like:
- Changing the main product on the home screen
- Discount event for a specific category
- Coupon event for a specific category
- 30-minute time sale on all products of a specific category

Only suggest these four strategies; do not mention any others.`

// ClassifierSystemPrompt is the strict per-clone output contract: exactly
// one label, optionally followed by a short rationale.
const ClassifierSystemPrompt = `You are a customer reaction simulator for an ecommerce shop.
You are given one customer persona and one merchandising hypothesis.
Predict how THIS customer would react to the hypothesis.

Answer with exactly one of: positive | negative | unknown
Optionally follow the label with " - " and one short sentence of rationale.
Be conservative but decisive: choose unknown only when the persona gives genuinely weak evidence either way. Do not default to unknown.`

// BuildClassifierPrompt renders the per-persona classification prompt.
func BuildClassifierPrompt(hypothesis string, rec persona.Record) string {
	var sb strings.Builder
	sb.WriteString("Hypothesis under evaluation:\n")
	sb.WriteString(hypothesis)
	sb.WriteString("\n\nCustomer persona (engagement score ")
	fmt.Fprintf(&sb, "%d of %d):\n", persona.ClampScore(rec.EngagementScore), persona.MaxScore)
	if rec.Summary != "" {
		sb.WriteString(rec.Summary)
		sb.WriteString("\n")
	}
	sb.WriteString(rec.Prompt)
	sb.WriteString("\n\nLabel:")
	return sb.String()
}

// InsightSystemPrompt asks for exactly three operational bullets and nothing
// else; next actions are a separate generation pass.
const InsightSystemPrompt = `You are a data analyst for an ecommerce clone simulation. Write concise, high-signal insights for a bubble chart.
Return ONLY 3 markdown bullets covering: where engagement is strong or weak and why, one notable cohort, and one operational implication.
DO NOT include headings or a 'Next actions' section.`

// BuildInsightPrompt renders the chart context for the insight call.
func BuildInsightPrompt(totals board.Totals, byScore []board.ScoreBucket) string {
	t, _ := json.Marshal(totals)
	b, _ := json.Marshal(byScore)
	return fmt.Sprintf("Chart context:\n- Totals: %s\n- By score (1..30): %s\nGuidelines:\n- Mention skew/peaks/imbalance.\n- Point to obvious cohorts.\n- Keep it scannable. No next actions.", t, b)
}

// ActionsSystemPrompt constrains next-action generation to the fixed
// scenario taxonomy and the typed output shape.
const ActionsSystemPrompt = `You are a growth operator for an ecommerce shop. Propose concrete next actions based on the simulation results.

You may ONLY use these scenarios:
- feature-product: feature a product on the home screen (type "ui", payload = product or category name)
- category-discount: ` + categoryDiscountDesc + `
- category-coupon: ` + categoryCouponDesc + `
- time-sale: ` + timeSaleDesc + `
- chatbot-start-example: inject a starter example into the shop chatbot (type "start-example", payload = the example question)
- chatbot-guided-response: add a guided response message to the chatbot (type "chat", payload = the guidance message)

Return a JSON object: {"actions": [{"type": "...", "scenario": "...", "payload": "...", "content": "..."}]}
Rules: 1 to 4 actions; type must be one of ui|chat|start-example; content starts with a verb, is specific (target, lever, expected effect) and stays under 120 characters.`

const (
	categoryDiscountDesc = `discount event on a specific category at exactly 10% (type "ui", payload = category name)`
	categoryCouponDesc   = `coupon event for a specific category at exactly 15% (type "ui", payload = category name)`
	timeSaleDesc         = `30-minute time sale on all products of a specific category (type "ui", payload = category name)`
)

// ActionsSchemaHint is embedded into the structured-output system message.
const ActionsSchemaHint = `{"actions":[{"type":"ui|chat|start-example","scenario":"feature-product|category-discount|category-coupon|time-sale|chatbot-start-example|chatbot-guided-response","payload":"string","content":"string (<=120 chars)"}]}`

// BuildActionsPrompt renders the next-actions context.
func BuildActionsPrompt(hypothesis string, totals board.Totals, byScore []board.ScoreBucket) string {
	t, _ := json.Marshal(totals)
	b, _ := json.Marshal(byScore)
	return fmt.Sprintf("Evaluated hypothesis:\n%s\n\nContext:\n- Totals: %s\n- By score (1..30): %s\nPick at most %d actions that best exploit the strong cohorts or repair the weak ones.", hypothesis, t, b, action.MaxItems)
}

// DetectorSystemPrompt is the actionability rule set. Hypothesis titles are
// bounded to the 4-50 character window enforced again in post-processing.
const DetectorSystemPrompt = `You are a detector for a shop-ops assistant. Your primary goal is to determine if a user should be prompted to run a simulation.
You MUST return a JSON object with fields: actionable(boolean), hypotheses(string[]), reason(string).

Hard rules:
1. If the last assistant message explicitly asks to run a simulation (e.g., "Would you like to explore this option?"), you MUST set actionable=true.
2. If the message lists concrete strategies (e.g., under 'Merchandising', 'Marketing'), you MUST extract 1-5 concise titles as hypotheses and set actionable=true.
3. Even if strategies are generic, distill 1-2 relevant hypothesis titles.
4. Hypothesis titles MUST be concise (4-50 chars), in a noun-phrase style. Avoid punctuation.

Examples of good hypothesis titles:
- "Expand product range for AOV lift"
- "Bundle offers for accessories"
- "Personalized recommendations for high-intent users"`

// DetectorSchemaHint describes the detector's JSON contract.
const DetectorSchemaHint = `{"actionable":true,"hypotheses":["4-50 char noun phrase"],"reason":"brief rationale"}`

// ConversationTurn is the compact chat transcript shape passed to the
// detector.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// maxTranscriptBytes caps how much conversation context rides along with a
// detection call.
const maxTranscriptBytes = 6000

// BuildDetectorPrompt renders the detection prompt from the conversation
// tail and the last assistant message.
func BuildDetectorPrompt(messages []ConversationTurn, lastAssistant string) string {
	raw, _ := json.Marshal(messages)
	transcript := string(raw)
	if len(transcript) > maxTranscriptBytes {
		transcript = transcript[:maxTranscriptBytes]
	}
	return fmt.Sprintf("Based on the rules, analyze the last assistant message in the context of the conversation and generate the JSON response.\n\nConversation context (for summarization):\n%s\n\nLast assistant message:\n\"\"\"\n%s\n\"\"\"", transcript, lastAssistant)
}
