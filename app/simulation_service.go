package app

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/stat"

	"cloneops/domain/persona"
	"cloneops/internal"
	"cloneops/ports"
)

// engagedScoreFloor splits the panel: personas at or above it count as
// engaged in the synthesized exchange.
const engagedScoreFloor = 15

// SimulationService synthesizes one scripted exchange per persona and
// persists the panel to the results file. It also answers distribution
// queries over whatever panel was last saved.
type SimulationService struct {
	corpus  ports.CorpusProvider
	results ports.ResultsStore
	logger  *internal.Logger
}

func NewSimulationService(corpus ports.CorpusProvider, results ports.ResultsStore, logger *internal.Logger) *SimulationService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &SimulationService{corpus: corpus, results: results, logger: logger}
}

// RunPanel generates the scripted exchange for every persona and overwrites
// the stored results. Returns the saved results and the path written.
func (s *SimulationService) RunPanel(ctx context.Context, shopName string) ([]ports.ConversationResult, string, error) {
	corpus, err := s.corpus.LoadPersonas(ctx)
	if err != nil {
		return nil, "", err
	}

	results := make([]ports.ConversationResult, len(corpus))
	for i, rec := range corpus {
		results[i] = synthesize(rec, shopName)
	}

	path, err := s.results.SaveResults(ctx, results)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("panel simulation saved: %d results to %s", len(results), path)
	return results, path, nil
}

// Distribution is the stored panel's engagement-score histogram plus moments.
type Distribution struct {
	Histogram []int   `json:"histogram"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"stddev"`
	Engaged   int     `json:"engaged"`
	Total     int     `json:"total"`
}

// Distribution bins the stored results into the 30 engagement buckets and
// computes mean/stddev of the scores.
func (s *SimulationService) Distribution(ctx context.Context) (*Distribution, error) {
	results, err := s.results.LoadResults(ctx)
	if err != nil {
		return nil, err
	}

	d := &Distribution{
		Histogram: make([]int, persona.BucketCount),
		Total:     len(results),
	}
	scores := make([]float64, 0, len(results))
	for _, r := range results {
		if r.Engagement == nil {
			continue
		}
		score := persona.ClampScore(r.Engagement.Score)
		d.Histogram[persona.BucketIndex(score)]++
		scores = append(scores, float64(score))
		if r.Engagement.Engaged {
			d.Engaged++
		}
	}
	if len(scores) > 0 {
		d.Mean = stat.Mean(scores, nil)
		d.StdDev = stat.StdDev(scores, nil)
	}
	return d, nil
}

// synthesize builds the scripted user/assistant exchange for one persona.
// The script is deterministic in the persona's score so repeated panels are
// reproducible.
func synthesize(rec persona.Record, shopName string) ports.ConversationResult {
	score := persona.ClampScore(rec.EngagementScore)
	eng := DeriveEngagement(score)

	opener := fmt.Sprintf("Hi, I'm browsing %s. %s", displayShop(shopName), openerFor(score))
	reply := replyFor(score)
	closer := closerFor(score)

	turnDur := 1.5 + float64(score)*0.2
	messages := []ports.ConversationTurn{
		{Role: "user", Content: opener, TurnDuration: turnDur},
		{Role: "assistant", Content: reply, TurnDuration: turnDur * 0.8},
		{Role: "user", Content: closer, TurnDuration: turnDur * 0.6},
	}
	total := 0.0
	for _, m := range messages {
		total += m.TurnDuration
	}

	return ports.ConversationResult{
		CloneID:       rec.Index,
		UserID:        rec.UserID,
		Persona:       rec.Summary,
		Messages:      messages,
		TotalDuration: total,
		Done:          true,
		Engagement:    &eng,
	}
}

// DeriveEngagement maps an engagement score to the stored verdict: engaged
// at score 15 and up, confidence climbing from 0.4 and capped at 1.
func DeriveEngagement(score int) ports.Engagement {
	score = persona.ClampScore(score)
	confidence := 0.4 + float64(score)/40.0
	if confidence > 1 {
		confidence = 1
	}
	engaged := score >= engagedScoreFloor
	reason := "low engagement score, browsing without intent"
	if engaged {
		reason = "high engagement score, active purchase intent"
	}
	return ports.Engagement{
		Engaged:    engaged,
		Confidence: confidence,
		Reason:     reason,
		Score:      score,
	}
}

func displayShop(name string) string {
	if strings.TrimSpace(name) == "" {
		return "the shop"
	}
	return name
}

func openerFor(score int) string {
	switch {
	case score >= 21:
		return "I'm ready to buy today if the price is right. What do you recommend?"
	case score >= engagedScoreFloor:
		return "I've been comparing a few options. Anything on sale?"
	case score >= 8:
		return "Just looking around for now. What's popular?"
	default:
		return "Do you ship internationally?"
	}
}

func replyFor(score int) string {
	switch {
	case score >= 21:
		return "Absolutely. Our best seller is featured on the home screen, and there's a 30-minute time sale running on the top category right now."
	case score >= engagedScoreFloor:
		return "Yes, several items in your size range are discounted this week. Would you like a 15% coupon for the category you viewed?"
	case score >= 8:
		return "Our home screen features this month's most popular picks. I can point you to the trending category if you'd like."
	default:
		return "We ship to most regions. Let me know if you want details for your country."
	}
}

func closerFor(score int) string {
	switch {
	case score >= 21:
		return "Great, adding it to my cart now."
	case score >= engagedScoreFloor:
		return "A coupon would help, I'll take a look."
	case score >= 8:
		return "Thanks, maybe later."
	default:
		return "Okay, thanks."
	}
}
