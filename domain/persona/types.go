package persona

// Engagement score bounds. Scores outside this window are clamped before any
// bucketing or display decision is made.
const (
	MinScore    = 1
	MaxScore    = 30
	BucketCount = MaxScore - MinScore + 1
)

// Record is a synthetic customer profile ("digital clone") used as one unit
// of simulated opinion. Records are immutable once loaded; Index is the array
// position in the corpus file and is the canonical indexing scheme for
// bubbles, outcomes and buckets.
type Record struct {
	Index           int    `json:"idx"`
	UserID          string `json:"user_id"`
	Summary         string `json:"summary,omitempty"`
	Prompt          string `json:"prompt"`
	EngagementScore int    `json:"engagement_score"`
}

// ClampScore forces a raw engagement score into [MinScore, MaxScore].
func ClampScore(score int) int {
	if score < MinScore {
		return MinScore
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// BucketIndex returns the 0-based bucket a score falls into after clamping.
func BucketIndex(score int) int {
	return ClampScore(score) - MinScore
}

// GroupByScore partitions persona indices into BucketCount buckets keyed by
// engagement score. The grouping depends only on the corpus, never on any
// evaluation outcome, and every index lands in exactly one bucket.
func GroupByScore(corpus []Record) [][]int {
	groups := make([][]int, BucketCount)
	for _, rec := range corpus {
		b := BucketIndex(rec.EngagementScore)
		groups[b] = append(groups[b], rec.Index)
	}
	return groups
}
