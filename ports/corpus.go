package ports

import (
	"context"

	"cloneops/domain/persona"
)

// CorpusProvider gives read-only access to the persona corpus. The backing
// store is a static JSON array file; loads are idempotent and safe to repeat
// per request.
type CorpusProvider interface {
	LoadPersonas(ctx context.Context) ([]persona.Record, error)
	LoadPersonaByIndex(ctx context.Context, idx int) (*persona.Record, error)
}

// ConversationTurn is one side of a scripted panel exchange.
type ConversationTurn struct {
	Role         string  `json:"role"`
	Content      string  `json:"content"`
	TurnDuration float64 `json:"turn_duration,omitempty"`
}

// Engagement is the score-derived verdict attached to a simulated exchange.
type Engagement struct {
	Engaged    bool    `json:"engaged"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Score      int     `json:"score"`
}

// ConversationResult is one persona's synthesized exchange, persisted to the
// overwritten results file.
type ConversationResult struct {
	CloneID       int                `json:"clone_id"`
	UserID        string             `json:"user_id"`
	Persona       string             `json:"persona"`
	Messages      []ConversationTurn `json:"messages"`
	TotalDuration float64            `json:"total_duration"`
	Done          bool               `json:"done"`
	Engagement    *Engagement        `json:"engagement"`
}

// ResultsStore persists and reads back panel simulation results. Save
// overwrites; there is exactly one results file per deployment.
type ResultsStore interface {
	SaveResults(ctx context.Context, results []ConversationResult) (string, error)
	LoadResults(ctx context.Context) ([]ConversationResult, error)
}
