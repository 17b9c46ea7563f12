package ports

import (
	"context"

	"cloneops/domain/action"
)

// DeploySink receives accepted next-actions for a board. Fire-and-forget
// from the core's perspective; the count of accepted actions comes back for
// display only.
type DeploySink interface {
	Deploy(ctx context.Context, boardName string, actions []action.Item) (int, error)
}

// ChatbotConfig is the subset of the upstream chatbot configuration the
// dashboard reads and writes.
type ChatbotConfig struct {
	PartnerID        string   `json:"partner_id"`
	ChatbotID        string   `json:"chatbot_id"`
	StartExampleText string   `json:"start_example_text"`
	StartExamples    []string `json:"start_examples,omitempty"`
}

// ChatbotConfigurator proxies the external chatbot configuration API. The
// custom prompt is the shop-scoped system prompt the chatbot answers with.
type ChatbotConfigurator interface {
	FetchConfig(ctx context.Context) (*ChatbotConfig, error)
	UpdateStartExamples(ctx context.Context, examples []string) (*ChatbotConfig, error)
	FetchCustomPrompt(ctx context.Context) (string, error)
	UpdateCustomPrompt(ctx context.Context, prompt string) (string, error)
}
