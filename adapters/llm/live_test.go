package llm

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"cloneops/ports"
)

// liveClient returns a real client, or skips when no API key is available.
func liveClient(t *testing.T) *OpenAIClient {
	t.Helper()
	_ = godotenv.Load("../../.env")
	key := os.Getenv("OPENAI_API_KEY")
	if key == "" {
		t.Skip("OPENAI_API_KEY not set; skipping live API test")
	}
	client, err := NewOpenAIClient(Config{APIKey: key, Timeout: 30 * time.Second})
	if err != nil {
		t.Fatalf("failed to build client: %v", err)
	}
	return client
}

func TestLiveGenerateText(t *testing.T) {
	client := liveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply, err := client.GenerateText(ctx, ports.TextRequest{
		System:    "Reply with exactly one word.",
		Prompt:    "Say hello.",
		Model:     "gpt-4.1-mini",
		MaxTokens: 16,
	})
	if err != nil {
		t.Fatalf("live text call failed: %v", err)
	}
	if strings.TrimSpace(reply) == "" {
		t.Error("expected a non-empty reply")
	}
}

func TestLiveGenerateObject(t *testing.T) {
	client := liveClient(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var out struct {
		Answer string `json:"answer"`
	}
	err := client.GenerateObject(ctx, ports.ObjectRequest{
		System:     "You answer questions as JSON.",
		Prompt:     "What color is the sky on a clear day?",
		Model:      "gpt-4.1-mini",
		SchemaHint: `{"answer": "<one word>"}`,
	}, &out)
	if err != nil {
		t.Fatalf("live object call failed: %v", err)
	}
	if out.Answer == "" {
		t.Error("expected a non-empty answer field")
	}
}
