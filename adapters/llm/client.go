package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloneops/ports"
)

// Config holds LLM adapter configuration
type Config struct {
	APIKey      string        // OpenAI API key
	BaseURL     string        // Optional override (default: https://api.openai.com/v1)
	Model       string        // Default model when a request does not name one
	Temperature float64       // 0.0-1.0, lower = more deterministic
	MaxTokens   int           // Max tokens in response
	Timeout     time.Duration // Per-call request timeout
}

// OpenAIClient implements ports.TextGenerator and ports.ObjectGenerator over
// the Chat Completions API (kept minimal: one system + one user message).
type OpenAIClient struct {
	config Config
	http   *http.Client
}

// NewOpenAIClient creates the client after checking required config.
func NewOpenAIClient(config Config) (*OpenAIClient, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &OpenAIClient{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// GenerateText issues one completion, retrying up to req.MaxRetries extra
// attempts. Each attempt carries its own timeout via the shared http client.
func (c *OpenAIClient) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	attempts := req.MaxRetries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		text, err := c.complete(ctx, req.System, req.Prompt, c.model(req.Model), c.temperature(req.Temperature), c.maxTokens(req.MaxTokens), false)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return "", lastErr
}

// GenerateObject issues one JSON-mode completion and unmarshals the result
// into out. Coercion failures come back as *ports.SchemaValidationError so
// callers can take their deterministic fallback path.
func (c *OpenAIClient) GenerateObject(ctx context.Context, req ports.ObjectRequest, out any) error {
	system := req.System
	if req.SchemaHint != "" {
		system = system + "\n\nRespond with a single JSON object of this exact shape:\n" + req.SchemaHint
	}
	// JSON mode requires the word JSON somewhere in the instructions.
	if !strings.Contains(strings.ToLower(system), "json") {
		system += "\n\nRespond with valid JSON output."
	}

	raw, err := c.complete(ctx, system, req.Prompt, c.model(req.Model), c.temperature(req.Temperature), c.config.MaxTokens, true)
	if err != nil {
		return err
	}

	cleaned := stripCodeFence(raw)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return &ports.SchemaValidationError{Raw: raw, Cause: err}
	}
	return nil
}

func (c *OpenAIClient) complete(ctx context.Context, system, prompt, model string, temperature float64, maxTokens int, jsonMode bool) (string, error) {
	if strings.TrimSpace(model) == "" {
		return "", fmt.Errorf("missing model")
	}
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
	if jsonMode {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	respRaw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d: %s", resp.StatusCode, string(respRaw))
	}

	type choice struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}
	type respBody struct {
		Choices []choice `json:"choices"`
	}
	var decoded respBody
	if err := json.Unmarshal(respRaw, &decoded); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai response missing choices")
	}
	return decoded.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) model(override string) string {
	if strings.TrimSpace(override) != "" {
		return override
	}
	return c.config.Model
}

func (c *OpenAIClient) temperature(override float64) float64 {
	if override > 0 {
		return override
	}
	return c.config.Temperature
}

func (c *OpenAIClient) maxTokens(override int) int {
	if override > 0 {
		return override
	}
	return c.config.MaxTokens
}

// stripCodeFence removes a surrounding markdown fence that some models wrap
// around JSON output despite JSON mode.
func stripCodeFence(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```json")
	t = strings.TrimPrefix(t, "```")
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}
