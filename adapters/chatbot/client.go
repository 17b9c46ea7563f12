package chatbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"cloneops/domain/action"
	"cloneops/internal"
	"cloneops/internal/errors"
	"cloneops/ports"
)

// Config holds the upstream chatbot configuration API settings.
type Config struct {
	BaseURL   string
	PartnerID string
	ChatbotID string
	ShopID    string
	Timeout   time.Duration
}

// Client proxies the external chatbot configuration API and implements the
// deploy sink. Upstream responses come in several historical shapes, so each
// call tries an explicit ordered list of (URL, shape validator) attempts
// until one succeeds.
type Client struct {
	config Config
	http   *http.Client
	logger *internal.Logger
}

// NewClient creates the proxy client.
func NewClient(config Config, logger *internal.Logger) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
		logger: logger,
	}
}

// attempt pairs one upstream URL with the validator for its expected
// response shape.
type attempt struct {
	url      string
	validate func(raw []byte) (*ports.ChatbotConfig, error)
}

// FetchConfig reads the chatbot configuration, trying each known upstream
// path shape in order.
func (c *Client) FetchConfig(ctx context.Context) (*ports.ChatbotConfig, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	attempts := []attempt{
		{c.endpoint("/app/api/chatbot/v1/%s/%s"), c.decodeConfig},
		{c.endpoint("/api/chatbot/v1/%s/%s"), c.decodeConfig},
	}
	var lastErr error
	for _, a := range attempts {
		cfg, err := c.getJSON(ctx, a)
		if err == nil {
			return cfg, nil
		}
		lastErr = err
		c.logger.Debug("chatbot config attempt failed for %s: %v", a.url, err)
	}
	return nil, errors.ExternalServiceError("chatbot", lastErr)
}

// UpdateStartExamples pushes up to three cleaned starter examples upstream,
// joined by "|" as the legacy API expects.
func (c *Client) UpdateStartExamples(ctx context.Context, examples []string) (*ports.ChatbotConfig, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}
	cleaned := make([]string, 0, 3)
	for _, e := range examples {
		t := strings.TrimSpace(e)
		if t == "" {
			continue
		}
		cleaned = append(cleaned, t)
		if len(cleaned) == 3 {
			break
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.InvalidInput("startExampleText is required")
	}

	payload, err := json.Marshal(map[string]string{
		"startExampleText": strings.Join(cleaned, "|"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode start examples")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.endpoint("/api/chatbot/v1/%s/%s"), bytes.NewReader(payload))
	if err != nil {
		return nil, errors.Wrap(err, "failed to build chatbot update request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError("chatbot", err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ExternalServiceError("chatbot", fmt.Errorf("http %d: %s", resp.StatusCode, string(raw)))
	}
	cfg, err := c.decodeConfig(raw)
	if err != nil {
		// Upstream acknowledged the write; report what we sent.
		return &ports.ChatbotConfig{
			PartnerID:        c.config.PartnerID,
			ChatbotID:        c.config.ChatbotID,
			StartExampleText: strings.Join(cleaned, "|"),
			StartExamples:    cleaned,
		}, nil
	}
	return cfg, nil
}

// FetchCustomPrompt reads the shop's custom chatbot prompt, trying each
// known upstream path shape in order.
func (c *Client) FetchCustomPrompt(ctx context.Context) (string, error) {
	if err := c.checkShopConfigured(); err != nil {
		return "", err
	}
	urls := []string{
		c.promptEndpoint("/app/api/custom-prompt/%s"),
		c.promptEndpoint("/api/custom-prompt/%s"),
	}
	var lastErr error
	for _, u := range urls {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return "", errors.Wrap(err, "failed to build custom prompt request")
		}
		req.Header.Set("Content-Type", "application/json")
		raw, err := c.doPrompt(req)
		if err == nil {
			prompt, decErr := decodePrompt(raw)
			if decErr == nil {
				return prompt, nil
			}
			err = decErr
		}
		lastErr = err
		c.logger.Debug("custom prompt attempt failed for %s: %v", u, err)
	}
	return "", errors.ExternalServiceError("chatbot", lastErr)
}

// UpdateCustomPrompt replaces the shop's custom chatbot prompt upstream and
// returns the stored value.
func (c *Client) UpdateCustomPrompt(ctx context.Context, prompt string) (string, error) {
	if err := c.checkShopConfigured(); err != nil {
		return "", err
	}
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return "", errors.InvalidInput("custom_prompt is required")
	}

	payload, err := json.Marshal(map[string]string{"customPrompt": trimmed})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode custom prompt")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.promptEndpoint("/api/custom-prompt/%s"), bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "failed to build custom prompt update")
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.doPrompt(req)
	if err != nil {
		return "", err
	}
	stored, err := decodePrompt(raw)
	if err != nil {
		// Upstream acknowledged the write without echoing the prompt.
		return trimmed, nil
	}
	return stored, nil
}

// doPrompt sends one custom-prompt request and returns the 2xx body.
func (c *Client) doPrompt(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.ExternalServiceError("chatbot", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.ExternalServiceError("chatbot", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.ExternalServiceError("chatbot", fmt.Errorf("http %d: %s", resp.StatusCode, string(raw)))
	}
	return raw, nil
}

// decodePrompt probes the known upstream response shapes: the prompt object
// directly, or wrapped under a "data" key.
func decodePrompt(raw []byte) (string, error) {
	type wire struct {
		CustomPrompt string `json:"customPrompt"`
	}
	var direct wire
	if err := json.Unmarshal(raw, &direct); err == nil && direct.CustomPrompt != "" {
		return direct.CustomPrompt, nil
	}
	var wrapped struct {
		Data wire `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data.CustomPrompt != "" {
		return wrapped.Data.CustomPrompt, nil
	}
	return "", fmt.Errorf("unrecognized custom prompt shape")
}

func (c *Client) promptEndpoint(pattern string) string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	return base + fmt.Sprintf(pattern, url.PathEscape(c.config.ShopID))
}

func (c *Client) checkShopConfigured() error {
	if c.config.BaseURL == "" {
		return errors.ConfigInvalid("CHATBOT_BASE_URL is not configured")
	}
	if c.config.ShopID == "" {
		return errors.ConfigInvalid("chatbot shop id is not configured")
	}
	return nil
}

// Deploy forwards accepted next-actions upstream. Start-example actions feed
// the chatbot configuration; everything else is acknowledged fire-and-forget.
func (c *Client) Deploy(ctx context.Context, boardName string, actions []action.Item) (int, error) {
	deployID := uuid.NewString()
	deployed := 0
	var startExamples []string
	for _, a := range actions {
		if err := a.Validate(); err != nil {
			c.logger.Warn("deploy %s: skipping invalid action: %v", deployID, err)
			continue
		}
		if a.Type == action.TypeStartExample {
			startExamples = append(startExamples, a.Payload)
		}
		deployed++
	}
	if len(startExamples) > 0 && c.checkConfigured() == nil {
		if _, err := c.UpdateStartExamples(ctx, startExamples); err != nil {
			c.logger.Warn("deploy %s: start example update failed: %v", deployID, err)
		}
	}
	c.logger.Info("deploy %s: board=%q accepted %d/%d actions", deployID, boardName, deployed, len(actions))
	return deployed, nil
}

func (c *Client) getJSON(ctx context.Context, a attempt) (*ports.ChatbotConfig, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(raw))
	}
	return a.validate(raw)
}

// decodeConfig probes the known upstream response shapes: either the config
// object directly, or wrapped under a "data" key.
func (c *Client) decodeConfig(raw []byte) (*ports.ChatbotConfig, error) {
	type wire struct {
		PartnerID        string `json:"partnerId"`
		ChatbotID        string `json:"chatbotId"`
		StartExampleText string `json:"startExampleText"`
	}
	var direct wire
	if err := json.Unmarshal(raw, &direct); err == nil && direct.StartExampleText != "" {
		return c.toConfig(direct.PartnerID, direct.ChatbotID, direct.StartExampleText), nil
	}
	var wrapped struct {
		Data wire `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.Data.StartExampleText != "" {
		return c.toConfig(wrapped.Data.PartnerID, wrapped.Data.ChatbotID, wrapped.Data.StartExampleText), nil
	}
	return nil, fmt.Errorf("unrecognized chatbot config shape")
}

func (c *Client) toConfig(partnerID, chatbotID, startExampleText string) *ports.ChatbotConfig {
	if partnerID == "" {
		partnerID = c.config.PartnerID
	}
	if chatbotID == "" {
		chatbotID = c.config.ChatbotID
	}
	var examples []string
	for _, e := range strings.Split(startExampleText, "|") {
		if t := strings.TrimSpace(e); t != "" {
			examples = append(examples, t)
		}
	}
	return &ports.ChatbotConfig{
		PartnerID:        partnerID,
		ChatbotID:        chatbotID,
		StartExampleText: startExampleText,
		StartExamples:    examples,
	}
}

func (c *Client) endpoint(pattern string) string {
	base := strings.TrimRight(c.config.BaseURL, "/")
	return base + fmt.Sprintf(pattern, url.PathEscape(c.config.PartnerID), url.PathEscape(c.config.ChatbotID))
}

func (c *Client) checkConfigured() error {
	if c.config.BaseURL == "" {
		return errors.ConfigInvalid("CHATBOT_BASE_URL is not configured")
	}
	if c.config.PartnerID == "" || c.config.ChatbotID == "" {
		return errors.ConfigInvalid("chatbot partner/chatbot id is not configured")
	}
	return nil
}
