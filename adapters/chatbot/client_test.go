package chatbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cloneops/domain/action"
	"cloneops/internal/errors"
)

func testConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		PartnerID: "partner-1",
		ChatbotID: "bot-1",
		ShopID:    "shop-1",
		Timeout:   2 * time.Second,
	}
}

func TestFetchConfigTriesAppPathFirst(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"partnerId":        "partner-1",
			"chatbotId":        "bot-1",
			"startExampleText": "Hello|What is on sale?",
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	cfg, err := c.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchConfig failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/app/api/chatbot/v1/partner-1/bot-1" {
		t.Errorf("expected single request to /app path, got %v", paths)
	}
	if len(cfg.StartExamples) != 2 || cfg.StartExamples[1] != "What is on sale?" {
		t.Errorf("unexpected start examples: %v", cfg.StartExamples)
	}
}

func TestFetchConfigFallsBackToLegacyPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/app/api/chatbot/v1/partner-1/bot-1" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		// Legacy path wraps the config under a data key.
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{
				"startExampleText": "One|Two|Three",
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	cfg, err := c.FetchConfig(context.Background())
	if err != nil {
		t.Fatalf("FetchConfig failed: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/api/chatbot/v1/partner-1/bot-1" {
		t.Errorf("expected fallback to legacy path, got %v", paths)
	}
	if cfg.PartnerID != "partner-1" {
		t.Errorf("missing partner id should fall back to configured value, got %q", cfg.PartnerID)
	}
	if len(cfg.StartExamples) != 3 {
		t.Errorf("expected 3 start examples, got %v", cfg.StartExamples)
	}
}

func TestFetchConfigAllAttemptsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	if _, err := c.FetchConfig(context.Background()); err == nil {
		t.Fatal("expected error when every upstream attempt fails")
	} else if errors.GetCode(err) != errors.CodeExternalService {
		t.Errorf("expected external service code, got %s", errors.GetCode(err))
	}
}

func TestFetchConfigUnconfigured(t *testing.T) {
	c := NewClient(Config{}, nil)
	_, err := c.FetchConfig(context.Background())
	if errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestUpdateStartExamplesJoinsAndCaps(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{
			"startExampleText": body["startExampleText"],
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	cfg, err := c.UpdateStartExamples(context.Background(), []string{"  One ", "", "Two", "Three", "Four"})
	if err != nil {
		t.Fatalf("UpdateStartExamples failed: %v", err)
	}
	if body["startExampleText"] != "One|Two|Three" {
		t.Errorf("expected pipe-joined cap of 3, got %q", body["startExampleText"])
	}
	if len(cfg.StartExamples) != 3 || cfg.StartExamples[0] != "One" {
		t.Errorf("unexpected start examples: %v", cfg.StartExamples)
	}
}

func TestUpdateStartExamplesRequiresInput(t *testing.T) {
	c := NewClient(testConfig("http://unused"), nil)
	_, err := c.UpdateStartExamples(context.Background(), []string{"", "   "})
	if errors.GetCode(err) != errors.CodeInvalidInput {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestFetchCustomPromptTriesAppPathFirst(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		json.NewEncoder(w).Encode(map[string]string{"customPrompt": "Answer like a concierge."})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	prompt, err := c.FetchCustomPrompt(context.Background())
	if err != nil {
		t.Fatalf("FetchCustomPrompt failed: %v", err)
	}
	if len(paths) != 1 || paths[0] != "/app/api/custom-prompt/shop-1" {
		t.Errorf("expected single request to /app path, got %v", paths)
	}
	if prompt != "Answer like a concierge." {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestFetchCustomPromptFallsBackToLegacyPath(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		if r.URL.Path == "/app/api/custom-prompt/shop-1" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"customPrompt": "Be brief."},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	prompt, err := c.FetchCustomPrompt(context.Background())
	if err != nil {
		t.Fatalf("FetchCustomPrompt failed: %v", err)
	}
	if len(paths) != 2 || paths[1] != "/api/custom-prompt/shop-1" {
		t.Errorf("expected fallback to legacy path, got %v", paths)
	}
	if prompt != "Be brief." {
		t.Errorf("prompt = %q", prompt)
	}
}

func TestUpdateCustomPrompt(t *testing.T) {
	var body map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("expected PUT, got %s", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		// Acknowledge without echoing the prompt back.
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	stored, err := c.UpdateCustomPrompt(context.Background(), "  Upsell gently.  ")
	if err != nil {
		t.Fatalf("UpdateCustomPrompt failed: %v", err)
	}
	if body["customPrompt"] != "Upsell gently." {
		t.Errorf("sent prompt = %q", body["customPrompt"])
	}
	if stored != "Upsell gently." {
		t.Errorf("stored = %q, want the trimmed prompt echoed back", stored)
	}
}

func TestUpdateCustomPromptUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), nil)
	if _, err := c.UpdateCustomPrompt(context.Background(), "Upsell gently."); err == nil {
		t.Fatal("expected error on upstream 500")
	} else if errors.GetCode(err) != errors.CodeExternalService {
		t.Errorf("expected external service code, got %s", errors.GetCode(err))
	}
}

func TestCustomPromptRequiresShopID(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://unused"}, nil)
	if _, err := c.FetchCustomPrompt(context.Background()); errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Errorf("fetch without shop id: %v", err)
	}
	if _, err := c.UpdateCustomPrompt(context.Background(), "x"); errors.GetCode(err) != errors.CodeConfigInvalid {
		t.Errorf("update without shop id: %v", err)
	}
}

func TestDeployCountsAcceptedActions(t *testing.T) {
	var updated bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			updated = true
		}
		json.NewEncoder(w).Encode(map[string]string{"startExampleText": "Try our sale"})
	}))
	defer srv.Close()

	actions := []action.Item{
		{Type: action.TypeUI, Scenario: action.ScenarioFeatureProduct, Payload: "best seller", Content: "Feature the best seller on the landing page"},
		{Type: action.TypeStartExample, Scenario: action.ScenarioChatbotStartExample, Payload: "Try our sale", Content: "Add a sale starter question"},
		{Type: "bogus", Scenario: action.ScenarioTimeSale, Content: "should be skipped"},
		{Type: action.TypeUI, Scenario: action.ScenarioCategoryDiscount, Content: ""},
	}

	c := NewClient(testConfig(srv.URL), nil)
	deployed, err := c.Deploy(context.Background(), "Free shipping", actions)
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if deployed != 2 {
		t.Errorf("expected 2 accepted actions, got %d", deployed)
	}
	if !updated {
		t.Error("expected start-example action to update chatbot config")
	}
}

func TestDeployWithoutChatbotConfigStillCounts(t *testing.T) {
	c := NewClient(Config{}, nil)
	deployed, err := c.Deploy(context.Background(), "Bundles", []action.Item{
		{Type: action.TypeUI, Scenario: action.ScenarioTimeSale, Content: "Run a flash sale"},
	})
	if err != nil {
		t.Fatalf("Deploy failed: %v", err)
	}
	if deployed != 1 {
		t.Errorf("expected 1 accepted action, got %d", deployed)
	}
}
