package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"cloneops/ports"
)

func completionServer(t *testing.T, handler func(req map[string]any) (string, int)) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request body: %v", err)
		}
		content, status := handler(req)
		if status != http.StatusOK {
			w.WriteHeader(status)
			fmt.Fprint(w, `{"error":{"message":"boom"}}`)
			return
		}
		resp := map[string]any{
			"choices": []any{
				map[string]any{"message": map[string]any{"content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newTestClient(t *testing.T, baseURL string) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(Config{APIKey: "test-key", BaseURL: baseURL, Model: "default-model"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := NewOpenAIClient(Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestGenerateTextUsesRequestModel(t *testing.T) {
	var gotModel string
	srv := completionServer(t, func(req map[string]any) (string, int) {
		gotModel, _ = req["model"].(string)
		return "positive - sure", http.StatusOK
	})
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	text, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "p", Model: "override-model"})
	if err != nil {
		t.Fatalf("GenerateText failed: %v", err)
	}
	if text != "positive - sure" {
		t.Errorf("text = %q", text)
	}
	if gotModel != "override-model" {
		t.Errorf("model = %q, want override-model", gotModel)
	}
}

func TestGenerateTextRetries(t *testing.T) {
	var calls atomic.Int64
	srv := completionServer(t, func(req map[string]any) (string, int) {
		if calls.Add(1) == 1 {
			return "", http.StatusBadGateway
		}
		return "recovered", http.StatusOK
	})
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	text, err := c.GenerateText(context.Background(), ports.TextRequest{Prompt: "p", MaxRetries: 1})
	if err != nil {
		t.Fatalf("GenerateText failed after retry: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q", text)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestGenerateObjectJSONMode(t *testing.T) {
	srv := completionServer(t, func(req map[string]any) (string, int) {
		rf, _ := req["response_format"].(map[string]any)
		if rf == nil || rf["type"] != "json_object" {
			return "", http.StatusBadRequest
		}
		return "```json\n{\"actionable\": true, \"hypotheses\": [\"Bundle offers\"]}\n```", http.StatusOK
	})
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	var out struct {
		Actionable bool     `json:"actionable"`
		Hypotheses []string `json:"hypotheses"`
	}
	err := c.GenerateObject(context.Background(), ports.ObjectRequest{System: "detect", Prompt: "p", SchemaHint: `{"actionable":true}`}, &out)
	if err != nil {
		t.Fatalf("GenerateObject failed: %v", err)
	}
	if !out.Actionable || len(out.Hypotheses) != 1 {
		t.Errorf("decoded = %+v", out)
	}
}

func TestGenerateObjectSchemaValidationError(t *testing.T) {
	srv := completionServer(t, func(req map[string]any) (string, int) {
		return "this is not json at all", http.StatusOK
	})
	defer srv.Close()
	c := newTestClient(t, srv.URL)

	var out map[string]any
	err := c.GenerateObject(context.Background(), ports.ObjectRequest{System: "s needs json", Prompt: "p"}, &out)
	var sve *ports.SchemaValidationError
	if !errors.As(err, &sve) {
		t.Fatalf("error type = %T, want *ports.SchemaValidationError", err)
	}
	if sve.Raw == "" {
		t.Error("validation error lost the raw output")
	}
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, tt := range tests {
		if got := stripCodeFence(tt.in); got != tt.want {
			t.Errorf("stripCodeFence(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
