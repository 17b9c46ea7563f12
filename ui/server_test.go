package ui

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"cloneops/adapters/llm"
	"cloneops/domain/persona"
	"cloneops/internal/boards"
	"cloneops/internal/bus"
	"cloneops/internal/config"
	"cloneops/internal/detect"
	apperrors "cloneops/internal/errors"
	"cloneops/internal/eval"
	"cloneops/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubCorpus struct {
	personas []persona.Record
	err      error
}

func (s *stubCorpus) LoadPersonas(ctx context.Context) ([]persona.Record, error) {
	return s.personas, s.err
}

func (s *stubCorpus) LoadPersonaByIndex(ctx context.Context, idx int) (*persona.Record, error) {
	if idx < 0 {
		return nil, apperrors.InvalidInput("index must be non-negative")
	}
	if idx >= len(s.personas) {
		return nil, apperrors.NotFound(fmt.Sprintf("persona %d", idx))
	}
	rec := s.personas[idx]
	return &rec, nil
}

func testPersonas(n int) []persona.Record {
	out := make([]persona.Record, n)
	for i := range out {
		out[i] = persona.Record{
			Index:           i,
			UserID:          fmt.Sprintf("user_%05d", i+1),
			Summary:         fmt.Sprintf("shopper %d", i),
			Prompt:          fmt.Sprintf("persona %d likes discounts", i),
			EngagementScore: (i % persona.MaxScore) + 1,
		}
	}
	return out
}

func newTestServer(t *testing.T, corpus ports.CorpusProvider, mock *llm.MockClient) *Server {
	t.Helper()
	eventBus := bus.New()
	t.Cleanup(eventBus.Close)
	pool := eval.NewClassifierPool(mock, "test-model", 4, nil)
	return NewServer(Deps{
		Config:      &config.Config{AI: config.AIConfig{ChatModel: "test-chat"}},
		Coordinator: eval.NewCoordinator(pool, corpus, eventBus, nil),
		Aggregator:  boards.NewAggregator(nil),
		Detector:    detect.NewDetector(mock, "test-detect", nil),
		ChatLLM:     mock,
		Corpus:      corpus,
		Bus:         eventBus,
	})
}

func postJSON(t *testing.T, s *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestEvalSentimentStreamsNDJSON(t *testing.T) {
	corpus := &stubCorpus{personas: testPersonas(4)}
	mock := &llm.MockClient{Responses: []string{"positive - loves the offer"}}
	s := newTestServer(t, corpus, mock)

	w := postJSON(t, s, "/api/eval-sentiment", map[string]any{
		"hypothesis": "Free shipping: does it convert?",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Errorf("content type = %q", ct)
	}

	var meta, chunks, done int
	sc := bufio.NewScanner(w.Body)
	for sc.Scan() {
		var rec map[string]any
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("bad ndjson line %q: %v", sc.Text(), err)
		}
		switch rec["type"] {
		case "meta":
			meta++
			if rec["total"].(float64) != 4 {
				t.Errorf("meta total = %v, want 4", rec["total"])
			}
		case "done":
			done++
			if rec["count"].(float64) != 4 {
				t.Errorf("done count = %v, want 4", rec["count"])
			}
		case "error":
			t.Fatalf("unexpected error record: %v", rec)
		default:
			chunks++
			if rec["label"] != "positive" {
				t.Errorf("chunk label = %v", rec["label"])
			}
		}
	}
	if meta != 1 || chunks != 4 || done != 1 {
		t.Errorf("records: meta=%d chunks=%d done=%d", meta, chunks, done)
	}
}

func TestEvalSentimentNonStreaming(t *testing.T) {
	corpus := &stubCorpus{personas: testPersonas(3)}
	mock := &llm.MockClient{Responses: []string{"negative - too pushy"}}
	s := newTestServer(t, corpus, mock)

	stream := false
	w := postJSON(t, s, "/api/eval-sentiment", map[string]any{
		"hypothesis": "Pop-up discount banner",
		"stream":     &stream,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp struct {
		OK      bool `json:"ok"`
		Count   int  `json:"count"`
		Results []struct {
			Label string `json:"label"`
		} `json:"results"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Count != 3 {
		t.Errorf("ok=%v count=%d", resp.OK, resp.Count)
	}
	for _, r := range resp.Results {
		if r.Label != "negative" {
			t.Errorf("label = %q, want negative", r.Label)
		}
	}
}

func TestEvalSentimentRequiresHypothesis(t *testing.T) {
	s := newTestServer(t, &stubCorpus{}, &llm.MockClient{})
	w := postJSON(t, s, "/api/eval-sentiment", map[string]any{"hypothesis": "  "})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok":false`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestPromptsErrorMapping(t *testing.T) {
	s := newTestServer(t, &stubCorpus{personas: testPersonas(2)}, &llm.MockClient{})

	cases := []struct {
		query string
		want  int
	}{
		{"idx=abc", http.StatusBadRequest},
		{"idx=-1", http.StatusBadRequest},
		{"idx=99", http.StatusNotFound},
		{"idx=1", http.StatusOK},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/prompts?"+tc.query, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Errorf("GET /api/prompts?%s = %d, want %d", tc.query, w.Code, tc.want)
		}
	}
}

func TestDetectActionableThrottlesRepeats(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"actionable": true, "hypotheses": ["Offer free shipping over $50"], "reason": "clear lever"}`,
	}}
	s := newTestServer(t, &stubCorpus{}, mock)

	body := map[string]any{
		"messages": []map[string]string{
			{"role": "user", "content": "how do I boost sales?"},
			{"role": "assistant", "content": "You could offer free shipping over $50 to lift conversion."},
		},
	}

	w := postJSON(t, s, "/api/detect-actionable", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var first struct {
		Actionable bool     `json:"actionable"`
		Hypotheses []string `json:"hypotheses"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &first); err != nil {
		t.Fatal(err)
	}
	if !first.Actionable || len(first.Hypotheses) != 1 {
		t.Errorf("first verdict: %+v", first)
	}

	w = postJSON(t, s, "/api/detect-actionable", body)
	var second struct {
		Actionable bool `json:"actionable"`
		Throttled  bool `json:"throttled"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &second); err != nil {
		t.Fatal(err)
	}
	if second.Actionable || !second.Throttled {
		t.Errorf("repeat should be throttled: %+v", second)
	}
	if mock.Calls.Load() != 1 {
		t.Errorf("model calls = %d, want 1", mock.Calls.Load())
	}
}

func TestChatRequiresMessages(t *testing.T) {
	s := newTestServer(t, &stubCorpus{}, &llm.MockClient{})
	w := postJSON(t, s, "/api/chat", map[string]any{"messages": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRunGetUnknownID(t *testing.T) {
	s := newTestServer(t, &stubCorpus{}, &llm.MockClient{})
	req := httptest.NewRequest(http.MethodGet, "/api/runs/nope", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
