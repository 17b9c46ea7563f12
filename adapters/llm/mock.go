package llm

import (
	"context"
	"encoding/json"
	"sync/atomic"

	"cloneops/ports"
)

// MockClient is an in-memory LLM for tests. Responses are served in order,
// then the last one repeats; Err short-circuits every call. Calls counts
// upstream invocations so caching tests can assert zero extra calls.
type MockClient struct {
	Responses []string
	Err       error
	Calls     atomic.Int64

	// TextFunc overrides the canned responses when set.
	TextFunc func(req ports.TextRequest) (string, error)
}

func (m *MockClient) GenerateText(ctx context.Context, req ports.TextRequest) (string, error) {
	n := m.Calls.Add(1)
	if m.TextFunc != nil {
		return m.TextFunc(req)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "unknown - no canned response", nil
	}
	i := int(n) - 1
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	return m.Responses[i], nil
}

func (m *MockClient) GenerateObject(ctx context.Context, req ports.ObjectRequest, out any) error {
	n := m.Calls.Add(1)
	if m.Err != nil {
		return m.Err
	}
	if len(m.Responses) == 0 {
		return &ports.SchemaValidationError{Raw: "", Cause: context.Canceled}
	}
	i := int(n) - 1
	if i >= len(m.Responses) {
		i = len(m.Responses) - 1
	}
	if err := json.Unmarshal([]byte(m.Responses[i]), out); err != nil {
		return &ports.SchemaValidationError{Raw: m.Responses[i], Cause: err}
	}
	return nil
}
