package ports

import (
	"context"
	"fmt"
)

// TextRequest carries one prompt to a text-generation model. Model and
// Temperature override the adapter defaults when set; MaxRetries counts
// extra attempts beyond the first (0 = single shot).
type TextRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	MaxTokens   int
	MaxRetries  int
}

// TextGenerator is the opaque text capability used by classification,
// insight generation and the chat assistant.
type TextGenerator interface {
	GenerateText(ctx context.Context, req TextRequest) (string, error)
}

// ObjectRequest carries one structured-output prompt. SchemaHint is a
// human-readable description of the required JSON shape embedded into the
// system message; the wire contract is enforced by unmarshaling into the
// caller's type.
type ObjectRequest struct {
	System      string
	Prompt      string
	Model       string
	Temperature float64
	SchemaHint  string
}

// ObjectGenerator produces a typed object from an LLM call. Implementations
// must return a *SchemaValidationError when the model output cannot be
// coerced into out; callers catch it and fall back.
type ObjectGenerator interface {
	GenerateObject(ctx context.Context, req ObjectRequest, out any) error
}

// SchemaValidationError signals that model output did not match the
// requested shape. Never surfaced to end users directly.
type SchemaValidationError struct {
	Raw   string
	Cause error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("model output failed schema validation: %v", e.Cause)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}
