package detect

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cloneops/adapters/llm"
	"cloneops/ai"
)

func TestCleanHypotheses(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{
			"strips list punctuation",
			[]string{`- "Bundle offers for accessories"`, "• Expand product range:"},
			[]string{"Bundle offers for accessories", "Expand product range"},
		},
		{
			"drops out-of-window titles",
			[]string{"ok", "Personalized recommendations for high-intent users across every single product category and region"},
			[]string{},
		},
		{
			"dedups case-insensitively keeping first",
			[]string{"Time sale on hats", "TIME SALE ON HATS", "Coupon for bags"},
			[]string{"Time sale on hats", "Coupon for bags"},
		},
		{
			"keeps order",
			[]string{"Second lever", "First lever", "Second lever"},
			[]string{"Second lever", "First lever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CleanHypotheses(tt.raw)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("CleanHypotheses(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDetectRequiresBothFlagAndHypotheses(t *testing.T) {
	// Model says actionable but every title is too short to survive.
	mock := &llm.MockClient{Responses: []string{
		`{"actionable":true,"hypotheses":["ok","-"],"reason":"listed strategies"}`,
		`{"actionable":true,"hypotheses":["ab"],"reason":"still nothing"}`,
	}}
	d := NewDetector(mock, "detect-model", nil)

	res, err := d.Detect(context.Background(), nil, "Here are some strategies you could explore today.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if res.Actionable {
		t.Error("verdict actionable with zero surviving hypotheses")
	}
	if len(res.Hypotheses) != 0 {
		t.Errorf("hypotheses = %v, want none", res.Hypotheses)
	}
}

func TestDetectRetriesOnceForLongMessages(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"actionable":true,"hypotheses":[],"reason":"vague"}`,
		`{"actionable":true,"hypotheses":["Bundle offers for accessories"],"reason":"found one"}`,
	}}
	d := NewDetector(mock, "detect-model", nil)

	res, err := d.Detect(context.Background(), nil, "Consider bundling accessories with top sellers to lift average order value.")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got := mock.Calls.Load(); got != 2 {
		t.Fatalf("model called %d times, want 2 (one retry)", got)
	}
	if !res.Actionable || len(res.Hypotheses) != 1 {
		t.Errorf("verdict = %+v, want actionable with one hypothesis", res)
	}
}

func TestDetectNoRetryForShortMessages(t *testing.T) {
	mock := &llm.MockClient{Responses: []string{
		`{"actionable":true,"hypotheses":[],"reason":"vague"}`,
	}}
	d := NewDetector(mock, "detect-model", nil)

	res, err := d.Detect(context.Background(), nil, "Sure thing!")
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if got := mock.Calls.Load(); got != 1 {
		t.Errorf("model called %d times for short message, want 1", got)
	}
	if res.Actionable {
		t.Error("short vague message marked actionable")
	}
}

func TestDetectPropagatesModelErrors(t *testing.T) {
	mock := &llm.MockClient{Err: errors.New("bad gateway")}
	d := NewDetector(mock, "detect-model", nil)

	if _, err := d.Detect(context.Background(), []ai.ConversationTurn{{Role: "user", Content: "hi"}}, "A long enough assistant message here."); err == nil {
		t.Fatal("expected error from failing model")
	}
}
