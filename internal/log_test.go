package internal

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	cases := []struct {
		in   string
		want LogLevel
	}{
		{"error", LogLevelError},
		{"WARN", LogLevelWarn},
		{"warning", LogLevelWarn},
		{"info", LogLevelInfo},
		{"debug", LogLevelDebug},
		{"trace", LogLevelDebug},
		{"", LogLevelInfo},
		{"bogus", LogLevelInfo},
	}
	for _, c := range cases {
		if got := ParseLogLevel(c.in); got != c.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(LogLevelWarn, &buf)

	l.Debug("hidden %d", 1)
	l.Info("hidden too")
	l.Warn("shown %s", "warning")
	l.Error("shown error")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("low-severity lines leaked: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown warning") || !strings.Contains(out, "[ERROR] shown error") {
		t.Errorf("expected warn and error lines, got %q", out)
	}
}
