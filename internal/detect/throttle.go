package detect

import (
	"fmt"
	"sync"
	"time"
)

// MinInterval is the floor between detection calls for distinct messages.
const MinInterval = 1800 * time.Millisecond

// Throttle suppresses redundant detection calls: identical messages are
// always skipped, and distinct messages closer together than MinInterval are
// skipped too. Signatures compare length plus head and tail so long messages
// never require full-body comparison.
type Throttle struct {
	mu       sync.Mutex
	lastSig  string
	lastTime time.Time
	now      func() time.Time
}

func NewThrottle() *Throttle {
	return &Throttle{now: time.Now}
}

// Allow reports whether a detection call for this message should proceed,
// recording the message as seen when it does.
func (t *Throttle) Allow(message string) bool {
	sig := Signature(message)

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	if sig == t.lastSig {
		return false
	}
	if !t.lastTime.IsZero() && now.Sub(t.lastTime) < MinInterval {
		return false
	}
	t.lastSig = sig
	t.lastTime = now
	return true
}

// Signature is the cheap message fingerprint: rune length plus the first and
// last 64 runes.
func Signature(s string) string {
	runes := []rune(s)
	head := runes
	if len(head) > 64 {
		head = head[:64]
	}
	tail := runes
	if len(tail) > 64 {
		tail = tail[len(tail)-64:]
	}
	return fmt.Sprintf("%d|%s|%s", len(runes), string(head), string(tail))
}
