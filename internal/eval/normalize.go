package eval

import (
	"strings"

	"cloneops/domain/board"
)

// FailureReason is the reason attached when a persona's model call fails.
const FailureReason = "Model call failed."

// unparseableReason is attached when model text matched no label marker.
const unparseableReason = "Unrecognized model output."

// labelMarkers is the fixed precedence order for matching raw model text:
// positive wins over negative wins over unknown.
var labelMarkers = []struct {
	marker string
	label  board.Label
}{
	{"positive", board.LabelPositive},
	{"negative", board.LabelNegative},
	{"unknown", board.LabelUnknown},
}

// NormalizeLabel is the total normalization boundary between free-form model
// text and the three-way label enum. It always returns a terminal label;
// anything unparseable becomes unknown with a generic reason, never an
// error.
func NormalizeLabel(raw string) (board.Label, string) {
	text := strings.TrimSpace(raw)

	for _, m := range labelMarkers {
		at := indexASCIIFold(text, m.marker)
		if at < 0 {
			continue
		}
		return m.label, extractReason(text, at+len(m.marker))
	}
	return board.LabelUnknown, unparseableReason
}

// indexASCIIFold finds the first case-insensitive occurrence of an ASCII
// lowercase marker. Matching on the original bytes keeps the offset valid
// for slicing: strings.ToLower can change byte length (U+0130 for one), so
// an index into the lowered text must not be applied to the original.
func indexASCIIFold(s, marker string) int {
	for i := 0; i+len(marker) <= len(s); i++ {
		if asciiFoldEqual(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

func asciiFoldEqual(s, marker string) bool {
	for i := 0; i < len(marker); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != marker[i] {
			return false
		}
	}
	return true
}

// extractReason keeps whatever short rationale follows the matched label,
// with separator punctuation stripped.
func extractReason(text string, from int) string {
	if from >= len(text) {
		return ""
	}
	reason := strings.TrimSpace(text[from:])
	reason = strings.TrimLeft(reason, "-–—:.,)")
	return strings.TrimSpace(reason)
}
