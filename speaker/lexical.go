package speaker

import "strings"

// LexicalClassifier maps conversational markers to speaker ids.
type LexicalClassifier struct {
	patterns [][]string
}

// NewLexicalClassifier builds a classifier over per-speaker phrase lists.
// Patterns are matched case-insensitively as substrings.
func NewLexicalClassifier(patterns [][]string) *LexicalClassifier {
	lowered := make([][]string, len(patterns))
	for i, list := range patterns {
		lowered[i] = make([]string, len(list))
		for j, p := range list {
			lowered[i][j] = strings.ToLower(p)
		}
	}
	return &LexicalClassifier{patterns: lowered}
}

// Classify returns the speaker id suggested by text, or 0 when nothing matches.
//
// Alternation is checked first: an even-indexed segment matching list 1 is
// speaker 1 and an odd-indexed segment matching list 2 is speaker 2. After
// that every list is scanned in order and the first hit wins.
func (c *LexicalClassifier) Classify(text string, index int) int {
	if c == nil || len(c.patterns) == 0 {
		return 0
	}
	text = strings.ToLower(text)

	parity := 0
	if index%2 == 1 {
		parity = 1
	}
	if parity < len(c.patterns) && containsAny(text, c.patterns[parity]) {
		return parity + 1
	}
	for i, list := range c.patterns {
		if containsAny(text, list) {
			return i + 1
		}
	}
	return 0
}

func containsAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(text, p) {
			return true
		}
	}
	return false
}
