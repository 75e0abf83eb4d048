package ai

import "strings"

var questionLeadWords = []string{
	"what", "why", "how", "when", "where", "who", "which", "whose", "whom",
	"can", "could", "would", "should", "is", "are", "do", "does", "did",
	"will", "have", "has", "may", "might", "shall",
}

var requestPhrases = []string{
	"tell me", "explain", "describe", "clarify", "help me understand",
	"what do you think", "any thoughts", "any ideas", "anyone know",
}

// IsQuestion reports whether text reads like a question or a request for
// an answer. It is a heuristic: the first matching rule wins.
func IsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}

	lower := strings.ToLower(strings.TrimSpace(text))
	for _, w := range questionLeadWords {
		if strings.HasPrefix(lower, w+" ") {
			return true
		}
	}
	for _, p := range requestPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
