package correct

import "strings"

// Classifier decides whether a message's content reads like a short
// self-authored reply. Isolated behind an interface so the word-list
// heuristic can be swapped without touching the reassignment logic.
type Classifier interface {
	Classify(content string) bool
}

// WordlistClassifier is the default heuristic: short content, a question
// mark, or one of a small fixed vocabulary of acknowledgement and
// question words. It has known false positives; incoming messages can be
// short too.
type WordlistClassifier struct {
	MaxLength  int
	Vocabulary []string
}

// DefaultReplyLength is the content length under which a message counts
// as a likely reply.
const DefaultReplyLength = 50

// NewWordlistClassifier returns the default classifier.
func NewWordlistClassifier() *WordlistClassifier {
	return &WordlistClassifier{
		MaxLength: DefaultReplyLength,
		Vocabulary: []string{
			"ok", "okay", "yes", "yeah", "no", "sure", "thanks", "thank you",
			"hi", "hello", "hey", "bye", "sorry", "please", "done", "fine",
			"good", "great", "cool", "lol", "hmm", "call me", "where", "when",
		},
	}
}

// Classify reports whether content looks like a self-authored reply.
func (c *WordlistClassifier) Classify(content string) bool {
	content = strings.TrimSpace(content)
	if content == "" {
		return false
	}

	if len(content) < c.MaxLength {
		return true
	}
	if strings.Contains(content, "?") {
		return true
	}

	lower := strings.ToLower(content)
	words := strings.Fields(lower)
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!:;")] = true
	}
	for _, v := range c.Vocabulary {
		if strings.Contains(v, " ") {
			if strings.Contains(lower, v) {
				return true
			}
			continue
		}
		if wordSet[v] {
			return true
		}
	}
	return false
}
