package gate

import "strings"

// RefusalDetector decides whether an answer declines to respond.
// It is an interface so the fixed phrase list can later be replaced
// by a trained classifier without changing the gate's contract.
type RefusalDetector interface {
	IsRefusal(text string) bool
}

// defaultRefusalPhrases is a fixed, curated, English-only set.
// Known limitation: refusal detection is only as good as phrase
// coverage and is not multilingual.
var defaultRefusalPhrases = []string{
	"i don't have enough information",
	"i do not have enough information",
	"cannot answer",
	"can't answer",
	"unable to answer",
	"context does not contain",
	"context doesn't contain",
	"sources do not contain",
	"sources don't contain",
	"no relevant information",
	"not mentioned in the provided",
	"insufficient information",
}

// PhraseDetector matches refusals by case-insensitive substring
// against a fixed phrase set. A detected refusal is treated as
// correct behavior, not as a hallucination: the pipeline declined
// because it lacked supporting evidence.
type PhraseDetector struct {
	phrases []string
}

// NewPhraseDetector creates a detector with the given phrases, or the
// default set when none are given.
func NewPhraseDetector(phrases ...string) *PhraseDetector {
	if len(phrases) == 0 {
		phrases = defaultRefusalPhrases
	}

	lowered := make([]string, len(phrases))
	for i, p := range phrases {
		lowered[i] = strings.ToLower(p)
	}
	return &PhraseDetector{phrases: lowered}
}

// IsRefusal reports whether text contains any refusal phrase.
func (d *PhraseDetector) IsRefusal(text string) bool {
	lower := strings.ToLower(text)
	// Chat models frequently emit curly apostrophes
	lower = strings.ReplaceAll(lower, "’", "'")

	for _, phrase := range d.phrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}
