package gate

import (
	"iter"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/faithgate/faithgate/internal/model"
)

// DefaultMinClaimLength filters out fragments like list markers or
// "OK." that carry nothing checkable.
const DefaultMinClaimLength = 10

// Segmenter splits answer text into checkable claims: one claim per
// sentence, breaking after terminal punctuation followed by
// whitespace.
//
// Known limitation: abbreviations containing periods ("U.S.") may
// cause over-splitting. Handling them correctly needs a full
// sentence-boundary model, which is out of scope; the length filter
// absorbs most of the resulting fragments.
type Segmenter struct {
	minLen int
}

// NewSegmenter creates a segmenter. minLen <= 0 selects the default.
func NewSegmenter(minLen int) *Segmenter {
	if minLen <= 0 {
		minLen = DefaultMinClaimLength
	}
	return &Segmenter{minLen: minLen}
}

// Sentences lazily yields trimmed sentences of at least the minimum
// length, in appearance order. The sequence is finite, restartable,
// and deterministic for identical input.
func (s *Segmenter) Sentences(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		start := 0
		for i, r := range text {
			if r != '.' && r != '!' && r != '?' {
				continue
			}

			next, width := utf8.DecodeRuneInString(text[i+1:])
			if width == 0 || !unicode.IsSpace(next) {
				continue
			}

			if sentence, ok := s.trim(text[start : i+1]); ok {
				if !yield(sentence) {
					return
				}
			}
			start = i + 1
		}

		// Trailing text without a terminal boundary still counts
		if sentence, ok := s.trim(text[start:]); ok {
			yield(sentence)
		}
	}
}

// Split collects sentences into ordered claims. No empty or
// whitespace-only claim is ever produced.
func (s *Segmenter) Split(text string) []model.Claim {
	var claims []model.Claim
	for sentence := range s.Sentences(text) {
		claims = append(claims, model.Claim{
			Text:  sentence,
			Order: len(claims),
		})
	}
	return claims
}

func (s *Segmenter) trim(fragment string) (string, bool) {
	trimmed := strings.TrimSpace(fragment)
	if utf8.RuneCountInString(trimmed) < s.minLen {
		return "", false
	}
	return trimmed, true
}
