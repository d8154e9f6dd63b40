package gate

import (
	"regexp"
	"strings"
)

// citationPattern matches inline citation markers the generation step
// appends, e.g. "[Source 2: The Verge — Meta earnings]".
var citationPattern = regexp.MustCompile(`\[Source\s+\d+[^\]]*\]`)

// StripCitations removes inline citation markers and trims the
// result. Everything else is left unchanged. Idempotent; runs before
// both refusal detection and segmentation so markup never leaks into
// claim text or refusal matching.
func StripCitations(text string) string {
	return strings.TrimSpace(citationPattern.ReplaceAllString(text, ""))
}
