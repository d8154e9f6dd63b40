package gate

import "testing"

func TestStripCitations_RemovesMarkers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "trailing marker",
			input: "Meta lost $80 billion [Source 1].",
			want:  "Meta lost $80 billion .",
		},
		{
			name:  "full marker with source and title",
			input: "Meta lost $80 billion [Source 2: The Verge — Meta earnings].",
			want:  "Meta lost $80 billion .",
		},
		{
			name:  "multiple markers",
			input: "First fact [Source 1]. Second fact [Source 12: Reuters — Q3].",
			want:  "First fact . Second fact .",
		},
		{
			name:  "no markers",
			input: "Meta lost $80 billion.",
			want:  "Meta lost $80 billion.",
		},
		{
			name:  "whitespace trimmed",
			input: "  answer text here  ",
			want:  "answer text here",
		},
		{
			name:  "empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripCitations(tt.input)
			if got != tt.want {
				t.Errorf("StripCitations(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripCitations_Idempotent(t *testing.T) {
	input := "Meta lost $80 billion [Source 1]. More text [Source 3: Ars — VR]."

	once := StripCitations(input)
	twice := StripCitations(once)

	if once != twice {
		t.Errorf("not idempotent: first pass %q, second pass %q", once, twice)
	}
}
