package model

// Claim is one checkable assertion extracted from an answer.
// Claims are immutable once produced and keep the order in which
// they appeared in the answer text.
type Claim struct {
	Text  string `json:"text"`  // The claim text itself
	Order int    `json:"order"` // Position in the answer (0-based)
}
