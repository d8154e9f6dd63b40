package model

import "time"

// EvidenceChunk is a caller-supplied unit of ground truth, already
// ranked and filtered by the retrieval step. The gate never mutates
// or re-ranks chunks and depends only on ID and Text; the remaining
// fields are provenance metadata carried through for callers.
type EvidenceChunk struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Source    string    `json:"source,omitempty"`    // Publisher or feed name
	Title     string    `json:"title,omitempty"`     // Article/document title
	URL       string    `json:"url,omitempty"`       // Origin URL
	Published time.Time `json:"published,omitempty"` // Publication timestamp, if known
}
