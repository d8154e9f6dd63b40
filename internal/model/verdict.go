package model

// PairScore is the NLI probability distribution for one
// (premise, hypothesis) pair. The three components sum to 1
// within floating tolerance; only Entailment is used downstream.
type PairScore struct {
	Contradiction float64 `json:"contradiction"`
	Neutral       float64 `json:"neutral"`
	Entailment    float64 `json:"entailment"`
}

// ClaimScore is the best entailment a claim achieved across all
// evidence chunks, with provenance. BestEvidenceID is empty when
// no evidence was available to score against.
type ClaimScore struct {
	Claim          string  `json:"claim"`
	BestEntailment float64 `json:"best_entailment"`
	BestEvidenceID string  `json:"best_evidence_id,omitempty"`
}

// Verdict is the result of one gate evaluation. It is created fresh
// per evaluation, never mutated after return, and owns no resources.
//
// Invariants:
//   - FaithfulnessScore is in [0,1]
//   - IsRefusal implies score 1.0, IsFaithful, and empty ClaimScores/Flagged
//   - otherwise IsFaithful == (FaithfulnessScore >= Threshold)
//   - Flagged is the order-preserving subsequence of ClaimScores with
//     BestEntailment below Threshold
type Verdict struct {
	FaithfulnessScore float64      `json:"faithfulness_score"`
	IsFaithful        bool         `json:"is_faithful"`
	IsRefusal         bool         `json:"is_refusal"`
	ClaimScores       []ClaimScore `json:"claim_scores"`
	Flagged           []ClaimScore `json:"flagged_claims"`
	Threshold         float64      `json:"threshold"`
	NumClaims         int          `json:"num_claims"`
}
