package gate

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/faithgate/faithgate/internal/model"
	"github.com/faithgate/faithgate/internal/nli"
)

func newTestGate(scorer nli.Scorer, workers int) *Gate {
	return New(scorer, model.GateConfig{
		Threshold:      DefaultThreshold,
		MinClaimLength: DefaultMinClaimLength,
		Workers:        workers,
	})
}

// scoreByHypothesis scripts entailment per claim text, independent of
// the premise, so multi-claim evaluations are easy to stage.
func scoreByHypothesis(m map[string]float64) *stubScorer {
	return &stubScorer{fn: func(pairs []nli.Pair) ([]model.PairScore, error) {
		scores := make([]model.PairScore, len(pairs))
		for i, p := range pairs {
			e, ok := m[p.Hypothesis]
			if !ok {
				return nil, fmt.Errorf("unscripted hypothesis: %q", p.Hypothesis)
			}
			scores[i] = model.PairScore{Entailment: e, Neutral: 1 - e}
		}
		return scores, nil
	}}
}

var metaEvidence = []model.EvidenceChunk{
	{ID: "c1", Text: "Meta has lost $80 billion on Reality Labs"},
}

// Scenario: refusal with empty evidence is maximally faithful.
func TestGate_RefusalShortCircuits(t *testing.T) {
	g := newTestGate(entailments(), 1) // any scoring call would fail

	verdict, err := g.Evaluate(context.Background(), "I don't have enough information in my sources to answer this.", nil, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if !verdict.IsRefusal {
		t.Error("expected is_refusal")
	}
	if !verdict.IsFaithful {
		t.Error("refusal must be faithful")
	}
	if verdict.FaithfulnessScore != 1.0 {
		t.Errorf("refusal score = %v, want 1.0", verdict.FaithfulnessScore)
	}
	if len(verdict.ClaimScores) != 0 || len(verdict.Flagged) != 0 {
		t.Errorf("refusal verdict must carry no claim scores: %+v", verdict)
	}
	if verdict.NumClaims != 0 {
		t.Errorf("refusal num_claims = %d, want 0", verdict.NumClaims)
	}
}

// The refusal invariant holds regardless of evidence.
func TestGate_RefusalWithEvidence(t *testing.T) {
	g := newTestGate(entailments(), 1)

	verdict, err := g.Evaluate(context.Background(), "The context does not contain information about this topic.", metaEvidence, 0.9)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !verdict.IsRefusal || verdict.FaithfulnessScore != 1.0 || !verdict.IsFaithful {
		t.Errorf("refusal invariant violated: %+v", verdict)
	}
}

// Scenario: supported answer passes with provenance.
func TestGate_SupportedAnswer(t *testing.T) {
	g := newTestGate(nli.NewLexicalScorer(""), 1)

	verdict, err := g.Evaluate(context.Background(), "Meta has lost $80 billion on Reality Labs investments.", metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if verdict.NumClaims != 1 {
		t.Fatalf("num_claims = %d, want 1", verdict.NumClaims)
	}
	if verdict.ClaimScores[0].BestEvidenceID != "c1" {
		t.Errorf("best evidence = %q, want c1", verdict.ClaimScores[0].BestEvidenceID)
	}
	if verdict.ClaimScores[0].BestEntailment < DefaultThreshold {
		t.Errorf("best entailment = %v, want >= %v", verdict.ClaimScores[0].BestEntailment, DefaultThreshold)
	}
	if !verdict.IsFaithful || verdict.IsRefusal {
		t.Errorf("expected faithful non-refusal verdict: %+v", verdict)
	}
	if len(verdict.Flagged) != 0 {
		t.Errorf("no claims should be flagged: %+v", verdict.Flagged)
	}
}

// Scenario: unsupported answer is flagged and fails.
func TestGate_UnsupportedAnswer(t *testing.T) {
	g := newTestGate(nli.NewLexicalScorer(""), 1)

	verdict, err := g.Evaluate(context.Background(), "Mark Zuckerberg founded Facebook in 2004.", metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if verdict.IsFaithful {
		t.Error("unsupported answer must not be faithful")
	}
	if verdict.ClaimScores[0].BestEntailment >= DefaultThreshold {
		t.Errorf("best entailment = %v, want < %v", verdict.ClaimScores[0].BestEntailment, DefaultThreshold)
	}
	if len(verdict.Flagged) != 1 {
		t.Fatalf("expected 1 flagged claim, got %d", len(verdict.Flagged))
	}
	if verdict.Flagged[0] != verdict.ClaimScores[0] {
		t.Error("flagged entry must match the claim score")
	}
}

// Scenario: empty answer is distinguishable from a refusal.
func TestGate_EmptyAnswer(t *testing.T) {
	g := newTestGate(entailments(), 1)

	for _, answer := range []string{"", "   ", "OK."} {
		verdict, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
		if err != nil {
			t.Fatalf("Evaluate(%q) failed: %v", answer, err)
		}

		if verdict.IsRefusal {
			t.Errorf("Evaluate(%q): unexpected refusal", answer)
		}
		if verdict.FaithfulnessScore != 0.0 || verdict.IsFaithful {
			t.Errorf("Evaluate(%q): score = %v faithful = %v, want 0.0/false", answer, verdict.FaithfulnessScore, verdict.IsFaithful)
		}
		if verdict.NumClaims != 0 || len(verdict.ClaimScores) != 0 {
			t.Errorf("Evaluate(%q): expected zero claims, got %+v", answer, verdict)
		}
	}
}

func TestGate_EmptyEvidenceNeverFaithful(t *testing.T) {
	g := newTestGate(entailments(), 1) // scorer must not be called

	verdict, err := g.Evaluate(context.Background(), "This answer asserts something checkable.", nil, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if verdict.IsFaithful {
		t.Error("claims without evidence can never be faithful")
	}
	if verdict.FaithfulnessScore != 0.0 {
		t.Errorf("score = %v, want 0.0", verdict.FaithfulnessScore)
	}
	if verdict.ClaimScores[0].BestEvidenceID != "" {
		t.Errorf("best evidence should be empty, got %q", verdict.ClaimScores[0].BestEvidenceID)
	}
}

func TestGate_MeanAndFlaggingAcrossClaims(t *testing.T) {
	answer := "Claim alpha is stated here. Claim bravo is stated here. Claim charlie is stated here."
	scorer := scoreByHypothesis(map[string]float64{
		"Claim alpha is stated here.":   0.9,
		"Claim bravo is stated here.":   0.3,
		"Claim charlie is stated here.": 0.6,
	})
	g := newTestGate(scorer, 1)

	verdict, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if verdict.NumClaims != 3 {
		t.Fatalf("num_claims = %d, want 3", verdict.NumClaims)
	}
	if verdict.FaithfulnessScore != 0.6 {
		t.Errorf("score = %v, want 0.6", verdict.FaithfulnessScore)
	}
	if !verdict.IsFaithful {
		t.Error("0.6 >= 0.5 must pass")
	}
	if len(verdict.Flagged) != 1 || verdict.Flagged[0].Claim != "Claim bravo is stated here." {
		t.Errorf("unexpected flagged set: %+v", verdict.Flagged)
	}
	// One batched scorer call per claim
	if n := scorer.calls.Load(); n != 3 {
		t.Errorf("scorer calls = %d, want 3", n)
	}
}

func TestGate_ClaimOrderPreserved(t *testing.T) {
	answer := "Zulu comes first in the answer. Alpha comes second in the answer. Mike comes third in the answer."
	scorer := scoreByHypothesis(map[string]float64{
		"Zulu comes first in the answer.":   0.2,
		"Alpha comes second in the answer.": 0.4,
		"Mike comes third in the answer.":   0.1,
	})

	for _, workers := range []int{1, 4} {
		g := newTestGate(scorer, workers)

		verdict, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
		if err != nil {
			t.Fatalf("workers=%d: Evaluate failed: %v", workers, err)
		}

		want := []string{
			"Zulu comes first in the answer.",
			"Alpha comes second in the answer.",
			"Mike comes third in the answer.",
		}
		for i, cs := range verdict.ClaimScores {
			if cs.Claim != want[i] {
				t.Errorf("workers=%d: claim %d = %q, want %q", workers, i, cs.Claim, want[i])
			}
		}
		for i, f := range verdict.Flagged {
			if f.Claim != want[i] {
				t.Errorf("workers=%d: flagged %d = %q, want %q", workers, i, f.Claim, want[i])
			}
		}
	}
}

func TestGate_ConcurrentMatchesSequential(t *testing.T) {
	answer := "Claim alpha is stated here. Claim bravo is stated here. Claim charlie is stated here. Claim delta is stated here."
	scores := map[string]float64{
		"Claim alpha is stated here.":   0.8,
		"Claim bravo is stated here.":   0.2,
		"Claim charlie is stated here.": 0.55,
		"Claim delta is stated here.":   0.95,
	}

	sequential, err := newTestGate(scoreByHypothesis(scores), 1).Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("sequential Evaluate failed: %v", err)
	}
	concurrent, err := newTestGate(scoreByHypothesis(scores), 3).Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("concurrent Evaluate failed: %v", err)
	}

	if !reflect.DeepEqual(sequential, concurrent) {
		t.Errorf("concurrent verdict differs from sequential:\n%+v\n%+v", sequential, concurrent)
	}
}

// For t1 < t2, the flagged set at t2 is a superset of the set at t1.
func TestGate_FlaggedMonotonicInThreshold(t *testing.T) {
	answer := "Claim alpha is stated here. Claim bravo is stated here. Claim charlie is stated here."
	scores := map[string]float64{
		"Claim alpha is stated here.":   0.9,
		"Claim bravo is stated here.":   0.3,
		"Claim charlie is stated here.": 0.6,
	}

	flaggedAt := func(threshold float64) map[string]bool {
		g := newTestGate(scoreByHypothesis(scores), 1)
		verdict, err := g.Evaluate(context.Background(), answer, metaEvidence, threshold)
		if err != nil {
			t.Fatalf("Evaluate at %v failed: %v", threshold, err)
		}
		set := make(map[string]bool)
		for _, f := range verdict.Flagged {
			set[f.Claim] = true
		}
		return set
	}

	thresholds := []float64{0.0, 0.2, 0.4, 0.5, 0.7, 0.95, 1.0}
	for i := 1; i < len(thresholds); i++ {
		lower, higher := flaggedAt(thresholds[i-1]), flaggedAt(thresholds[i])
		for claim := range lower {
			if !higher[claim] {
				t.Errorf("claim %q flagged at %v but not at %v", claim, thresholds[i-1], thresholds[i])
			}
		}
	}
}

func TestGate_Deterministic(t *testing.T) {
	g := newTestGate(nli.NewLexicalScorer(""), 1)
	answer := "Meta has lost $80 billion on Reality Labs investments. Mark Zuckerberg founded Facebook in 2004."

	first, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("first Evaluate failed: %v", err)
	}
	second, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("second Evaluate failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("verdicts differ across identical calls:\n%+v\n%+v", first, second)
	}
}

// Citation markers never reach claim text and never change the number
// of claims.
func TestGate_CitationTransparency(t *testing.T) {
	g := newTestGate(nli.NewLexicalScorer(""), 1)

	plain := "Meta has lost $80 billion on Reality Labs investments. The losses continued through the last quarter."
	cited := "Meta has lost $80 billion on Reality Labs investments [Source 1: The Verge — Meta earnings]. The losses continued through the last quarter [Source 2]."

	plainVerdict, err := g.Evaluate(context.Background(), plain, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	citedVerdict, err := g.Evaluate(context.Background(), cited, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if plainVerdict.NumClaims != citedVerdict.NumClaims {
		t.Errorf("claim count changed with citations: %d vs %d", plainVerdict.NumClaims, citedVerdict.NumClaims)
	}
	for _, cs := range citedVerdict.ClaimScores {
		if containsCitation(cs.Claim) {
			t.Errorf("citation marker leaked into claim: %q", cs.Claim)
		}
	}
}

func containsCitation(s string) bool {
	return citationPattern.MatchString(s)
}

func TestGate_ScorerFailureIsAnError(t *testing.T) {
	scorer := &stubScorer{fn: func(pairs []nli.Pair) ([]model.PairScore, error) {
		return nil, fmt.Errorf("%w: connection refused", nli.ErrUnavailable)
	}}

	for _, workers := range []int{1, 4} {
		g := newTestGate(scorer, workers)

		verdict, err := g.Evaluate(context.Background(), "This claim needs scoring to proceed.", metaEvidence, DefaultThreshold)
		if err == nil {
			t.Fatalf("workers=%d: expected error, got verdict %+v", workers, verdict)
		}
		if verdict != nil {
			t.Errorf("workers=%d: failed evaluation must not return a verdict", workers)
		}
		if !errors.Is(err, nli.ErrUnavailable) {
			t.Errorf("workers=%d: error should wrap ErrUnavailable: %v", workers, err)
		}
	}
}

func TestGate_InvalidThreshold(t *testing.T) {
	g := newTestGate(entailments(), 1)

	for _, threshold := range []float64{-0.1, 1.5} {
		if _, err := g.Evaluate(context.Background(), "Whatever text might be here.", metaEvidence, threshold); err == nil {
			t.Errorf("expected error for threshold %v", threshold)
		}
	}
}

func TestGate_ScoreBounds(t *testing.T) {
	g := newTestGate(nli.NewLexicalScorer(""), 1)
	answer := "Meta has lost $80 billion on Reality Labs investments. Completely unrelated text about gardening here."

	verdict, err := g.Evaluate(context.Background(), answer, metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}

	if verdict.FaithfulnessScore < 0 || verdict.FaithfulnessScore > 1 {
		t.Errorf("faithfulness score %v outside [0,1]", verdict.FaithfulnessScore)
	}
	for _, cs := range verdict.ClaimScores {
		if cs.BestEntailment < 0 || cs.BestEntailment > 1 {
			t.Errorf("claim score %v outside [0,1]", cs.BestEntailment)
		}
	}
}

// A custom detector can replace the phrase list without touching the
// gate contract.
func TestGate_CustomRefusalDetector(t *testing.T) {
	always := refusalFunc(func(string) bool { return true })
	g := NewWithDetector(entailments(), always, model.GateConfig{})

	verdict, err := g.Evaluate(context.Background(), "Any text at all becomes a refusal.", metaEvidence, DefaultThreshold)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if !verdict.IsRefusal {
		t.Error("custom detector was not consulted")
	}
}

type refusalFunc func(string) bool

func (f refusalFunc) IsRefusal(text string) bool { return f(text) }
