package nli

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/faithgate/faithgate/internal/model"
)

// ErrUnavailable marks a scoring call that failed for transport or
// backend reasons. Callers must treat it as "faithfulness unknown",
// never as a low faithfulness score.
var ErrUnavailable = errors.New("entailment scoring unavailable")

// Pair is one (premise, hypothesis) input to the NLI model.
// Premise is evidence text; hypothesis is a claim from the answer.
type Pair struct {
	Premise    string
	Hypothesis string
}

// Scorer scores batches of premise/hypothesis pairs.
//
// Implementations must be deterministic for a fixed model version and
// identical inputs, and must return exactly one PairScore per input
// pair, in input order, with the three probabilities summing to 1
// within floating tolerance. Construction of a Scorer is the
// expensive one-time step; the handle is long-lived and read-only
// after initialization.
type Scorer interface {
	// Name identifies the backend (e.g. "inference", "openai")
	Name() string

	// Model returns the entailment model identifier. Callers should
	// record it alongside logged verdicts for reproducibility.
	Model() string

	// Score returns one probability distribution per pair, in input
	// order. A failed call returns an error wrapping ErrUnavailable.
	Score(ctx context.Context, pairs []Pair) ([]model.PairScore, error)
}

// sumTolerance is the allowed deviation of a probability triple from 1.
const sumTolerance = 0.01

// checkDistribution verifies a scored triple is a probability
// distribution. Backends call it before returning scores so a
// misconfigured label mapping or truncated response surfaces as an
// error instead of a silently wrong verdict.
func checkDistribution(s model.PairScore) error {
	for _, p := range []float64{s.Contradiction, s.Neutral, s.Entailment} {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return fmt.Errorf("probability out of range: %v", p)
		}
	}
	sum := s.Contradiction + s.Neutral + s.Entailment
	if math.Abs(sum-1) > sumTolerance {
		return fmt.Errorf("probabilities sum to %.4f, want 1", sum)
	}
	return nil
}
