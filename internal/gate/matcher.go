package gate

import (
	"context"
	"fmt"
	"math"

	"github.com/faithgate/faithgate/internal/model"
	"github.com/faithgate/faithgate/internal/nli"
)

// scorePrecision is the number of decimals scores are rounded to, for
// stable comparison and logging.
const scorePrecision = 4

// Matcher scores one claim against every evidence chunk and keeps the
// best match. Evidence plays the premise role, the claim the
// hypothesis role: "does this evidence support this claim".
type Matcher struct {
	scorer nli.Scorer
}

// NewMatcher creates a matcher over the given scorer.
func NewMatcher(scorer nli.Scorer) *Matcher {
	return &Matcher{scorer: scorer}
}

// Match batches all chunks for the claim into a single scorer call
// and selects the chunk with maximum entailment; ties go to the
// earliest chunk in evidence order. With no evidence the claim scores
// 0.0: a claim with no evidence can never be judged faithful.
func (m *Matcher) Match(ctx context.Context, claim model.Claim, chunks []model.EvidenceChunk) (model.ClaimScore, error) {
	result := model.ClaimScore{Claim: claim.Text}
	if len(chunks) == 0 {
		return result, nil
	}

	pairs := make([]nli.Pair, len(chunks))
	for i, chunk := range chunks {
		pairs[i] = nli.Pair{Premise: chunk.Text, Hypothesis: claim.Text}
	}

	scores, err := m.scorer.Score(ctx, pairs)
	if err != nil {
		return model.ClaimScore{}, fmt.Errorf("score claim %d: %w", claim.Order, err)
	}
	if len(scores) != len(pairs) {
		return model.ClaimScore{}, fmt.Errorf("score claim %d: %w: got %d scores for %d pairs",
			claim.Order, nli.ErrUnavailable, len(scores), len(pairs))
	}

	best := -1.0
	for i, score := range scores {
		// Strict greater-than keeps ties on the first chunk
		if score.Entailment > best {
			best = score.Entailment
			result.BestEvidenceID = chunks[i].ID
		}
	}

	result.BestEntailment = roundScore(best)
	return result, nil
}

// roundScore rounds to a fixed precision so identical inputs always
// compare and log identically.
func roundScore(x float64) float64 {
	shift := math.Pow10(scorePrecision)
	return math.Round(x*shift) / shift
}
