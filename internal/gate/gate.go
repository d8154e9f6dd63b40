package gate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/faithgate/faithgate/internal/model"
	"github.com/faithgate/faithgate/internal/nli"
)

// DefaultThreshold is the starting point for the faithfulness gate;
// tune it against labeled evaluation data.
const DefaultThreshold = 0.5

// Gate verifies that an LLM answer is supported by its retrieved
// evidence. It holds the long-lived scorer handle and is read-only
// after construction; Evaluate is a pure function of its inputs plus
// that handle.
type Gate struct {
	scorer    nli.Scorer
	detector  RefusalDetector
	segmenter *Segmenter
	matcher   *Matcher
	workers   int
}

// New creates a gate with the default phrase-based refusal detector.
func New(scorer nli.Scorer, cfg model.GateConfig) *Gate {
	return NewWithDetector(scorer, NewPhraseDetector(), cfg)
}

// NewWithDetector creates a gate with a custom refusal detector.
func NewWithDetector(scorer nli.Scorer, detector RefusalDetector, cfg model.GateConfig) *Gate {
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Gate{
		scorer:    scorer,
		detector:  detector,
		segmenter: NewSegmenter(cfg.MinClaimLength),
		matcher:   NewMatcher(scorer),
		workers:   workers,
	}
}

// Scorer exposes the underlying scorer handle, mainly so callers can
// record its model identifier alongside logged verdicts.
func (g *Gate) Scorer() nli.Scorer {
	return g.scorer
}

// Evaluate scores an answer against evidence and returns a verdict.
//
// A detected refusal short-circuits with score 1.0: declining to
// answer when evidence is missing is correct behavior. An answer that
// yields zero claims scores 0.0, deliberately distinguishable from
// the refusal case, since "nothing to check" is not "correctly
// declined". A scorer failure propagates as an error wrapping
// nli.ErrUnavailable and is never folded into a low score; conflating
// "failed to evaluate" with "evaluated as unfaithful" would corrupt
// downstream monitoring.
func (g *Gate) Evaluate(ctx context.Context, answer string, evidence []model.EvidenceChunk, threshold float64) (*model.Verdict, error) {
	if threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("threshold %v outside [0,1]", threshold)
	}

	normalized := StripCitations(answer)

	if g.detector.IsRefusal(normalized) {
		return &model.Verdict{
			FaithfulnessScore: 1.0,
			IsFaithful:        true,
			IsRefusal:         true,
			ClaimScores:       []model.ClaimScore{},
			Flagged:           []model.ClaimScore{},
			Threshold:         threshold,
		}, nil
	}

	claims := g.segmenter.Split(normalized)
	if len(claims) == 0 {
		return &model.Verdict{
			FaithfulnessScore: 0.0,
			IsFaithful:        false,
			IsRefusal:         false,
			ClaimScores:       []model.ClaimScore{},
			Flagged:           []model.ClaimScore{},
			Threshold:         threshold,
		}, nil
	}

	scores, err := g.scoreClaims(ctx, claims, evidence)
	if err != nil {
		return nil, err
	}

	sum := 0.0
	for _, cs := range scores {
		sum += cs.BestEntailment
	}
	faithfulness := roundScore(sum / float64(len(scores)))

	flagged := []model.ClaimScore{}
	for _, cs := range scores {
		if cs.BestEntailment < threshold {
			flagged = append(flagged, cs)
		}
	}

	return &model.Verdict{
		FaithfulnessScore: faithfulness,
		IsFaithful:        faithfulness >= threshold,
		IsRefusal:         false,
		ClaimScores:       scores,
		Flagged:           flagged,
		Threshold:         threshold,
		NumClaims:         len(claims),
	}, nil
}

// scoreClaims runs the matcher over every claim, preserving claim
// order in the result. Claims are independent, so with workers > 1
// they are scored concurrently; results land at their claim's index,
// keeping output order identical to the sequential path.
func (g *Gate) scoreClaims(ctx context.Context, claims []model.Claim, evidence []model.EvidenceChunk) ([]model.ClaimScore, error) {
	scores := make([]model.ClaimScore, len(claims))

	if g.workers == 1 || len(claims) == 1 {
		for i, claim := range claims {
			cs, err := g.matcher.Match(ctx, claim, evidence)
			if err != nil {
				return nil, err
			}
			scores[i] = cs
		}
		return scores, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make([]error, len(claims))
	sem := make(chan struct{}, g.workers)
	var wg sync.WaitGroup

	for i, claim := range claims {
		wg.Add(1)
		go func(i int, claim model.Claim) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}

			cs, err := g.matcher.Match(ctx, claim, evidence)
			if err != nil {
				errs[i] = err
				cancel()
				return
			}
			scores[i] = cs
		}(i, claim)
	}
	wg.Wait()

	// Prefer the real scoring failure over the cancellations it
	// caused in sibling workers
	var firstErr error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if !errors.Is(err, context.Canceled) {
			return nil, err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	return scores, nil
}
