package nli

import (
	"context"
	"encoding/json"
	"time"

	"github.com/faithgate/faithgate/internal/cache"
	"github.com/faithgate/faithgate/internal/model"
)

// CachedScorer wraps a Scorer with a per-pair score cache. Hits skip
// inference; misses are re-batched into a single call to the inner
// scorer and written back. Output order always matches input order,
// so wrapping never changes observable semantics.
type CachedScorer struct {
	inner Scorer
	store cache.Cache
	ttl   time.Duration
}

// NewCachedScorer wraps inner with the given cache store.
func NewCachedScorer(inner Scorer, store cache.Cache, ttl time.Duration) *CachedScorer {
	return &CachedScorer{inner: inner, store: store, ttl: ttl}
}

// Name returns the inner backend name.
func (s *CachedScorer) Name() string {
	return s.inner.Name()
}

// Model returns the inner model identifier.
func (s *CachedScorer) Model() string {
	return s.inner.Model()
}

// Score resolves cache hits and scores only the misses.
func (s *CachedScorer) Score(ctx context.Context, pairs []Pair) ([]model.PairScore, error) {
	if len(pairs) == 0 {
		return []model.PairScore{}, nil
	}

	scores := make([]model.PairScore, len(pairs))
	var missPairs []Pair
	var missIdx []int

	for i, p := range pairs {
		key := cache.PairKey(s.inner.Model(), p.Premise, p.Hypothesis)
		if data, found := s.store.Get(key); found {
			var cached model.PairScore
			if err := json.Unmarshal(data, &cached); err == nil {
				scores[i] = cached
				continue
			}
			// Corrupt entry: drop it and rescore
			_ = s.store.Delete(key)
		}
		missPairs = append(missPairs, p)
		missIdx = append(missIdx, i)
	}

	if len(missPairs) == 0 {
		return scores, nil
	}

	fresh, err := s.inner.Score(ctx, missPairs)
	if err != nil {
		return nil, err
	}

	for j, sc := range fresh {
		i := missIdx[j]
		scores[i] = sc

		key := cache.PairKey(s.inner.Model(), pairs[i].Premise, pairs[i].Hypothesis)
		if data, err := json.Marshal(sc); err == nil {
			// A failed write only costs a future rescore
			_ = s.store.Set(key, data, s.ttl)
		}
	}

	return scores, nil
}
