package nli

import (
	"context"
	"sync"

	"github.com/faithgate/faithgate/internal/model"
)

// SerializedScorer serializes Score calls for backends whose
// underlying inference is not reentrant (e.g. a single-threaded model
// server). Only inference is serialized; segmentation and aggregation
// in the gate keep running unlocked.
type SerializedScorer struct {
	inner Scorer
	mu    sync.Mutex
}

// NewSerializedScorer wraps inner with single-flight discipline.
func NewSerializedScorer(inner Scorer) *SerializedScorer {
	return &SerializedScorer{inner: inner}
}

// Name returns the inner backend name.
func (s *SerializedScorer) Name() string {
	return s.inner.Name()
}

// Model returns the inner model identifier.
func (s *SerializedScorer) Model() string {
	return s.inner.Model()
}

// Score forwards to the inner scorer, one call at a time.
func (s *SerializedScorer) Score(ctx context.Context, pairs []Pair) ([]model.PairScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Score(ctx, pairs)
}
