package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"
)

// Cache stores serialized pair scores keyed by (model, premise,
// hypothesis). Scoring is deterministic for a fixed model, so a hit
// is always equivalent to re-running inference.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PairKey derives a cache key for one scored pair. The three parts
// are length-prefixed before hashing so ("ab","c") and ("a","bc")
// cannot collide, and the model identifier is part of the key because
// changing the model changes score semantics.
func PairKey(modelID, premise, hypothesis string) string {
	h := sha256.New()
	for _, part := range []string{modelID, premise, hypothesis} {
		var n [8]byte
		binary.BigEndian.PutUint64(n[:], uint64(len(part)))
		h.Write(n[:])
		h.Write([]byte(part))
	}
	return "faithgate:v1:" + hex.EncodeToString(h.Sum(nil))
}
