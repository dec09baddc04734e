// Package syncx provides sync primitives shared by the engine: canonical
// serialization, content checksums and merge helpers.
package syncx

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Canonicalize serializes a snapshot deterministically: object keys are
// emitted in sorted order at every nesting level, so two snapshots with
// equal content always produce identical bytes regardless of field order.
//
// encoding/json sorts map keys on marshal, which gives exactly the
// canonical form required for content-equality hashing.
func Canonicalize(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return b, nil
}

// Checksum returns the SHA-256 hex digest of the canonical serialization.
// Two snapshots are divergent iff their checksums differ; this is a
// content-equality test, not a causal ordering test.
func Checksum(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
