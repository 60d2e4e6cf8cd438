// Package model holds the data-model types shared by the store, planner,
// and evaluator: content hashes, input descriptors, steps, derivations,
// cache rows, and the dependency/execution trees used for tracing.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a 256-bit content digest, rendered as lowercase hex.
type Hash string

// HashBytes computes the content hash of b.
func HashBytes(b []byte) Hash {
	sum := sha256.Sum256(b)
	return Hash(hex.EncodeToString(sum[:]))
}

// HashString computes the content hash of a UTF-8 string.
func HashString(s string) Hash {
	return HashBytes([]byte(s))
}

// Empty reports whether h is the zero value (no hash set).
func (h Hash) Empty() bool {
	return h == ""
}

func (h Hash) String() string {
	return string(h)
}

// EmptyContentHash is the hash of the empty byte string, used as the seed
// content hash for SCC members under the "empty" seed policy.
var EmptyContentHash = HashBytes(nil)
