// Package integrity fingerprints match records and re-verifies the
// fingerprints against possibly-mutated copies.
//
// Every function here is pure: it operates only on its arguments, performs
// no I/O beyond reading the random salt at hashing time, and keeps no
// state between calls.
package integrity

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

// Errors
var (
	ErrUnknownAlgorithm = errors.New("integrity: unknown hash algorithm")
	ErrSealFormat       = errors.New("integrity: malformed seal")
)

// Algorithm names recorded on produced hashes.
const (
	AlgorithmSHA256 = "sha256"
	AlgorithmFold   = "fallback-nonsecure"
)

// Hasher is the digest strategy selected once at startup. Callers must
// treat AlgorithmFold results as lower trust, never equivalent to a
// cryptographic digest.
type Hasher interface {
	Sum(data []byte) []byte
	Algorithm() string
}

// SHA256Hasher is the primary strategy.
type SHA256Hasher struct{}

func (SHA256Hasher) Sum(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func (SHA256Hasher) Algorithm() string { return AlgorithmSHA256 }

// FoldHasher is the degraded-mode strategy: a deterministic 64-bit
// integer-folding digest for environments without a usable crypto
// primitive. It is not collision resistant.
type FoldHasher struct{}

func (FoldHasher) Sum(data []byte) []byte {
	// FNV-1a style fold, widened to 8 output bytes.
	var h uint64 = 14695981039346656037
	for _, b := range data {
		h ^= uint64(b)
		h *= 1099511628211
	}
	out := make([]byte, 8)
	binary.BigEndian.PutUint64(out, h)
	return out
}

func (FoldHasher) Algorithm() string { return AlgorithmFold }

// SelectHasher picks the digest strategy once at startup. An empty
// preference probes for the strong primitive and falls back only when it
// is unavailable; an explicit preference forces that strategy (used to
// exercise degraded mode).
func SelectHasher(preferred string) (Hasher, error) {
	switch preferred {
	case "", AlgorithmSHA256:
		if sha256Available() {
			return SHA256Hasher{}, nil
		}
		if preferred == AlgorithmSHA256 {
			return nil, ErrUnknownAlgorithm
		}
		return FoldHasher{}, nil
	case AlgorithmFold:
		return FoldHasher{}, nil
	default:
		return nil, ErrUnknownAlgorithm
	}
}

// sha256Available probes the strong digest primitive. The Go runtime
// always links crypto/sha256, so this cannot fail here; the probe is kept
// so the selection stays an explicit startup-time strategy rather than a
// runtime branch at call sites.
func sha256Available() bool {
	defer func() { _ = recover() }()
	return len(sha256.New().Sum(nil)) == sha256.Size
}
