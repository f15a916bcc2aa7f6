// Package verify orchestrates validation and integrity over one or many
// match records: it seals new records, detects post-hoc modification by
// re-hashing, and renders reports.
package verify

import (
	"fmt"

	"github.com/jonboulle/clockwork"

	"matchwitness/internal/integrity"
	"matchwitness/internal/match"
	"matchwitness/internal/validate"
)

// Service is constructed once by the caller and passed by handle. It holds
// no per-record state; every call receives everything it needs.
type Service struct {
	hasher integrity.Hasher
	engine *validate.Engine
	clock  clockwork.Clock
}

// New creates a verification service with the real clock.
func New(hasher integrity.Hasher, engine *validate.Engine) *Service {
	return NewWithClock(hasher, engine, clockwork.NewRealClock())
}

// NewWithClock creates a service with an injected clock for tests.
func NewWithClock(hasher integrity.Hasher, engine *validate.Engine, clock clockwork.Clock) *Service {
	return &Service{hasher: hasher, engine: engine, clock: clock}
}

// ValidateMatch runs the six-layer validation engine.
func (s *Service) ValidateMatch(r *match.MatchRecord, stats *match.MatchStats, history []match.MatchRecord) validate.Result {
	return s.engine.Evaluate(r, stats, history)
}

// ApplyVerification seals a record: hash, proof and seal in sequence. The
// result carries everything needed to reverify the record offline later.
func (s *Service) ApplyVerification(r *match.MatchRecord, participantID string) (match.VerifiedMatchRecord, error) {
	if r == nil {
		return match.VerifiedMatchRecord{}, fmt.Errorf("apply verification: nil record")
	}

	hash, err := integrity.GenerateHash(s.hasher, r, participantID)
	if err != nil {
		return match.VerifiedMatchRecord{}, fmt.Errorf("apply verification: %w", err)
	}

	proof := integrity.GenerateProof(r, hash)

	seal, err := integrity.CreateSeal(r, participantID, hash)
	if err != nil {
		return match.VerifiedMatchRecord{}, fmt.Errorf("apply verification: %w", err)
	}

	return match.VerifiedMatchRecord{
		MatchRecord:       *r,
		Integrity:         hash,
		Seal:              seal,
		Proof:             proof,
		IntegrityVerified: true,
		LastVerified:      s.clock.Now().UTC(),
	}, nil
}

// ReverifyResult describes what reverification found. Tampering is data
// for the caller to branch on, never an error.
type ReverifyResult struct {
	StillValid           bool     `json:"still_valid"`
	HashMatches          bool     `json:"hash_matches"`
	SealMatches          bool     `json:"seal_matches"`
	ProofMatches         bool     `json:"proof_matches"`
	ModificationDetected bool     `json:"modification_detected"`
	Details              []string `json:"details,omitempty"`
}

// Reverify recomputes the hash and seal from the record's current field
// values using the stored salt and compares byte-for-byte against the
// stored artifacts. Any mismatch is diffed field-by-field so the details
// name exactly what changed.
func (s *Service) Reverify(v *match.VerifiedMatchRecord, participantID string) ReverifyResult {
	res := ReverifyResult{}

	hasher, err := integrity.SelectHasher(v.Integrity.Algorithm)
	if err != nil {
		res.ModificationDetected = true
		res.Details = append(res.Details, fmt.Sprintf("stored hash uses unknown algorithm %q", v.Integrity.Algorithm))
		return res
	}

	recomputed := integrity.GenerateHashWithSalt(hasher, &v.MatchRecord, participantID, v.Integrity.Salt)

	res.HashMatches = recomputed.Hash == v.Integrity.Hash
	res.SealMatches = integrity.VerifySeal(v.Seal, participantID, v.Integrity)
	res.ProofMatches = integrity.VerifyProof(v.Proof, &v.MatchRecord, v.Integrity)

	if !res.HashMatches {
		res.ModificationDetected = true
		if recomputed.InputHash != v.Integrity.InputHash {
			res.Details = append(res.Details, "condition fields (teams, side, duration) no longer match the sealed fingerprint")
		}
		if recomputed.OutputHash != v.Integrity.OutputHash {
			res.Details = append(res.Details, "result fields (scores, goals, assists, outcome) no longer match the sealed fingerprint")
		}
		for _, field := range integrity.DiffFields(hasher, &v.MatchRecord, v.Integrity) {
			res.Details = append(res.Details, fmt.Sprintf("field %s was modified after sealing", field))
		}
	}
	if !res.SealMatches {
		res.ModificationDetected = true
		res.Details = append(res.Details, "seal checksum does not match the stored hash and participant")
	}
	if !res.ProofMatches {
		res.ModificationDetected = true
		res.Details = append(res.Details, "proof string does not match the current record and hash")
	}

	res.StillValid = res.HashMatches && res.SealMatches && res.ProofMatches
	return res
}

// IsDegraded reports whether the stored hash was produced by the
// non-secure fallback digest. Degraded records are lower trust, never
// equivalent to a cryptographic fingerprint.
func IsDegraded(v *match.VerifiedMatchRecord) bool {
	return v.Integrity.Algorithm == integrity.AlgorithmFold
}
