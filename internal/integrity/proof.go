package integrity

import (
	"fmt"

	"matchwitness/internal/match"
)

// proofPrefixLen is how many hash characters the proof embeds. Enough for
// a third-party spot check, short enough to paste into a chat message.
const proofPrefixLen = 12

// GenerateProof builds the compact shareable string for a record:
// the record id, a short hash prefix and the literal scoreline.
func GenerateProof(r *match.MatchRecord, h match.IntegrityHash) match.Proof {
	prefix := h.Hash
	if len(prefix) > proofPrefixLen {
		prefix = prefix[:proofPrefixLen]
	}
	return match.Proof(fmt.Sprintf("MW1:%s:%s:%d-%d", r.ID, prefix, r.HomeScore, r.AwayScore))
}

// VerifyProof recomputes the proof from the current record and hash and
// compares for exact equality.
func VerifyProof(proof match.Proof, r *match.MatchRecord, h match.IntegrityHash) bool {
	return proof == GenerateProof(r, h)
}
