package integrity

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"matchwitness/internal/match"
)

// saltSize is the length of the random salt in bytes.
const saltSize = 16

// fieldDigestSize truncates per-field digests to this many bytes; they
// only need to distinguish a mutated field, not resist brute force.
const fieldDigestSize = 8

// GenerateHash fingerprints a record for a participant with a fresh
// random salt. The salt is retained on the result so the hash can be
// reproduced byte-for-byte during reverification.
func GenerateHash(h Hasher, r *match.MatchRecord, participantID string) (match.IntegrityHash, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return match.IntegrityHash{}, fmt.Errorf("generate salt: %w", err)
	}
	return GenerateHashWithSalt(h, r, participantID, hex.EncodeToString(salt)), nil
}

// GenerateHashWithSalt is the deterministic core: the same record, salt
// and participant always produce the same hash. Field order never matters
// because the canonical serialization sorts keys first.
func GenerateHashWithSalt(h Hasher, r *match.MatchRecord, participantID, salt string) match.IntegrityHash {
	inputs := conditionFields(r)
	outputs := resultFields(r)

	inputHash := hex.EncodeToString(h.Sum([]byte(canonicalize(inputs))))
	outputHash := hex.EncodeToString(h.Sum([]byte(canonicalize(outputs))))

	final := h.Sum([]byte(inputHash + "|" + outputHash + "|" + salt + "|" + participantID))

	digests := make(map[string]string, len(inputs)+len(outputs))
	for name, value := range inputs {
		digests[name] = fieldDigest(h, salt, name, value)
	}
	for name, value := range outputs {
		digests[name] = fieldDigest(h, salt, name, value)
	}

	return match.IntegrityHash{
		Hash:         hex.EncodeToString(final),
		InputHash:    inputHash,
		OutputHash:   outputHash,
		FieldDigests: digests,
		Salt:         salt,
		Algorithm:    h.Algorithm(),
		CreatedAt:    time.Now().UTC(),
	}
}

// conditionFields are the "input" side of the fingerprint: the
// circumstances of the match rather than its result.
func conditionFields(r *match.MatchRecord) map[string]string {
	return map[string]string{
		"home_team":    r.HomeTeam,
		"away_team":    r.AwayTeam,
		"side":         string(r.Side),
		"duration_min": strconv.Itoa(r.DurationMin),
	}
}

// resultFields are the "output" side: everything the participant could
// gain by mutating after the fact.
func resultFields(r *match.MatchRecord) map[string]string {
	return map[string]string{
		"home_score": strconv.Itoa(r.HomeScore),
		"away_score": strconv.Itoa(r.AwayScore),
		"goals":      strconv.Itoa(r.Goals),
		"assists":    strconv.Itoa(r.Assists),
		"outcome":    string(r.Outcome),
	}
}

// canonicalize renders fields as a stable key-sorted serialization so the
// hash is independent of any wire field order.
func canonicalize(fields map[string]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(fields[k])
	}
	return sb.String()
}

func fieldDigest(h Hasher, salt, name, value string) string {
	sum := h.Sum([]byte(salt + "|" + name + "=" + value))
	if len(sum) > fieldDigestSize {
		sum = sum[:fieldDigestSize]
	}
	return hex.EncodeToString(sum)
}

// DiffFields recomputes every per-field digest from the record's current
// values and returns the names of fields whose digests no longer match
// the stored fingerprint, sorted for stable output.
func DiffFields(h Hasher, r *match.MatchRecord, stored match.IntegrityHash) []string {
	current := conditionFields(r)
	for name, value := range resultFields(r) {
		current[name] = value
	}

	var changed []string
	for name, value := range current {
		want, ok := stored.FieldDigests[name]
		if !ok {
			continue
		}
		if fieldDigest(h, stored.Salt, name, value) != want {
			changed = append(changed, name)
		}
	}
	sort.Strings(changed)
	return changed
}
