package verify

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchwitness/internal/integrity"
	"matchwitness/internal/match"
	"matchwitness/internal/validate"
)

const testParticipant = "player-7"

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestService() *Service {
	clock := clockwork.NewFakeClockAt(testNow)
	engine := validate.NewWithClock(validate.DefaultConfig(), clock)
	return NewWithClock(integrity.SHA256Hasher{}, engine, clock)
}

func testRecord() match.MatchRecord {
	return match.MatchRecord{
		ID:          "rec-001",
		CreatedAt:   testNow.Add(-24 * time.Hour),
		HomeTeam:    "Rovers",
		AwayTeam:    "United",
		HomeScore:   2,
		AwayScore:   3,
		Side:        match.SideAway,
		Goals:       1,
		Assists:     1,
		Outcome:     match.OutcomeWin,
		DurationMin: 90,
	}
}

func TestApplyVerification(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)

	assert.Equal(t, r.ID, v.ID)
	assert.NotEmpty(t, v.Integrity.Hash)
	assert.NotEmpty(t, v.Integrity.Salt)
	assert.Equal(t, integrity.AlgorithmSHA256, v.Integrity.Algorithm)
	assert.NotEmpty(t, v.Seal)
	assert.NotEmpty(t, v.Proof)
	assert.True(t, v.IntegrityVerified)
	assert.Equal(t, testNow, v.LastVerified)
}

func TestApplyVerificationNilRecord(t *testing.T) {
	s := newTestService()
	_, err := s.ApplyVerification(nil, testParticipant)
	require.Error(t, err)
}

func TestReverifyUnmodifiedRecord(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)

	res := s.Reverify(&v, testParticipant)
	assert.True(t, res.StillValid)
	assert.True(t, res.HashMatches)
	assert.True(t, res.SealMatches)
	assert.True(t, res.ProofMatches)
	assert.False(t, res.ModificationDetected)
	assert.Empty(t, res.Details)
}

func TestReverifyDetectsScoreMutation(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)

	// A losing player edits the scoreboard after sealing.
	v.HomeScore = 4

	res := s.Reverify(&v, testParticipant)
	assert.False(t, res.StillValid)
	assert.False(t, res.HashMatches)
	assert.True(t, res.ModificationDetected)
	// The seal binds the stored hash, which was not touched.
	assert.True(t, res.SealMatches)
	// The proof embeds the scoreline, so it breaks too.
	assert.False(t, res.ProofMatches)

	joined := strings.Join(res.Details, "\n")
	assert.Contains(t, joined, "home_score", "details must name the mutated field")
	assert.Contains(t, joined, "result fields")
	assert.NotContains(t, joined, "condition fields")
}

func TestReverifyDetectsConditionMutation(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)

	v.DurationMin = 45

	res := s.Reverify(&v, testParticipant)
	assert.False(t, res.StillValid)

	joined := strings.Join(res.Details, "\n")
	assert.Contains(t, joined, "condition fields")
	assert.Contains(t, joined, "duration_min")
}

func TestReverifyWrongParticipant(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)

	res := s.Reverify(&v, "player-9")
	assert.False(t, res.StillValid)
	assert.False(t, res.HashMatches, "the hash binds the participant id")
	assert.False(t, res.SealMatches)
}

func TestReverifyUnknownAlgorithm(t *testing.T) {
	s := newTestService()
	r := testRecord()

	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)
	v.Integrity.Algorithm = "md5"

	res := s.Reverify(&v, testParticipant)
	assert.False(t, res.StillValid)
	assert.True(t, res.ModificationDetected)
	require.NotEmpty(t, res.Details)
	assert.Contains(t, res.Details[0], "unknown algorithm")
}

func TestReverifyFallbackAlgorithmRecord(t *testing.T) {
	// A record sealed in degraded mode reverifies with the same fold
	// digest, selected from the artifact's recorded algorithm.
	clock := clockwork.NewFakeClockAt(testNow)
	engine := validate.NewWithClock(validate.DefaultConfig(), clock)
	s := NewWithClock(integrity.FoldHasher{}, engine, clock)

	r := testRecord()
	v, err := s.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)
	require.Equal(t, integrity.AlgorithmFold, v.Integrity.Algorithm)
	assert.True(t, IsDegraded(&v))

	// The reverifying service runs SHA-256 by default; the stored
	// algorithm must win.
	res := newTestService().Reverify(&v, testParticipant)
	assert.True(t, res.StillValid)
}

func TestValidateMatch(t *testing.T) {
	s := newTestService()
	r := testRecord()

	res := s.ValidateMatch(&r, nil, nil)
	assert.True(t, res.IsValid)
	assert.Equal(t, 100, res.Score)
}

func TestBatchReportPreservesOrder(t *testing.T) {
	s := newTestService()

	var records []match.VerifiedMatchRecord
	for i := 0; i < 20; i++ {
		r := testRecord()
		r.ID = fmt.Sprintf("rec-%03d", i)
		v, err := s.ApplyVerification(&r, testParticipant)
		require.NoError(t, err)
		records = append(records, v)
	}

	reports := s.BatchReport(records, testParticipant, nil)
	require.Len(t, reports, len(records))
	for i, rep := range reports {
		require.NotNil(t, rep)
		assert.Equal(t, fmt.Sprintf("rec-%03d", i), rep.RecordID)
	}
}

func TestBatchReportIsolatesBadRecords(t *testing.T) {
	s := newTestService()

	good := testRecord()
	v, err := s.ApplyVerification(&good, testParticipant)
	require.NoError(t, err)

	// A tampered sibling never disturbs the clean record's slot.
	bad := v
	bad.ID = "rec-bad"
	bad.AwayScore = 9

	reports := s.BatchReport([]match.VerifiedMatchRecord{v, bad}, testParticipant, nil)
	require.Len(t, reports, 2)

	assert.Equal(t, good.ID, reports[0].RecordID)
	assert.True(t, reports[0].Reverify.StillValid)

	assert.Equal(t, "rec-bad", reports[1].RecordID)
	assert.False(t, reports[1].Reverify.StillValid)
	assert.True(t, reports[1].Reverify.ModificationDetected)
}
