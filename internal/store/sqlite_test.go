package store

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchwitness/internal/match"
)

const testParticipant = "player-7"

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "matchwitness.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func verifiedRecord(id string, createdAt time.Time, goals int, outcome match.Outcome) match.VerifiedMatchRecord {
	home, away := 2, 1
	if outcome == match.OutcomeLoss {
		home, away = 1, 2
	}
	return match.VerifiedMatchRecord{
		MatchRecord: match.MatchRecord{
			ID:          id,
			CreatedAt:   createdAt,
			HomeTeam:    "Rovers",
			AwayTeam:    "United",
			HomeScore:   home,
			AwayScore:   away,
			Side:        match.SideHome,
			Goals:       goals,
			Outcome:     outcome,
			DurationMin: 90,
		},
		Integrity: match.IntegrityHash{
			Hash:      "aabbcc",
			Salt:      "00ff",
			Algorithm: "sha256",
		},
		Seal:              match.Seal("payload.mac"),
		Proof:             match.Proof("MW1:" + id + ":aabbcc:2-1"),
		IntegrityVerified: true,
	}
}

func TestSaveAndLoadRecord(t *testing.T) {
	s := openTestStore(t)

	v := verifiedRecord("rec-001", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1, match.OutcomeWin)
	require.NoError(t, s.SaveRecord(testParticipant, &v))

	back, err := s.LoadRecord("rec-001")
	require.NoError(t, err)
	assert.Equal(t, v.ID, back.ID)
	assert.Equal(t, v.Integrity.Hash, back.Integrity.Hash)
	assert.Equal(t, v.Seal, back.Seal)
	assert.Equal(t, v.Proof, back.Proof)
	assert.True(t, back.IntegrityVerified)
}

func TestLoadRecordNotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadRecord("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRecordReplacesExisting(t *testing.T) {
	s := openTestStore(t)

	v := verifiedRecord("rec-001", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1, match.OutcomeWin)
	require.NoError(t, s.SaveRecord(testParticipant, &v))

	v.IntegrityVerified = false
	v.LastVerified = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveRecord(testParticipant, &v))

	back, err := s.LoadRecord("rec-001")
	require.NoError(t, err)
	assert.False(t, back.IntegrityVerified, "a re-save must replace the stored copy")

	records, err := s.LoadRecords(testParticipant)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestLoadRecordsOrderedByCreation(t *testing.T) {
	s := openTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order; reads must come back in creation order.
	for _, i := range []int{2, 0, 1} {
		v := verifiedRecord(fmt.Sprintf("rec-%03d", i), base.Add(time.Duration(i)*time.Hour), i, match.OutcomeWin)
		require.NoError(t, s.SaveRecord(testParticipant, &v))
	}

	records, err := s.LoadRecords(testParticipant)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for i, r := range records {
		assert.Equal(t, fmt.Sprintf("rec-%03d", i), r.ID)
	}
}

func TestLoadRecordsScopedToParticipant(t *testing.T) {
	s := openTestStore(t)

	mine := verifiedRecord("rec-mine", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1, match.OutcomeWin)
	theirs := verifiedRecord("rec-theirs", time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC), 0, match.OutcomeLoss)
	require.NoError(t, s.SaveRecord(testParticipant, &mine))
	require.NoError(t, s.SaveRecord("player-9", &theirs))

	records, err := s.LoadRecords(testParticipant)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "rec-mine", records[0].ID)
}

func TestLoadHistoryStripsIntegrityArtifacts(t *testing.T) {
	s := openTestStore(t)

	v := verifiedRecord("rec-001", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1, match.OutcomeWin)
	require.NoError(t, s.SaveRecord(testParticipant, &v))

	history, err := s.LoadHistory(testParticipant)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "rec-001", history[0].ID)
	assert.Equal(t, 1, history[0].Goals)
}

func TestOpenCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "matchwitness.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	v := verifiedRecord("rec-001", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), 1, match.OutcomeWin)
	assert.NoError(t, s.SaveRecord(testParticipant, &v))
}
