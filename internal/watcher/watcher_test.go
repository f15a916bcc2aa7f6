package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matchwitness/internal/integrity"
	"matchwitness/internal/match"
	"matchwitness/internal/validate"
	"matchwitness/internal/verify"
)

const testParticipant = "player-7"

func newTestWatcher(t *testing.T, dir string) *Watcher {
	t.Helper()
	service := verify.New(integrity.SHA256Hasher{}, validate.New(validate.DefaultConfig()))
	w, err := New(service, testParticipant, 50*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, w.Watch(dir))
	w.Start()
	t.Cleanup(func() { w.Stop() })
	return w
}

func sealedRecordJSON(t *testing.T, mutate func(*match.VerifiedMatchRecord)) []byte {
	t.Helper()
	service := verify.New(integrity.SHA256Hasher{}, validate.New(validate.DefaultConfig()))

	r := match.NewMatchRecord("Rovers", "United", 2, 3, match.SideAway, 1, 1, 90, match.OutcomeWin)
	v, err := service.ApplyVerification(&r, testParticipant)
	require.NoError(t, err)
	if mutate != nil {
		mutate(&v)
	}

	data, err := match.EncodeRecord(&v)
	require.NoError(t, err)
	return data
}

func waitForEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a watcher event")
		return Event{}
	}
}

func TestWatcherReverifiesCleanRecord(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	data := sealedRecordJSON(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.json"), data, 0644))

	ev := waitForEvent(t, w)
	require.NoError(t, ev.Err)
	assert.NotEmpty(t, ev.RecordID)
	assert.True(t, ev.Result.StillValid)
	assert.False(t, ev.Result.ModificationDetected)
}

func TestWatcherFlagsTamperedRecord(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	data := sealedRecordJSON(t, func(v *match.VerifiedMatchRecord) {
		v.HomeScore = 5
	})
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.json"), data, 0644))

	ev := waitForEvent(t, w)
	require.NoError(t, ev.Err)
	assert.False(t, ev.Result.StillValid)
	assert.True(t, ev.Result.ModificationDetected)
	assert.NotEmpty(t, ev.Result.Details)
}

func TestWatcherIgnoresNonJSONFiles(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.json"), sealedRecordJSON(t, nil), 0644))

	// Only the JSON write produces an event.
	ev := waitForEvent(t, w)
	assert.Equal(t, filepath.Join(dir, "rec.json"), ev.Path)
}

func TestWatcherReportsUnreadableRecord(t *testing.T) {
	dir := t.TempDir()
	w := newTestWatcher(t, dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "rec.json"), []byte("{broken"), 0644))

	ev := waitForEvent(t, w)
	assert.Error(t, ev.Err)
}
