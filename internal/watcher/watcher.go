// Package watcher monitors directories of verified-record files and
// triggers reverification when one changes.
//
// This is the storage-sync tamper check: records written by an external
// persistence layer are re-hashed on every modification, and any drift
// from the sealed fingerprint is reported.
package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"matchwitness/internal/match"
	"matchwitness/internal/verify"
)

// Event is the outcome of reverifying one changed record file.
type Event struct {
	Path      string
	RecordID  string
	Result    verify.ReverifyResult
	Timestamp time.Time
	Err       error
}

// Watcher monitors record directories.
type Watcher struct {
	fsWatcher     *fsnotify.Watcher
	service       *verify.Service
	participantID string
	debounce      time.Duration

	events chan Event

	// pending debounces rapid write bursts per path.
	pending   map[string]*time.Timer
	pendingMu sync.Mutex

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher that reverifies records for one participant.
func New(service *verify.Service, participantID string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsWatcher:     fsWatcher,
		service:       service,
		participantID: participantID,
		debounce:      debounce,
		events:        make(chan Event, 64),
		pending:       make(map[string]*time.Timer),
		done:          make(chan struct{}),
	}, nil
}

// Events returns the channel of reverification outcomes.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Watch adds a directory of record JSON files.
func (w *Watcher) Watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	return w.fsWatcher.Add(abs)
}

// Start begins the event loop.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop shuts the watcher down and waits for the loop to exit.
func (w *Watcher) Stop() error {
	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	defer close(w.events)

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "err", err)
		}
	}
}

// schedule arms (or re-arms) the per-path debounce timer so a record is
// only reverified once its file has settled.
func (w *Watcher) schedule(path string) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.pendingMu.Lock()
		delete(w.pending, path)
		w.pendingMu.Unlock()
		w.reverifyFile(path)
	})
}

func (w *Watcher) reverifyFile(path string) {
	event := Event{Path: path, Timestamp: time.Now().UTC()}

	data, err := os.ReadFile(path)
	if err != nil {
		event.Err = err
		w.emit(event)
		return
	}

	record, err := match.DecodeVerifiedRecord(data)
	if err != nil {
		event.Err = err
		w.emit(event)
		return
	}

	event.RecordID = record.ID
	event.Result = w.service.Reverify(record, w.participantID)
	if event.Result.ModificationDetected {
		slog.Warn("record modified after sealing",
			"record", record.ID, "path", path, "details", event.Result.Details)
	}
	w.emit(event)
}

func (w *Watcher) emit(e Event) {
	select {
	case w.events <- e:
	case <-w.done:
	}
}
