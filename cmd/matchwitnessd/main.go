// Command matchwitnessd runs the match-integrity daemon: it watches
// directories of verified-record files and reverifies each record when
// its file changes, flagging post-hoc modification.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"matchwitness/internal/config"
	"matchwitness/internal/integrity"
	"matchwitness/internal/logging"
	"matchwitness/internal/store"
	"matchwitness/internal/validate"
	"matchwitness/internal/verify"
	"matchwitness/internal/watcher"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	versionFlag := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("matchwitnessd %s\n", version)
		os.Exit(0)
	}

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "matchwitnessd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format, "matchwitnessd", os.Stderr)

	hasher, err := integrity.SelectHasher(cfg.Integrity.Algorithm)
	if err != nil {
		return err
	}
	if hasher.Algorithm() == integrity.AlgorithmFold {
		logger.Warn("running with the non-secure fallback digest; records are lower trust")
	}

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	service := verify.New(hasher, validate.New(cfg.EngineConfig()))

	w, err := watcher.New(service, cfg.Watch.ParticipantID, time.Duration(cfg.Watch.DebounceMs)*time.Millisecond)
	if err != nil {
		return err
	}
	for _, dir := range cfg.Watch.Paths {
		if err := w.Watch(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		logger.Info("watching record directory", "dir", dir)
	}
	w.Start()
	defer w.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case sig := <-sigCh:
			logger.Info("shutting down", "signal", sig.String())
			return nil
		case ev, ok := <-w.Events():
			if !ok {
				return nil
			}
			handleEvent(logger, db, cfg.Watch.ParticipantID, ev)
		}
	}
}

// handleEvent records the reverification outcome. Tampered records stay
// in the store with their flags refreshed; annotation, not removal.
func handleEvent(logger *slog.Logger, db *store.Store, participantID string, ev watcher.Event) {
	if ev.Err != nil {
		logger.Error("reverify failed", "path", ev.Path, "err", ev.Err)
		return
	}

	stored, err := db.LoadRecord(ev.RecordID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Warn("reverified record is not in the store", "record", ev.RecordID, "path", ev.Path)
		return
	}
	if err != nil {
		logger.Error("load record", "record", ev.RecordID, "err", err)
		return
	}

	stored.IntegrityVerified = ev.Result.StillValid
	stored.LastVerified = ev.Timestamp
	if err := db.SaveRecord(participantID, stored); err != nil {
		logger.Error("save record", "record", ev.RecordID, "err", err)
		return
	}

	logger.Info("record reverified",
		"record", ev.RecordID,
		"still_valid", ev.Result.StillValid,
		"modified", ev.Result.ModificationDetected)
}
