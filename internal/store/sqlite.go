// Package store persists verified match records and serves match history.
//
// It implements the two collaborator contracts the integrity core
// consumes: a history provider and a verified-record persistence layer.
// Suspicious or invalid matches are stored like any other; the core
// annotates, it never blocks recording.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"matchwitness/internal/match"
)

// Schema for the match record store. Integrity artifacts are kept as a
// JSON column: they are opaque to queries and always read back whole.
const schema = `
CREATE TABLE IF NOT EXISTS records (
    id              TEXT PRIMARY KEY,
    participant_id  TEXT NOT NULL,
    created_at      INTEGER NOT NULL,
    home_team       TEXT NOT NULL,
    away_team       TEXT NOT NULL,
    home_score      INTEGER NOT NULL,
    away_score      INTEGER NOT NULL,
    side            TEXT NOT NULL,
    goals           INTEGER NOT NULL,
    assists         INTEGER NOT NULL,
    outcome         TEXT NOT NULL,
    duration_min    INTEGER NOT NULL,
    payload         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_participant ON records(participant_id, created_at);
`

// ErrNotFound indicates no record with the requested id.
var ErrNotFound = errors.New("store: record not found")

// Store is the SQLite-backed record store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at the given path and applies the
// schema.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveRecord persists a verified record for a participant. An existing
// record with the same id is replaced, which is how reverified copies are
// refreshed after a Reverify pass.
func (s *Store) SaveRecord(participantID string, v *match.VerifiedMatchRecord) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO records
		(id, participant_id, created_at, home_team, away_team, home_score, away_score, side, goals, assists, outcome, duration_min, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, participantID, v.CreatedAt.UnixNano(), v.HomeTeam, v.AwayTeam,
		v.HomeScore, v.AwayScore, string(v.Side), v.Goals, v.Assists,
		string(v.Outcome), v.DurationMin, string(payload),
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

// LoadRecord retrieves one verified record by id.
func (s *Store) LoadRecord(id string) (*match.VerifiedMatchRecord, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM records WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load record: %w", err)
	}
	return match.DecodeVerifiedRecord([]byte(payload))
}

// LoadRecords returns all verified records for a participant in creation
// order.
func (s *Store) LoadRecords(participantID string) ([]match.VerifiedMatchRecord, error) {
	rows, err := s.db.Query(`
		SELECT payload FROM records
		WHERE participant_id = ?
		ORDER BY created_at`, participantID)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	defer rows.Close()

	var records []match.VerifiedMatchRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		v, err := match.DecodeVerifiedRecord([]byte(payload))
		if err != nil {
			return nil, err
		}
		records = append(records, *v)
	}
	return records, rows.Err()
}

// LoadHistory returns the participant's prior matches in creation order,
// stripped of their integrity artifacts, for profile building.
func (s *Store) LoadHistory(participantID string) ([]match.MatchRecord, error) {
	records, err := s.LoadRecords(participantID)
	if err != nil {
		return nil, err
	}

	history := make([]match.MatchRecord, len(records))
	for i := range records {
		history[i] = records[i].MatchRecord
	}
	return history, nil
}
