// Package match defines the data model for reported match outcomes.
//
// A MatchRecord is immutable once created. Everything derived from it
// (hashes, seals, proofs, validation results) is computed on demand and
// never mutates the record itself.
package match

import (
	"time"

	"github.com/google/uuid"
)

// Side identifies which team the participant played on.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// Outcome is the reported result from the participant's perspective.
type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// MatchRecord is a single reported match outcome.
type MatchRecord struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	HomeTeam    string    `json:"home_team"`
	AwayTeam    string    `json:"away_team"`
	HomeScore   int       `json:"home_score"`
	AwayScore   int       `json:"away_score"`
	Side        Side      `json:"side"`
	Goals       int       `json:"goals"`
	Assists     int       `json:"assists"`
	Outcome     Outcome   `json:"outcome"`
	DurationMin int       `json:"duration_min"`

	// Stats is the optional extended per-team statistics block.
	Stats *MatchStats `json:"stats,omitempty"`
}

// MatchStats holds extended per-team statistics for one match.
type MatchStats struct {
	Home TeamStats `json:"home"`
	Away TeamStats `json:"away"`
}

// TeamStats are the reported figures for one team.
type TeamStats struct {
	Goals           int     `json:"goals"`
	Assists         int     `json:"assists"`
	Shots           int     `json:"shots"`
	Passes          int     `json:"passes"`
	PassAccuracyPct float64 `json:"pass_accuracy_pct"`
	PossessionPct   float64 `json:"possession_pct"`
	Cards           int     `json:"cards"`
}

// NewMatchRecord creates a record with a fresh ID and creation timestamp.
func NewMatchRecord(homeTeam, awayTeam string, homeScore, awayScore int, side Side, goals, assists, durationMin int, outcome Outcome) MatchRecord {
	return MatchRecord{
		ID:          uuid.NewString(),
		CreatedAt:   time.Now().UTC(),
		HomeTeam:    homeTeam,
		AwayTeam:    awayTeam,
		HomeScore:   homeScore,
		AwayScore:   awayScore,
		Side:        side,
		Goals:       goals,
		Assists:     assists,
		Outcome:     outcome,
		DurationMin: durationMin,
	}
}

// TeamScore returns the score of the participant's own team.
func (r *MatchRecord) TeamScore() int {
	if r.Side == SideAway {
		return r.AwayScore
	}
	return r.HomeScore
}

// OpponentScore returns the score of the opposing team.
func (r *MatchRecord) OpponentScore() int {
	if r.Side == SideAway {
		return r.HomeScore
	}
	return r.AwayScore
}

// IntegrityHash is the fingerprint attached to a record at sealing time.
//
// InputHash covers the condition fields (teams, side, duration) and
// OutputHash the result fields (scores, goals, assists, outcome). The
// final Hash binds both together with the salt and the participant id.
// FieldDigests are salted per-field digests used to name mutated fields
// during reverification.
type IntegrityHash struct {
	Hash         string            `json:"hash"`
	InputHash    string            `json:"input_hash"`
	OutputHash   string            `json:"output_hash"`
	FieldDigests map[string]string `json:"field_digests"`
	Salt         string            `json:"salt"`
	Algorithm    string            `json:"algorithm"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Seal is a compact tamper-evidence token binding hash, timestamp and
// participant id with a deterministic integrity checksum. It is not a
// private-key signature.
type Seal string

// Proof is a compact shareable string sufficient for a third party to
// spot-check a record's headline result against its hash.
type Proof string

// VerifiedMatchRecord is a MatchRecord with its integrity artifacts.
// It is created once at recording time and re-evaluated, never re-created,
// on every reverification.
type VerifiedMatchRecord struct {
	MatchRecord

	Integrity         IntegrityHash `json:"integrity"`
	Seal              Seal          `json:"seal"`
	Proof             Proof         `json:"proof"`
	IntegrityVerified bool          `json:"integrity_verified"`
	LastVerified      time.Time     `json:"last_verified"`
}

// PlayerProfile is a statistical baseline computed from a participant's
// match history. It is derived state: recompute it whenever the history
// changes, never persist it.
type PlayerProfile struct {
	AvgGoals    float64 `json:"avg_goals"`
	AvgAssists  float64 `json:"avg_assists"`
	AvgDuration float64 `json:"avg_duration"`
	WinRate     float64 `json:"win_rate"`
	MaxGoals    int     `json:"max_goals"`
	MaxAssists  int     `json:"max_assists"`

	// Sample standard deviations (Bessel-corrected). Zero when the
	// history holds fewer than two matches.
	GoalsStddev    float64 `json:"goals_stddev"`
	AssistsStddev  float64 `json:"assists_stddev"`
	DurationStddev float64 `json:"duration_stddev"`

	Samples int `json:"samples"`
}
