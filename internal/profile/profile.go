// Package profile builds statistical baselines from a participant's match
// history and scores how unusual a new match's figures are.
//
// A profile is derived state. It must be recomputed whenever the history
// changes and is never persisted on its own.
package profile

import (
	"errors"
	"math"

	"matchwitness/internal/match"
)

// Thresholds for anomaly detection.
const (
	// ZScoreThreshold is the deviation, in standard deviations, above
	// which a stat becomes a candidate flag. The flag is only raised if
	// the value also breaks the participant's career maximum.
	ZScoreThreshold = 3.0

	// EscalationFactor escalates a deviation flag when the value reaches
	// this multiple of the career maximum.
	EscalationFactor = 2.0

	// FormReversalWinRate is the career win rate below which a reported
	// win counts as a form reversal.
	FormReversalWinRate = 0.30

	// SpikeFactor flags a performance spike when goals AND assists both
	// reach this multiple of their career averages.
	SpikeFactor = 2.0

	// StreakLength is the minimum run of consecutive wins considered for
	// the improbable-streak check.
	StreakLength = 6

	// StreakProbability is the implied win-probability product below
	// which a qualifying streak is flagged.
	StreakProbability = 0.10
)

// ErrNoHistory indicates an empty history. Callers must skip anomaly
// checks entirely rather than fall back to a zero profile.
var ErrNoHistory = errors.New("profile: empty match history")

// Thresholds parameterizes anomaly detection. The zero value is not
// usable; start from DefaultThresholds.
type Thresholds struct {
	ZScore              float64
	EscalationFactor    float64
	FormReversalWinRate float64
	SpikeFactor         float64
	StreakLength        int
	StreakProbability   float64
}

// DefaultThresholds returns the shipped detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ZScore:              ZScoreThreshold,
		EscalationFactor:    EscalationFactor,
		FormReversalWinRate: FormReversalWinRate,
		SpikeFactor:         SpikeFactor,
		StreakLength:        StreakLength,
		StreakProbability:   StreakProbability,
	}
}

// FlagCode identifies a detected anomaly pattern.
type FlagCode string

const (
	FlagGoalDeviation    FlagCode = "goal_deviation"
	FlagAssistDeviation  FlagCode = "assist_deviation"
	FlagFormReversal     FlagCode = "form_reversal"
	FlagPerformanceSpike FlagCode = "performance_spike"
	FlagImprobableStreak FlagCode = "improbable_streak"
)

// Flag is one detected anomaly.
type Flag struct {
	Code    FlagCode
	Message string

	// ZScore is the deviation in sigmas; zero for pattern flags that do
	// not use the z-score path.
	ZScore float64

	// Escalated marks an extreme deviation (value at or beyond
	// EscalationFactor times the career maximum).
	Escalated bool
}

// Build computes the statistical baseline for a history of prior matches.
// The history is taken in the caller's insertion order; every figure here
// is order-independent. Standard deviations use the Bessel-corrected
// sample variance and are zero for histories shorter than two matches.
func Build(history []match.MatchRecord) (*match.PlayerProfile, error) {
	if len(history) == 0 {
		return nil, ErrNoHistory
	}

	n := float64(len(history))
	p := &match.PlayerProfile{Samples: len(history)}

	var wins int
	for _, m := range history {
		p.AvgGoals += float64(m.Goals)
		p.AvgAssists += float64(m.Assists)
		p.AvgDuration += float64(m.DurationMin)
		if m.Goals > p.MaxGoals {
			p.MaxGoals = m.Goals
		}
		if m.Assists > p.MaxAssists {
			p.MaxAssists = m.Assists
		}
		if m.Outcome == match.OutcomeWin {
			wins++
		}
	}
	p.AvgGoals /= n
	p.AvgAssists /= n
	p.AvgDuration /= n
	p.WinRate = float64(wins) / n

	if len(history) > 1 {
		var sg, sa, sd float64
		for _, m := range history {
			sg += sq(float64(m.Goals) - p.AvgGoals)
			sa += sq(float64(m.Assists) - p.AvgAssists)
			sd += sq(float64(m.DurationMin) - p.AvgDuration)
		}
		p.GoalsStddev = math.Sqrt(sg / (n - 1))
		p.AssistsStddev = math.Sqrt(sa / (n - 1))
		p.DurationStddev = math.Sqrt(sd / (n - 1))
	}

	return p, nil
}

func sq(x float64) float64 { return x * x }

// Deviation returns the z-score of value against the baseline. When the
// standard deviation is zero the z-path is undefined: the result is zero,
// never NaN or infinite, and callers fall back to the career-max gate.
func Deviation(value, mean, stddev float64) float64 {
	if stddev == 0 {
		return 0
	}
	return (value - mean) / stddev
}

// Analyze flags anomalous figures in a new match against the baseline
// using the default thresholds. The history is the same sequence the
// profile was built from and is only consulted for the streak check.
func Analyze(r *match.MatchRecord, p *match.PlayerProfile, history []match.MatchRecord) []Flag {
	return AnalyzeWith(DefaultThresholds(), r, p, history)
}

// AnalyzeWith is Analyze with caller-supplied thresholds.
func AnalyzeWith(t Thresholds, r *match.MatchRecord, p *match.PlayerProfile, history []match.MatchRecord) []Flag {
	var flags []Flag

	if f, ok := deviationFlag(t, FlagGoalDeviation, "goals", float64(r.Goals), p.AvgGoals, p.GoalsStddev, p.MaxGoals); ok {
		flags = append(flags, f)
	}
	if f, ok := deviationFlag(t, FlagAssistDeviation, "assists", float64(r.Assists), p.AvgAssists, p.AssistsStddev, p.MaxAssists); ok {
		flags = append(flags, f)
	}

	if r.Outcome == match.OutcomeWin && p.WinRate < t.FormReversalWinRate {
		flags = append(flags, Flag{
			Code:    FlagFormReversal,
			Message: "reported win against a sub-30% career win rate",
		})
	}

	if p.AvgGoals > 0 && p.AvgAssists > 0 &&
		float64(r.Goals) >= t.SpikeFactor*p.AvgGoals &&
		float64(r.Assists) >= t.SpikeFactor*p.AvgAssists {
		flags = append(flags, Flag{
			Code:    FlagPerformanceSpike,
			Message: "goals and assists both at twice the career average",
		})
	}

	if improbableStreak(t, history, r) {
		flags = append(flags, Flag{
			Code:    FlagImprobableStreak,
			Message: "six or more consecutive wins with a very low implied probability",
		})
	}

	return flags
}

// deviationFlag raises a flag only when the z-score exceeds the threshold
// AND the value breaks the career maximum. A single extreme value that
// does not set a new career record is not flagged. With a zero stddev the
// z-path is skipped and only the career-max gate applies.
func deviationFlag(t Thresholds, code FlagCode, stat string, value, mean, stddev float64, careerMax int) (Flag, bool) {
	exceedsMax := value > float64(careerMax)

	if stddev == 0 {
		if value != mean && exceedsMax {
			return Flag{
				Code:      code,
				Message:   stat + " beyond career maximum with no baseline spread",
				Escalated: value >= t.EscalationFactor*float64(careerMax),
			}, true
		}
		return Flag{}, false
	}

	z := Deviation(value, mean, stddev)
	if z > t.ZScore && exceedsMax {
		return Flag{
			Code:      code,
			Message:   stat + " far above the historical baseline",
			ZScore:    z,
			Escalated: value >= t.EscalationFactor*float64(careerMax),
		}, true
	}
	return Flag{}, false
}

// improbableStreak looks for a run of StreakLength consecutive wins,
// including the new match, whose combined implied win probability falls
// below StreakProbability. The history order is caller-defined, so the
// new match may adjoin either end: both junctions are checked and either
// qualifying run raises the flag. The per-match probability comes from
// the OutcomeProbability heuristic over the match's own scoreline.
func improbableStreak(t Thresholds, history []match.MatchRecord, r *match.MatchRecord) bool {
	if r.Outcome != match.OutcomeWin {
		return false
	}

	appended := make([]match.MatchRecord, 0, len(history)+1)
	appended = append(appended, history...)
	appended = append(appended, *r)

	prepended := make([]match.MatchRecord, 0, len(history)+1)
	prepended = append(prepended, *r)
	prepended = append(prepended, history...)

	return streakInSequence(t, appended) || streakInSequence(t, prepended)
}

// streakInSequence scans contiguous win runs in one candidate ordering.
func streakInSequence(t Thresholds, seq []match.MatchRecord) bool {
	run := 0
	product := 1.0
	for _, m := range seq {
		if m.Outcome != match.OutcomeWin {
			run = 0
			product = 1.0
			continue
		}
		run++
		own, opp := m.HomeScore, m.AwayScore
		if m.Side == match.SideAway {
			own, opp = m.AwayScore, m.HomeScore
		}
		product *= match.OutcomeProbability(m.HomeTeam, m.AwayTeam, own, opp, m.DurationMin)
		if run >= t.StreakLength && product < t.StreakProbability {
			return true
		}
	}
	return false
}
