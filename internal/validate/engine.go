// Package validate runs the six ordered rule layers over a reported match
// and produces a severity-weighted trust score with classified findings.
//
// Layers never short-circuit: all six always run so a report can show the
// complete finding list, and a statistical anomaly alone never invalidates
// a record. Malformed input never panics; it yields a synthetic critical
// issue and a zero score.
package validate

import (
	"fmt"
	"math"
	"time"

	"github.com/jonboulle/clockwork"

	"matchwitness/internal/match"
	"matchwitness/internal/profile"
)

// Config carries the rule thresholds and the fixed deduction constants.
// The deduction values are single fixed constants per tier, chosen from
// the documented ranges (critical 20-25, high 10-15, medium 5-10,
// warnings 2-8).
type Config struct {
	MaxTeamScore      int     // scores above this are implausible
	MaxGoals          int     // per-participant goals bound
	MaxAssists        int     // per-participant assists bound
	MinDurationMin    int     // shorter matches draw a warning
	MaxDurationMin    int     // longer matches draw a warning
	MaxRecordAge      time.Duration
	MaxGoalsPerMinute float64 // combined-goal rate ceiling
	PossessionTol     float64 // tolerance around a 100% possession sum

	DeductCritical int
	DeductHigh     int
	DeductMedium   int

	// WarningDeductions maps each warning code to its fixed deduction.
	// Codes absent from the map fall back to DefaultWarningDeduction.
	WarningDeductions map[WarningCode]int

	// Anomaly parameterizes the layer-5 statistical checks.
	Anomaly profile.Thresholds
}

// DefaultWarningDeduction applies to warning codes with no explicit entry.
const DefaultWarningDeduction = 5

// DefaultConfig returns the shipped thresholds and deduction constants.
func DefaultConfig() Config {
	return Config{
		MaxTeamScore:      50,
		MaxGoals:          10,
		MaxAssists:        8,
		MinDurationMin:    20,
		MaxDurationMin:    200,
		MaxRecordAge:      2 * 365 * 24 * time.Hour,
		MaxGoalsPerMinute: 0.1,
		PossessionTol:     1.0,
		DeductCritical:    25,
		DeductHigh:        15,
		DeductMedium:      7,
		WarningDeductions: map[WarningCode]int{
			WarnDurationRange:      5,
			WarnStaleDate:          3,
			WarnGoalDeviation:      8,
			WarnAssistDeviation:    8,
			WarnFormReversal:       8,
			WarnPerformanceSpike:   8,
			WarnImprobableStreak:   8,
			WarnPossessionMismatch: 5,
			WarnPassAccuracy:       4,
		},
		Anomaly: profile.DefaultThresholds(),
	}
}

// Engine evaluates match records. Construct one explicitly and pass it by
// handle; there is no hidden global instance.
type Engine struct {
	cfg   Config
	clock clockwork.Clock
}

// New creates an engine with the given thresholds.
func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, clock: clockwork.NewRealClock()}
}

// NewWithClock creates an engine with an injected clock for tests.
func NewWithClock(cfg Config, clock clockwork.Clock) *Engine {
	return &Engine{cfg: cfg, clock: clock}
}

// Evaluate runs all six layers. Stats may be nil (the record's embedded
// block is used when present); history may be empty, in which case the
// anomaly layer is skipped entirely.
func (e *Engine) Evaluate(r *match.MatchRecord, stats *match.MatchStats, history []match.MatchRecord) Result {
	res := Result{EvaluatedAt: e.clock.Now().UTC()}

	if issues := malformedIssues(r); len(issues) > 0 {
		res.Issues = issues
		res.Score = 0
		return res
	}

	if stats == nil {
		stats = r.Stats
	}

	e.layerScoreResult(r, &res)
	e.layerPerformanceBounds(r, &res)
	e.layerTiming(r, &res)
	e.layerPhysicalPlausibility(r, &res)
	e.layerStatisticalAnomaly(r, history, &res)
	e.layerStatsConsistency(r, stats, &res)

	res.Score = e.score(&res)
	res.IsValid = res.CriticalCount() == 0
	return res
}

// malformedIssues catches records the schema never saw because the caller
// built the struct directly. Any hit forces a zero score.
func malformedIssues(r *match.MatchRecord) []Issue {
	if r == nil {
		return []Issue{{
			Code:     CodeMalformedRecord,
			Severity: SeverityCritical,
			Message:  "record is nil",
		}}
	}

	var issues []Issue
	missing := func(field string) {
		issues = append(issues, Issue{
			Code:     CodeMalformedRecord,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("required field %q is missing or empty", field),
			Data:     map[string]any{"field": field},
		})
	}

	if r.ID == "" {
		missing("id")
	}
	if r.HomeTeam == "" {
		missing("home_team")
	}
	if r.AwayTeam == "" {
		missing("away_team")
	}
	if r.CreatedAt.IsZero() {
		missing("created_at")
	}
	if r.Side != match.SideHome && r.Side != match.SideAway {
		missing("side")
	}
	if r.Outcome != match.OutcomeWin && r.Outcome != match.OutcomeLoss && r.Outcome != match.OutcomeDraw {
		missing("outcome")
	}
	return issues
}

// Layer 1: score and result consistency.
func (e *Engine) layerScoreResult(r *match.MatchRecord, res *Result) {
	if r.HomeScore < 0 || r.AwayScore < 0 {
		res.addIssue(Issue{
			Code:     CodeNegativeScore,
			Severity: SeverityCritical,
			Message:  "team score is negative",
			Data:     map[string]any{"home_score": r.HomeScore, "away_score": r.AwayScore},
		})
	}
	if r.HomeScore > e.cfg.MaxTeamScore || r.AwayScore > e.cfg.MaxTeamScore {
		res.addIssue(Issue{
			Code:     CodeScoreBound,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("team score above plausible bound %d", e.cfg.MaxTeamScore),
			Data:     map[string]any{"home_score": r.HomeScore, "away_score": r.AwayScore},
		})
	}
	if r.Goals > r.TeamScore() {
		res.addIssue(Issue{
			Code:     CodeGoalsExceedTeam,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("participant goals %d exceed own team score %d", r.Goals, r.TeamScore()),
			Data:     map[string]any{"goals": r.Goals, "team_score": r.TeamScore()},
		})
	}
	if !match.IsOutcomeConsistent(r) {
		res.addIssue(Issue{
			Code:     CodeOutcomeMismatch,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("reported outcome %q contradicts scoreline %d-%d", r.Outcome, r.HomeScore, r.AwayScore),
		})
	}
}

// Layer 2: per-participant performance bounds.
func (e *Engine) layerPerformanceBounds(r *match.MatchRecord, res *Result) {
	if r.Goals < 0 || r.Goals > e.cfg.MaxGoals {
		res.addIssue(Issue{
			Code:     CodeGoalsBound,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("participant goals %d outside [0, %d]", r.Goals, e.cfg.MaxGoals),
		})
	}
	if r.Assists < 0 || r.Assists > e.cfg.MaxAssists {
		res.addIssue(Issue{
			Code:     CodeAssistsBound,
			Severity: SeverityHigh,
			Message:  fmt.Sprintf("participant assists %d outside [0, %d]", r.Assists, e.cfg.MaxAssists),
		})
	}
}

// Layer 3: timing.
func (e *Engine) layerTiming(r *match.MatchRecord, res *Result) {
	if r.DurationMin < 0 {
		res.addIssue(Issue{
			Code:     CodeNegativeDuration,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("duration %d minutes is negative", r.DurationMin),
		})
	} else if r.DurationMin < e.cfg.MinDurationMin || r.DurationMin > e.cfg.MaxDurationMin {
		res.addWarning(Warning{
			Code:           WarnDurationRange,
			Message:        fmt.Sprintf("duration %d minutes outside the usual [%d, %d] range", r.DurationMin, e.cfg.MinDurationMin, e.cfg.MaxDurationMin),
			Recommendation: "confirm the match length with both teams",
		})
	}

	now := e.clock.Now()
	if r.CreatedAt.After(now) {
		res.addIssue(Issue{
			Code:     CodeFutureDate,
			Severity: SeverityCritical,
			Message:  "record is dated in the future",
		})
	} else if now.Sub(r.CreatedAt) > e.cfg.MaxRecordAge {
		res.addWarning(Warning{
			Code:           WarnStaleDate,
			Message:        "record is more than two years old",
			Recommendation: "verify why the result is being reported this late",
		})
	}
}

// Layer 4: physical plausibility. The 0.1 goals/minute ceiling sits far
// above any real single-match rate; only fabricated figures reach it.
func (e *Engine) layerPhysicalPlausibility(r *match.MatchRecord, res *Result) {
	if r.DurationMin <= 0 {
		return
	}
	rate := float64(r.HomeScore+r.AwayScore) / float64(r.DurationMin)
	if rate > e.cfg.MaxGoalsPerMinute {
		res.addIssue(Issue{
			Code:     CodeGoalRate,
			Severity: SeverityCritical,
			Message:  fmt.Sprintf("combined goal rate %.3f/min above ceiling %.3f/min", rate, e.cfg.MaxGoalsPerMinute),
			Data:     map[string]any{"rate": rate},
		})
	}
}

// Layer 5: statistical anomaly. Anomalies alone never invalidate; an
// escalated deviation (twice the career maximum while z-flagged) is
// raised as a high-severity issue, everything else stays a warning.
func (e *Engine) layerStatisticalAnomaly(r *match.MatchRecord, history []match.MatchRecord, res *Result) {
	p, err := profile.Build(history)
	if err != nil {
		// No history, no baseline: the layer is skipped, not zeroed.
		return
	}

	for _, f := range profile.AnalyzeWith(e.cfg.Anomaly, r, p, history) {
		switch {
		case f.Escalated && f.Code == profile.FlagGoalDeviation:
			res.addIssue(Issue{
				Code:     CodeGoalAnomaly,
				Severity: SeverityHigh,
				Message:  f.Message,
				Data:     map[string]any{"z_score": round1(f.ZScore)},
			})
		case f.Escalated && f.Code == profile.FlagAssistDeviation:
			res.addIssue(Issue{
				Code:     CodeAssistAnomaly,
				Severity: SeverityHigh,
				Message:  f.Message,
				Data:     map[string]any{"z_score": round1(f.ZScore)},
			})
		default:
			res.addWarning(Warning{
				Code:           warningCodeFor(f.Code),
				Message:        f.Message,
				Recommendation: "review the participant's recent history before trusting this result",
			})
		}
	}
}

func warningCodeFor(code profile.FlagCode) WarningCode {
	switch code {
	case profile.FlagGoalDeviation:
		return WarnGoalDeviation
	case profile.FlagAssistDeviation:
		return WarnAssistDeviation
	case profile.FlagFormReversal:
		return WarnFormReversal
	case profile.FlagPerformanceSpike:
		return WarnPerformanceSpike
	default:
		return WarnImprobableStreak
	}
}

// Layer 6: embedded stats consistency.
func (e *Engine) layerStatsConsistency(r *match.MatchRecord, stats *match.MatchStats, res *Result) {
	if stats == nil {
		return
	}

	if stats.Home.Goals != r.HomeScore || stats.Away.Goals != r.AwayScore {
		res.addIssue(Issue{
			Code:     CodeStatsGoalMismatch,
			Severity: SeverityCritical,
			Message:  "team goals in the stats block contradict the record scoreline",
			Data: map[string]any{
				"stats_home": stats.Home.Goals, "stats_away": stats.Away.Goals,
				"home_score": r.HomeScore, "away_score": r.AwayScore,
			},
		})
	}

	for _, side := range []struct {
		name string
		ts   match.TeamStats
	}{{"home", stats.Home}, {"away", stats.Away}} {
		if side.ts.PassAccuracyPct < 0 || side.ts.PassAccuracyPct > 100 {
			res.addWarning(Warning{
				Code:           WarnPassAccuracy,
				Message:        fmt.Sprintf("%s pass accuracy %.1f%% outside [0, 100]", side.name, side.ts.PassAccuracyPct),
				Recommendation: "re-export the stats block from the match engine",
			})
		}
	}

	if sum := stats.Home.PossessionPct + stats.Away.PossessionPct; math.Abs(sum-100) > e.cfg.PossessionTol {
		res.addWarning(Warning{
			Code:           WarnPossessionMismatch,
			Message:        fmt.Sprintf("possession sums to %.1f%%, outside 100%%±%.0f", sum, e.cfg.PossessionTol),
			Recommendation: "re-export the stats block from the match engine",
		})
	}

	teamAssists := stats.Home.Assists
	if r.Side == match.SideAway {
		teamAssists = stats.Away.Assists
	}
	if r.Assists > teamAssists {
		res.addIssue(Issue{
			Code:     CodeAssistsExceedTeam,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("participant assists %d exceed team assists %d", r.Assists, teamAssists),
		})
	}
}

// score applies the fixed per-tier deductions and clamps to [0, 100].
func (e *Engine) score(res *Result) int {
	score := 100
	for _, issue := range res.Issues {
		switch issue.Severity {
		case SeverityCritical:
			score -= e.cfg.DeductCritical
		case SeverityHigh:
			score -= e.cfg.DeductHigh
		case SeverityMedium:
			score -= e.cfg.DeductMedium
		}
	}
	for _, w := range res.Warnings {
		if d, ok := e.cfg.WarningDeductions[w.Code]; ok {
			score -= d
		} else {
			score -= DefaultWarningDeduction
		}
	}

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func (r *Result) addIssue(i Issue)     { r.Issues = append(r.Issues, i) }
func (r *Result) addWarning(w Warning) { r.Warnings = append(r.Warnings, w) }

func round1(v float64) float64 { return math.Round(v*10) / 10 }
