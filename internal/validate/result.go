package validate

import "time"

// Severity tiers for issues. Warnings are a separate, softer category.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
)

// IssueCode identifies a rule violation.
type IssueCode string

const (
	CodeMalformedRecord   IssueCode = "malformed_record"
	CodeNegativeScore     IssueCode = "negative_score"
	CodeScoreBound        IssueCode = "score_exceeds_bound"
	CodeGoalsExceedTeam   IssueCode = "goals_exceed_team_score"
	CodeOutcomeMismatch   IssueCode = "outcome_mismatch"
	CodeGoalsBound        IssueCode = "goals_exceed_bound"
	CodeAssistsBound      IssueCode = "assists_exceed_bound"
	CodeNegativeDuration  IssueCode = "negative_duration"
	CodeFutureDate        IssueCode = "future_date"
	CodeGoalRate          IssueCode = "unrealistic_goal_rate"
	CodeGoalAnomaly       IssueCode = "goal_anomaly"
	CodeAssistAnomaly     IssueCode = "assist_anomaly"
	CodeStatsGoalMismatch IssueCode = "stats_goal_mismatch"
	CodeAssistsExceedTeam IssueCode = "assists_exceed_team"
)

// WarningCode identifies a soft finding that never invalidates a record.
type WarningCode string

const (
	WarnDurationRange      WarningCode = "duration_out_of_range"
	WarnStaleDate          WarningCode = "stale_date"
	WarnGoalDeviation      WarningCode = "goal_deviation"
	WarnAssistDeviation    WarningCode = "assist_deviation"
	WarnFormReversal       WarningCode = "form_reversal"
	WarnPerformanceSpike   WarningCode = "performance_spike"
	WarnImprobableStreak   WarningCode = "improbable_streak"
	WarnPossessionMismatch WarningCode = "possession_mismatch"
	WarnPassAccuracy       WarningCode = "pass_accuracy_out_of_range"
)

// Issue is one rule violation found during evaluation.
type Issue struct {
	Code     IssueCode      `json:"code"`
	Severity Severity       `json:"severity"`
	Message  string         `json:"message"`
	Data     map[string]any `json:"data,omitempty"`
}

// Warning is a soft finding with a recommendation for the reporter.
type Warning struct {
	Code           WarningCode `json:"code"`
	Message        string      `json:"message"`
	Recommendation string      `json:"recommendation"`
}

// Result is the outcome of running all six validation layers.
type Result struct {
	// IsValid is exactly "no critical issue present". It is independent
	// of the numeric score.
	IsValid bool `json:"is_valid"`

	// Score is the severity-weighted trust score, clamped to [0, 100].
	Score int `json:"score"`

	Issues      []Issue   `json:"issues"`
	Warnings    []Warning `json:"warnings"`
	EvaluatedAt time.Time `json:"evaluated_at"`
}

// CriticalCount returns the number of critical issues.
func (r *Result) CriticalCount() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			n++
		}
	}
	return n
}

// Rating buckets for display.
type Rating string

const (
	RatingExcellent Rating = "Excellent"
	RatingGood      Rating = "Good"
	RatingFair      Rating = "Fair"
	RatingPoor      Rating = "Poor"
)

// RatingFor maps a trust score to its display bucket.
func RatingFor(score int) Rating {
	switch {
	case score >= 90:
		return RatingExcellent
	case score >= 75:
		return RatingGood
	case score >= 60:
		return RatingFair
	default:
		return RatingPoor
	}
}

// IsSuspicious applies the compound predicate: a result is suspicious when
// the score is below 60, OR any critical issue is present, OR two or more
// warnings fired together. The compound rule is authoritative; the <60
// "Poor" bucket is display-only and can disagree with it for a record
// carrying a single warning and a high score.
func IsSuspicious(r *Result) bool {
	return r.Score < suspiciousScore || r.CriticalCount() > 0 || len(r.Warnings) >= suspiciousWarnings
}

const (
	suspiciousScore    = 60
	suspiciousWarnings = 2
)
