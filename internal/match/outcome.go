package match

import "math"

// ImpliedOutcome derives the outcome from the participant's perspective
// by comparing the two scores.
func ImpliedOutcome(side Side, homeScore, awayScore int) Outcome {
	own, opp := homeScore, awayScore
	if side == SideAway {
		own, opp = awayScore, homeScore
	}
	switch {
	case own > opp:
		return OutcomeWin
	case own < opp:
		return OutcomeLoss
	default:
		return OutcomeDraw
	}
}

// IsOutcomeConsistent reports whether the reported outcome matches the
// outcome implied by the scores.
func IsOutcomeConsistent(r *MatchRecord) bool {
	return r.Outcome == ImpliedOutcome(r.Side, r.HomeScore, r.AwayScore)
}

// OutcomeProbability estimates how probable the reported scoreline is for
// team A. This is an explicit heuristic, not a calibrated statistical
// model: a logistic curve over the score differential, sharpened slightly
// by duration (a lead held over a longer match implies a more certain
// favorite). The result is always in [0, 1] and monotonic in the
// differential.
func OutcomeProbability(teamA, teamB string, scoreA, scoreB, durationMin int) float64 {
	_ = teamA
	_ = teamB

	diff := float64(scoreA - scoreB)

	// Longer matches tighten the curve around the favorite.
	scale := 2.5
	if durationMin > 0 {
		scale = 2.5 * 90.0 / math.Max(float64(durationMin), 45.0)
	}

	p := 1.0 / (1.0 + math.Exp(-diff/scale))
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
