package config

import "matchwitness/internal/validate"

// EngineConfig maps the validation and anomaly sections onto the
// validation engine's configuration. Warning deductions keep their
// shipped per-code constants.
func (c *Config) EngineConfig() validate.Config {
	cfg := validate.DefaultConfig()

	v := c.Validation
	cfg.MaxTeamScore = v.MaxTeamScore
	cfg.MaxGoals = v.MaxGoals
	cfg.MaxAssists = v.MaxAssists
	cfg.MinDurationMin = v.MinDurationMin
	cfg.MaxDurationMin = v.MaxDurationMin
	cfg.MaxGoalsPerMinute = v.MaxGoalsPerMinute
	cfg.PossessionTol = v.PossessionTolerance
	cfg.DeductCritical = v.DeductCritical
	cfg.DeductHigh = v.DeductHigh
	cfg.DeductMedium = v.DeductMedium

	cfg.Anomaly.ZScore = c.Anomaly.ZScoreThreshold
	cfg.Anomaly.StreakLength = c.Anomaly.StreakLength
	cfg.Anomaly.StreakProbability = c.Anomaly.StreakProbability

	return cfg
}
