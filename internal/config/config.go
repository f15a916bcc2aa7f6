// Package config handles configuration loading and validation for the
// matchwitness daemon and CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"matchwitness/internal/integrity"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version"`

	Validation ValidationConfig `toml:"validation"`
	Anomaly    AnomalyConfig    `toml:"anomaly"`
	Integrity  IntegrityConfig  `toml:"integrity"`
	Storage    StorageConfig    `toml:"storage"`
	Watch      WatchConfig      `toml:"watch"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ValidationConfig holds rule thresholds and deduction constants.
type ValidationConfig struct {
	// MaxTeamScore is the plausibility ceiling for a single team score.
	MaxTeamScore int `toml:"max_team_score"`

	// MaxGoals and MaxAssists bound per-participant figures.
	MaxGoals   int `toml:"max_goals"`
	MaxAssists int `toml:"max_assists"`

	// MinDurationMin/MaxDurationMin bound the warning-free duration range.
	MinDurationMin int `toml:"min_duration_min"`
	MaxDurationMin int `toml:"max_duration_min"`

	// MaxGoalsPerMinute is the combined-goal-rate ceiling.
	MaxGoalsPerMinute float64 `toml:"max_goals_per_minute"`

	// PossessionTolerance is the allowed drift around a 100% possession sum.
	PossessionTolerance float64 `toml:"possession_tolerance"`

	// Fixed deductions per issue severity tier.
	DeductCritical int `toml:"deduct_critical"`
	DeductHigh     int `toml:"deduct_high"`
	DeductMedium   int `toml:"deduct_medium"`
}

// AnomalyConfig holds statistical anomaly thresholds.
type AnomalyConfig struct {
	// ZScoreThreshold is the sigma bound for deviation candidates.
	ZScoreThreshold float64 `toml:"zscore_threshold"`

	// StreakLength is the minimum win run for the streak check.
	StreakLength int `toml:"streak_length"`

	// StreakProbability is the flagging bound for the implied
	// win-probability product.
	StreakProbability float64 `toml:"streak_probability"`
}

// IntegrityConfig selects the hashing strategy.
type IntegrityConfig struct {
	// Algorithm is "sha256", "fallback-nonsecure", or empty for
	// capability-based selection at startup.
	Algorithm string `toml:"algorithm"`
}

// StorageConfig holds persistence settings.
type StorageConfig struct {
	// Path is the SQLite database file.
	Path string `toml:"path"`
}

// WatchConfig holds the record-directory watcher settings.
type WatchConfig struct {
	// Paths are directories of verified-record JSON files to reverify
	// on change.
	Paths []string `toml:"paths"`

	// DebounceMs is how long a file must be stable before reverifying.
	DebounceMs int `toml:"debounce_ms"`

	// ParticipantID identifies whose records the watched files hold.
	ParticipantID string `toml:"participant_id"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// DefaultConfig returns the shipped defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Validation: ValidationConfig{
			MaxTeamScore:        50,
			MaxGoals:            10,
			MaxAssists:          8,
			MinDurationMin:      20,
			MaxDurationMin:      200,
			MaxGoalsPerMinute:   0.1,
			PossessionTolerance: 1.0,
			DeductCritical:      25,
			DeductHigh:          15,
			DeductMedium:        7,
		},
		Anomaly: AnomalyConfig{
			ZScoreThreshold:   3.0,
			StreakLength:      6,
			StreakProbability: 0.10,
		},
		Integrity: IntegrityConfig{
			Algorithm: "",
		},
		Storage: StorageConfig{
			Path: defaultStoragePath(),
		},
		Watch: WatchConfig{
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "matchwitness.db"
	}
	return filepath.Join(home, ".matchwitness", "matchwitness.db")
}

// Load reads a TOML config file over the defaults. A missing file is not
// an error: the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	v := c.Validation
	if v.MaxTeamScore <= 0 {
		return errors.New("config: max_team_score must be positive")
	}
	if v.MaxGoals <= 0 || v.MaxAssists <= 0 {
		return errors.New("config: participant bounds must be positive")
	}
	if v.MinDurationMin < 0 || v.MaxDurationMin <= v.MinDurationMin {
		return errors.New("config: duration range is inverted")
	}
	if v.MaxGoalsPerMinute <= 0 {
		return errors.New("config: max_goals_per_minute must be positive")
	}
	if v.DeductCritical < 20 || v.DeductCritical > 25 {
		return errors.New("config: deduct_critical must be in [20, 25]")
	}
	if v.DeductHigh < 10 || v.DeductHigh > 15 {
		return errors.New("config: deduct_high must be in [10, 15]")
	}
	if v.DeductMedium < 5 || v.DeductMedium > 10 {
		return errors.New("config: deduct_medium must be in [5, 10]")
	}

	if c.Anomaly.ZScoreThreshold <= 0 {
		return errors.New("config: zscore_threshold must be positive")
	}
	if c.Anomaly.StreakLength < 2 {
		return errors.New("config: streak_length must be at least 2")
	}
	if c.Anomaly.StreakProbability <= 0 || c.Anomaly.StreakProbability >= 1 {
		return errors.New("config: streak_probability must be in (0, 1)")
	}

	switch c.Integrity.Algorithm {
	case "", integrity.AlgorithmSHA256, integrity.AlgorithmFold:
	default:
		return fmt.Errorf("config: unknown integrity algorithm %q", c.Integrity.Algorithm)
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("config: unknown log format %q", c.Logging.Format)
	}

	return nil
}
