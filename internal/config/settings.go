package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Settings tunes the odds calculator.
type Settings struct {
	RunCount int `env:"ODDS_RUN_COUNT" envDefault:"1000"`
	// ShortCircuitRatio skips simulation when one side's score is this many
	// times the other's. Zero disables it.
	ShortCircuitRatio float64 `env:"ODDS_SHORT_CIRCUIT_RATIO" envDefault:"10"`
	// ReductionRatio and ReductionDivisor shrink the run count of lopsided
	// matchups: runs / (ratio * divisor). Zero ratio disables it.
	ReductionRatio   float64 `env:"ODDS_REDUCTION_RATIO" envDefault:"2"`
	ReductionDivisor float64 `env:"ODDS_REDUCTION_DIVISOR" envDefault:"5"`
	// TimeBudgetPercent scales the run count of time-constrained requests.
	TimeBudgetPercent float64 `env:"ODDS_TIME_BUDGET_PERCENT" envDefault:"25"`
	MaxRounds         int     `env:"ODDS_MAX_ROUNDS" envDefault:"0"`
	AAFire            bool    `env:"ODDS_AA_FIRE" envDefault:"true"`
	AAStrength        int     `env:"ODDS_AA_STRENGTH" envDefault:"1"`
	Workers           int     `env:"ODDS_WORKERS" envDefault:"8"`
	Seed              int64   `env:"ODDS_SEED" envDefault:"0"`
}

// Server configures cmd/oddsd.
type Server struct {
	Addr          string `env:"ODDS_ADDR" envDefault:":8090"`
	ConfigDir     string `env:"ODDS_CONFIG_DIR" envDefault:"assets"`
	LogLevel      string `env:"ODDS_LOG_LEVEL" envDefault:"info"`
	OTelEndpoint  string `env:"ODDS_OTEL_ENDPOINT"`
	ProgressEvery int    `env:"ODDS_PROGRESS_EVERY" envDefault:"100"`
	Settings      Settings
}

// DefaultSettings returns the envDefault values without reading the
// environment.
func DefaultSettings() Settings {
	var s Settings
	// Parsing an empty environment only applies defaults and cannot fail.
	_ = env.ParseWithOptions(&s, env.Options{Environment: map[string]string{}})
	return s
}

// ParseSettings loads calculator settings from environment variables.
func ParseSettings() (Settings, error) {
	var s Settings
	if err := env.Parse(&s); err != nil {
		return Settings{}, fmt.Errorf("parse env: %w", err)
	}
	return s, s.Validate()
}

// ParseServer loads service settings from environment variables.
func ParseServer() (Server, error) {
	var s Server
	if err := env.Parse(&s); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return s, s.Settings.Validate()
}

// Validate rejects settings the calculator cannot honour.
func (s Settings) Validate() error {
	switch {
	case s.RunCount < 1:
		return fmt.Errorf("run count %d: must be positive", s.RunCount)
	case s.ShortCircuitRatio < 0 || (s.ShortCircuitRatio > 0 && s.ShortCircuitRatio <= 1):
		return fmt.Errorf("short circuit ratio %.2f: must be 0 or greater than 1", s.ShortCircuitRatio)
	case s.ReductionRatio < 0:
		return fmt.Errorf("reduction ratio %.2f: must not be negative", s.ReductionRatio)
	case s.ReductionRatio > 0 && s.ReductionDivisor <= 0:
		return fmt.Errorf("reduction divisor %.2f: must be positive", s.ReductionDivisor)
	case s.TimeBudgetPercent <= 0 || s.TimeBudgetPercent > 100:
		return fmt.Errorf("time budget %.1f%%: must be in (0, 100]", s.TimeBudgetPercent)
	case s.MaxRounds < 0:
		return fmt.Errorf("max rounds %d: must not be negative", s.MaxRounds)
	case s.Workers < 1:
		return fmt.Errorf("workers %d: must be positive", s.Workers)
	}
	return nil
}
