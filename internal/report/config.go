package report

import (
	"encoding/json"
	"errors"
	"os"

	"dwhmon/internal/aggregate"
	"dwhmon/internal/reconcile"
	"dwhmon/internal/temporal"
	dErrors "dwhmon/pkg/domain-errors"
)

// Config is the complete rule set a report run executes under. All three
// sections are validated together at load time; a run never starts with a
// partially valid configuration.
type Config struct {
	Rules       reconcile.Rules    `json:"rules"`
	Dates       temporal.Policy    `json:"dates"`
	Aggregation aggregate.Settings `json:"aggregation"`
}

// DefaultConfig returns the built-in rule set.
func DefaultConfig() Config {
	return Config{
		Rules:       reconcile.DefaultRules(),
		Dates:       temporal.DefaultPolicy(),
		Aggregation: aggregate.DefaultSettings(),
	}
}

// LoadConfig reads a JSON rules file over the defaults. An empty path yields
// the defaults; a present but unreadable or invalid file is a fatal
// configuration error, never a silent fallback.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, dErrors.Wrap(err, dErrors.CodeConfig, "rules file not found")
		}
		return Config{}, dErrors.Wrap(err, dErrors.CodeConfig, "read rules file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, dErrors.Wrap(err, dErrors.CodeConfig, "parse rules file")
	}

	return cfg, cfg.Validate()
}

// Validate checks every section and their cross-section consistency.
func (c Config) Validate() error {
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	if err := c.Dates.Validate(); err != nil {
		return err
	}
	return c.Aggregation.Validate()
}
