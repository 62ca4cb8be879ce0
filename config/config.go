// Package config loads CLI configuration files, applying the engine's
// documented defaults for anything a file leaves unset.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default carries the documented conventions: 0.1% commission and
// slippage, 2% annual risk-free rate and 252 trading periods per year
func Default() *Config {
	return &Config{
		DataDirectory:  "./data",
		TimeFormat:     "2006-01-02 15:04:05",
		InitialCapital: 10000,
		CommissionRate: 0.001,
		Slippage:       0.001,
		RiskFreeRate:   0.02,
		PeriodsPerYear: 252,
		Database: DatabaseConfig{
			Path: "./gobacktester.db",
		},
	}
}

// ReadConfigFromFile loads and validates the config at path. JSON, YAML and
// TOML are accepted; file values override the defaults.
func ReadConfigFromFile(path string) (*Config, error) {
	defaults := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("data-directory", defaults.DataDirectory)
	v.SetDefault("time-format", defaults.TimeFormat)
	v.SetDefault("initial-capital", defaults.InitialCapital)
	v.SetDefault("commission-rate", defaults.CommissionRate)
	v.SetDefault("slippage", defaults.Slippage)
	v.SetDefault("risk-free-rate", defaults.RiskFreeRate)
	v.SetDefault("periods-per-year", defaults.PeriodsPerYear)
	v.SetDefault("database.path", defaults.Database.Path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config %q: %w", path, err)
	}
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot honour
func (c *Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: %v", errUnsetCapital, c.InitialCapital)
	}
	if c.CommissionRate < 0 || c.Slippage < 0 {
		return fmt.Errorf("commission %v and slippage %v cannot be negative", c.CommissionRate, c.Slippage)
	}
	if c.PeriodsPerYear <= 0 {
		return fmt.Errorf("periods-per-year must be positive, got %d", c.PeriodsPerYear)
	}
	return nil
}
