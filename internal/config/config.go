package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultTolerance is the price difference still treated as a match
var DefaultTolerance = decimal.RequireFromString("0.01")

// Config holds all configuration for traderecon
type Config struct {
	Reconciliation ReconciliationConfig `yaml:"reconciliation"`
	Reporting      ReportingConfig      `yaml:"reporting"`
	Server         ServerConfig         `yaml:"server"`
	Generator      GeneratorConfig      `yaml:"generator"`
	Logging        LoggingConfig        `yaml:"logging"`
}

// ReconciliationConfig is the per-run configuration passed to the engine
type ReconciliationConfig struct {
	InternalPath string          `yaml:"internal_path"`
	BankPath     string          `yaml:"bank_path"`
	Tolerance    decimal.Decimal `yaml:"tolerance"`
	OutputDir    string          `yaml:"output_dir"`
	OutputFile   string          `yaml:"output_file"`
}

// ReportingConfig holds report layout switches
type ReportingConfig struct {
	SummarySheet bool `yaml:"summary_sheet"`
	NotesSheet   bool `yaml:"notes_sheet"`
}

// ServerConfig holds HTTP service configuration
type ServerConfig struct {
	Port              int     `yaml:"port"`
	JWTSecret         string  `yaml:"jwt_secret"`
	MaxUploadBytes    int64   `yaml:"max_upload_bytes"`
	MaxConcurrentRuns int     `yaml:"max_concurrent_runs"`
	RunQueue          int     `yaml:"run_queue"`
	RateLimit         float64 `yaml:"rate_limit"` // requests per second on /api, 0 disables
	RateBurst         int     `yaml:"rate_burst"`
}

// GeneratorConfig holds synthetic data settings
type GeneratorConfig struct {
	Trades  int   `yaml:"trades"`
	Seed    int64 `yaml:"seed"`
	Zombies int   `yaml:"zombies"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Reconciliation: ReconciliationConfig{
			InternalPath: "internal_ledger.csv",
			BankPath:     "bank_statement.csv",
			Tolerance:    DefaultTolerance,
			OutputDir:    ".",
		},
		Reporting: ReportingConfig{
			SummarySheet: true,
			NotesSheet:   true,
		},
		Server: ServerConfig{
			Port:              3004,
			MaxUploadBytes:    10 << 20,
			MaxConcurrentRuns: 2,
			RunQueue:          8,
			RateBurst:         10,
		},
		Generator: GeneratorConfig{
			Trades:  500,
			Seed:    42,
			Zombies: 5,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file on top of the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the reconciliation settings before a run
func (c *ReconciliationConfig) Validate() error {
	if c.InternalPath == "" {
		return errors.New("internal source path is required")
	}
	if c.BankPath == "" {
		return errors.New("bank source path is required")
	}
	if filepath.Clean(c.InternalPath) == filepath.Clean(c.BankPath) {
		return errors.New("internal and bank sources must be different files")
	}
	if c.Tolerance.IsNegative() {
		return fmt.Errorf("tolerance must not be negative, got %s", c.Tolerance)
	}
	return nil
}
