// Package config provides centralized configuration for the QA governance
// subsystem. Values come from defaults, an optional YAML file, and QAGOV_*
// environment overrides, in increasing priority.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the master configuration struct for all governance components.
type Config struct {
	Bus         BusConfig         `mapstructure:"bus"`
	Trust       TrustConfig       `mapstructure:"trust"`
	Arbitration ArbitrationConfig `mapstructure:"arbitration"`
	Drift       DriftConfig       `mapstructure:"drift"`
	Rules       RulesConfig       `mapstructure:"rules"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// BusConfig holds event bus configuration.
type BusConfig struct {
	WorkerCount int `mapstructure:"worker_count"`
	QueueSize   int `mapstructure:"queue_size"`
}

// TrustConfig holds trust ledger configuration.
type TrustConfig struct {
	StorageDir        string             `mapstructure:"storage_dir"`
	SuccessMultiplier float64            `mapstructure:"success_multiplier"`
	FailureMultiplier float64            `mapstructure:"failure_multiplier"`
	Minimum           float64            `mapstructure:"minimum"`
	Maximum           float64            `mapstructure:"maximum"`
	FlushInterval     int                `mapstructure:"flush_interval"`
	AgentDefaults     map[string]float64 `mapstructure:"agent_defaults"`
}

// ArbitrationConfig holds conflict arbitration configuration.
type ArbitrationConfig struct {
	MaxQueue   int           `mapstructure:"max_queue"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

// DriftConfig holds drift detector configuration.
type DriftConfig struct {
	WindowSize int `mapstructure:"window_size"`
	Threshold  int `mapstructure:"threshold"`
}

// RulesConfig holds governance rules configuration.
type RulesConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns a Config populated with the stock governance defaults.
func Default() *Config {
	return &Config{
		Bus: BusConfig{
			WorkerCount: 2,
			QueueSize:   1024,
		},
		Trust: TrustConfig{
			StorageDir:        "data/trust",
			SuccessMultiplier: 1.05,
			FailureMultiplier: 0.9,
			Minimum:           0.1,
			Maximum:           1.5,
			FlushInterval:     10,
		},
		Arbitration: ArbitrationConfig{
			MaxQueue:   50,
			StaleAfter: 30 * time.Second,
		},
		Drift: DriftConfig{
			WindowSize: 10,
			Threshold:  3,
		},
		Rules: RulesConfig{
			Path: "config/governance_rules.json",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from an optional YAML file plus environment
// overrides. A missing file is not an error; a malformed one is.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("QAGOV")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("bus.worker_count", d.Bus.WorkerCount)
	v.SetDefault("bus.queue_size", d.Bus.QueueSize)

	v.SetDefault("trust.storage_dir", d.Trust.StorageDir)
	v.SetDefault("trust.success_multiplier", d.Trust.SuccessMultiplier)
	v.SetDefault("trust.failure_multiplier", d.Trust.FailureMultiplier)
	v.SetDefault("trust.minimum", d.Trust.Minimum)
	v.SetDefault("trust.maximum", d.Trust.Maximum)
	v.SetDefault("trust.flush_interval", d.Trust.FlushInterval)

	v.SetDefault("arbitration.max_queue", d.Arbitration.MaxQueue)
	v.SetDefault("arbitration.stale_after", d.Arbitration.StaleAfter)

	v.SetDefault("drift.window_size", d.Drift.WindowSize)
	v.SetDefault("drift.threshold", d.Drift.Threshold)

	v.SetDefault("rules.path", d.Rules.Path)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
}

// Validate enforces the construction-time invariants every component depends on.
func (c *Config) Validate() error {
	if c.Bus.WorkerCount < 1 {
		return fmt.Errorf("bus.worker_count must be >= 1, got %d", c.Bus.WorkerCount)
	}
	if c.Bus.QueueSize < 1 {
		return fmt.Errorf("bus.queue_size must be >= 1, got %d", c.Bus.QueueSize)
	}
	if c.Trust.StorageDir == "" {
		return fmt.Errorf("trust.storage_dir must not be empty")
	}
	if c.Trust.Minimum <= 0 || c.Trust.Maximum <= c.Trust.Minimum {
		return fmt.Errorf("trust bounds invalid: minimum=%v maximum=%v", c.Trust.Minimum, c.Trust.Maximum)
	}
	if c.Trust.FlushInterval < 1 {
		return fmt.Errorf("trust.flush_interval must be >= 1, got %d", c.Trust.FlushInterval)
	}
	if c.Arbitration.MaxQueue < 1 {
		return fmt.Errorf("arbitration.max_queue must be >= 1, got %d", c.Arbitration.MaxQueue)
	}
	if c.Arbitration.StaleAfter <= 0 {
		return fmt.Errorf("arbitration.stale_after must be positive, got %v", c.Arbitration.StaleAfter)
	}
	if c.Drift.WindowSize < 1 {
		return fmt.Errorf("drift.window_size must be >= 1, got %d", c.Drift.WindowSize)
	}
	if c.Drift.Threshold < 1 {
		return fmt.Errorf("drift.threshold must be >= 1, got %d", c.Drift.Threshold)
	}
	return nil
}
