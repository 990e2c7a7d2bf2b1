package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"gopkg.in/yaml.v3"
)

// Config captures the runtime knobs for a batching run.
type Config struct {
	// Synthetic source
	Sequences  int   `yaml:"sequences"`
	MinLength  int   `yaml:"min_length"`
	MaxLength  int   `yaml:"max_length"`
	FeatureDim int   `yaml:"feature_dim"`
	NumClasses int   `yaml:"num_classes"`
	Seed       int64 `yaml:"seed"`

	// Loader
	BatchSize  int     `yaml:"batch_size"`
	NumWorkers int     `yaml:"num_workers"`
	DropLast   bool    `yaml:"drop_last"`
	PadValue   float32 `yaml:"pad_value"`

	// Run loop
	Epochs   int    `yaml:"epochs"`
	LogEvery int    `yaml:"log_every"`
	LogLevel string `yaml:"log_level"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	Sequences  int
	BatchSize  int
	NumWorkers int
	Epochs     int
	Seed       int64
	LogEvery   int
	LogLevel   string
}

// Default returns a runnable configuration.
func Default() *Config {
	return &Config{
		Sequences:  1024,
		MinLength:  8,
		MaxLength:  64,
		FeatureDim: 4,
		NumClasses: 2,
		Seed:       42,
		BatchSize:  32,
		NumWorkers: DefaultWorkers(),
		Epochs:     1,
		LogEvery:   10,
		LogLevel:   "info",
	}
}

// DefaultWorkers is the physical core count, or the logical CPU count when
// the CPU cannot be identified.
func DefaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return runtime.NumCPU()
}

// Load reads a YAML file on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates cfg using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.Sequences > 0 {
		c.Sequences = o.Sequences
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Sequences < 0 {
		return fmt.Errorf("sequences must be >= 0 (got %d)", c.Sequences)
	}
	if c.MinLength < 1 {
		return fmt.Errorf("min_length must be >= 1 (got %d)", c.MinLength)
	}
	if c.MaxLength < c.MinLength {
		return fmt.Errorf("max_length must be >= min_length (got %d < %d)", c.MaxLength, c.MinLength)
	}
	if c.FeatureDim <= 0 {
		return fmt.Errorf("feature_dim must be > 0 (got %d)", c.FeatureDim)
	}
	if c.NumClasses <= 0 {
		return fmt.Errorf("num_classes must be > 0 (got %d)", c.NumClasses)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = DefaultWorkers()
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	return nil
}
