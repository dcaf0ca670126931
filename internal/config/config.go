// Package config handles meshsimp configuration loading and management.
package config

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	ErrInvalidRatio          = errors.New("target ratio must be in (0, 1]")
	ErrInvalidTarget         = errors.New("invalid target count")
	ErrInvalidAggressiveness = errors.New("aggressiveness must be positive")
	ErrInvalidBorderWeight   = errors.New("border weight must not be negative")
	ErrInvalidFormat         = errors.New("unknown output format")
)

// Config holds all tool settings.
type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// SimplifyConfig holds engine settings.
type SimplifyConfig struct {
	TargetRatio     float64 `yaml:"target_ratio"` // fraction of input triangles to keep
	TargetCount     int     `yaml:"target_count"` // absolute budget; overrides ratio when > 0
	Aggressiveness  float64 `yaml:"aggressiveness"`
	Lossless        bool    `yaml:"lossless"`
	RefreshQuadrics bool    `yaml:"refresh_quadrics"`
	BorderWeight    float64 `yaml:"border_weight"`
	Verbose         bool    `yaml:"verbose"`
}

// OutputConfig holds settings for written meshes.
type OutputConfig struct {
	Format    string `yaml:"format"` // "obj", "stl" or empty to follow the extension
	Overwrite bool   `yaml:"overwrite"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Simplify: SimplifyConfig{
			TargetRatio:    0.5,
			TargetCount:    0,
			Aggressiveness: 7,
			BorderWeight:   1,
		},
		Output: OutputConfig{
			Format:    "",
			Overwrite: false,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	s := c.Simplify
	if s.TargetRatio <= 0 || s.TargetRatio > 1 {
		return fmt.Errorf("%w: %g", ErrInvalidRatio, s.TargetRatio)
	}
	if s.TargetCount < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTarget, s.TargetCount)
	}
	if s.Aggressiveness <= 0 {
		return fmt.Errorf("%w: %g", ErrInvalidAggressiveness, s.Aggressiveness)
	}
	if s.BorderWeight < 0 {
		return fmt.Errorf("%w: %g", ErrInvalidBorderWeight, s.BorderWeight)
	}
	switch c.Output.Format {
	case "", "obj", "stl":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFormat, c.Output.Format)
	}
	return nil
}

// Target returns the triangle budget for a mesh with the given count.
func (s SimplifyConfig) Target(triangles int) int {
	if s.TargetCount > 0 {
		return s.TargetCount
	}
	return int(float64(triangles) * s.TargetRatio)
}
