// Package config loads application configuration from files, environment
// variables, and flags, with validation.
package config

import (
	"fmt"
	"slices"

	"github.com/tallyvid/tallyvid/internal/models"
)

// DefaultConfig returns the default configuration values.
func DefaultConfig() Config {
	return Config{
		ModelsDir: models.GetModelsDir(""),
		LogLevel:  "info",
		Verbose:   false,
		Pipeline: PipelineConfig{
			Stride:         10,
			IoUThreshold:   0.5,
			QuestionAmount: 8,
			NumRows:        9,
			NumThreads:     0,
		},
		Output: OutputConfig{
			Format:  "json",
			Timings: false,
		},
	}
}

var validLogLevels = []string{"debug", "info", "warn", "error"}

var validOutputFormats = []string{"json", "yaml"}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level %q (valid: %v)", c.LogLevel, validLogLevels)
	}
	if !slices.Contains(validOutputFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format %q (valid: %v)", c.Output.Format, validOutputFormats)
	}
	if c.Pipeline.Stride <= 0 {
		return fmt.Errorf("stride must be positive, got %d", c.Pipeline.Stride)
	}
	if c.Pipeline.IoUThreshold <= 0 || c.Pipeline.IoUThreshold > 1 {
		return fmt.Errorf("iou_threshold must be in (0, 1], got %g", c.Pipeline.IoUThreshold)
	}
	if c.Pipeline.QuestionAmount <= 0 {
		return fmt.Errorf("question_amount must be positive, got %d", c.Pipeline.QuestionAmount)
	}
	if c.Pipeline.NumRows <= 1 {
		return fmt.Errorf("num_rows must be at least 2, got %d", c.Pipeline.NumRows)
	}
	if c.Pipeline.NumThreads < 0 {
		return fmt.Errorf("num_threads must not be negative, got %d", c.Pipeline.NumThreads)
	}
	return nil
}
