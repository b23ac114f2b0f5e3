// Package config collects every tunable of the reset and concealment
// pipeline into one JSON-serializable structure.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/RyanBlaney/sonido-splice/algorithms/spectral"
	"github.com/RyanBlaney/sonido-splice/clickloss"
	"github.com/RyanBlaney/sonido-splice/conceal"
	"github.com/RyanBlaney/sonido-splice/engine"
	"github.com/RyanBlaney/sonido-splice/features"
	"github.com/RyanBlaney/sonido-splice/resets"
	"github.com/RyanBlaney/sonido-splice/synthesis"
)

type Config struct {
	// Spectral analysis
	Envelope spectral.BarkEnvelopeParams `json:"envelope"`

	// Reset selection
	Scheduler resets.SchedulerParams     `json:"scheduler"`
	Net       resets.NetSchedulerParams  `json:"net"`
	Generator resets.MaskGeneratorParams `json:"generator"`
	Periodic  int                        `json:"periodic_interval"` // Reset interval when a periodic schedule is requested (default: 10)

	// Scoring and concealment
	ClickLoss clickloss.MetricParams `json:"click_loss"`
	Conceal   conceal.Params         `json:"conceal"`

	// Synthesis
	Engine                engine.ParametricParams `json:"engine"`
	Hiss                  synthesis.HissParams    `json:"hiss"`
	TrailingSilenceFrames int                     `json:"trailing_silence_frames"`
	LogLevel              string                  `json:"log_level"` // "debug", "info", "warn", "error"
}

// Default returns the reference configuration
func Default() *Config {
	return &Config{
		Envelope:  spectral.DefaultBarkEnvelopeParams(),
		Scheduler: resets.DefaultSchedulerParams(),
		Net:       resets.DefaultNetSchedulerParams(),
		Generator: resets.DefaultMaskGeneratorParams(),
		Periodic:  10,
		ClickLoss: clickloss.DefaultMetricParams(),
		Conceal:   conceal.DefaultParams(),
		Engine:    engine.DefaultParametricParams(),
		Hiss:      synthesis.DefaultHissParams(),
		LogLevel:  "info",
	}
}

// Load reads a JSON file over the defaults. Fields absent from the file
// keep their default values. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every section and reports all problems at once
func (c *Config) Validate() error {
	var errs []error

	if c.Envelope.NumBands <= 0 || c.Envelope.NumBands > features.NumTotalFeatures {
		errs = append(errs, fmt.Errorf("envelope.num_bands must be in [1, %d], got %d", features.NumTotalFeatures, c.Envelope.NumBands))
	}
	if err := c.Scheduler.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	if err := c.Net.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("net: %w", err))
	}
	if c.Generator.MinFramesWithoutReset < 0 {
		errs = append(errs, fmt.Errorf("generator.min_frames_without_reset must not be negative"))
	}
	if c.Generator.ResetProbability < 0 || c.Generator.ResetProbability > 1 {
		errs = append(errs, fmt.Errorf("generator.reset_probability must be in [0, 1], got %v", c.Generator.ResetProbability))
	}
	if c.Periodic <= 0 {
		errs = append(errs, fmt.Errorf("periodic_interval must be positive, got %d", c.Periodic))
	}
	if c.ClickLoss.NumLowBands < 0 || c.ClickLoss.NumHighBands < 0 {
		errs = append(errs, fmt.Errorf("click_loss band counts must not be negative"))
	}
	if err := c.Conceal.Validate(features.FrameSize); err != nil {
		errs = append(errs, fmt.Errorf("conceal: %w", err))
	}
	if c.Engine.MinPitch <= 0 || c.Engine.MaxPitch < c.Engine.MinPitch {
		errs = append(errs, fmt.Errorf("engine pitch range [%d, %d] is invalid", c.Engine.MinPitch, c.Engine.MaxPitch))
	}
	if c.Engine.Deemphasis < 0 || c.Engine.Deemphasis >= 1 {
		errs = append(errs, fmt.Errorf("engine.deemphasis must be in [0, 1), got %v", c.Engine.Deemphasis))
	}
	if c.TrailingSilenceFrames < 0 {
		errs = append(errs, fmt.Errorf("trailing_silence_frames must not be negative"))
	}

	return errors.Join(errs...)
}

// SynthesisOptions builds runner options for a mode. The caller supplies
// the schedule or mask the mode needs.
func (c *Config) SynthesisOptions(mode synthesis.Mode) synthesis.Options {
	return synthesis.Options{
		Mode:                  mode,
		Net:                   c.Net,
		Conceal:               c.Conceal,
		Envelope:              c.Envelope,
		Hiss:                  c.Hiss,
		TrailingSilenceFrames: c.TrailingSilenceFrames,
	}
}
