// Package config provides unified run-configuration loading for tickloop.
// It supports loading from YAML files and environment variables, and performs
// all range validation up front: once a RunConfig passes Validate, no step of
// the tick loop is expected to fail.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/tick-loop/internal/constants"
	"github.com/nvandessel/tick-loop/internal/detection"
	"github.com/nvandessel/tick-loop/internal/lattice"
)

// RunConfig contains all engine parameters for one simulation run.
type RunConfig struct {
	// Name labels the run in stores and exports.
	Name string `json:"name" yaml:"name"`

	Lattice   LatticeConfig   `json:"lattice" yaml:"lattice"`
	Phase     PhaseConfig     `json:"phase" yaml:"phase"`
	Echo      EchoConfig      `json:"echo" yaml:"echo"`
	Ancestry  AncestryConfig  `json:"ancestry" yaml:"ancestry"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`

	// TickBudget is the fixed number of ticks a run executes.
	TickBudget int `json:"tick_budget" yaml:"tick_budget"`

	// CaptureField includes the full reinforcement field in every tick
	// snapshot. Off by default; snapshots always carry field aggregates.
	CaptureField bool `json:"capture_field" yaml:"capture_field"`
}

// LatticeConfig fixes the grid extent and the neighbor rule.
type LatticeConfig struct {
	Lx int `json:"lx" yaml:"lx"`
	Ly int `json:"ly" yaml:"ly"`
	Lz int `json:"lz" yaml:"lz"`

	// Connectivity is 6, 8 (validated default), or 12.
	Connectivity int `json:"connectivity" yaml:"connectivity"`
}

// Bounds returns the configured extent as lattice bounds.
func (l LatticeConfig) Bounds() lattice.Bounds {
	return lattice.Bounds{Lx: l.Lx, Ly: l.Ly, Lz: l.Lz}
}

// PhaseConfig tunes phase matching.
type PhaseConfig struct {
	// Tolerance is the maximum circular phase distance for a match.
	Tolerance float64 `json:"tolerance" yaml:"tolerance"`
	// DefaultDelta is the per-tick advancement for identities and anchors
	// that do not set their own.
	DefaultDelta float64 `json:"default_delta" yaml:"default_delta"`
}

// EchoConfig tunes the reinforcement field.
type EchoConfig struct {
	RhoMin               float64 `json:"rho_min" yaml:"rho_min"`
	DecayFactor          float64 `json:"decay_factor" yaml:"decay_factor"`
	DiffusionAlpha       float64 `json:"diffusion_alpha" yaml:"diffusion_alpha"`
	HybridLocalWeight    float64 `json:"hybrid_local_weight" yaml:"hybrid_local_weight"`
	HybridNeighborWeight float64 `json:"hybrid_neighbor_weight" yaml:"hybrid_neighbor_weight"`
	ReinforceAmount      float64 `json:"reinforce_amount" yaml:"reinforce_amount"`
}

// AncestryConfig tunes the ancestry gate.
type AncestryConfig struct {
	Required           bool `json:"required" yaml:"required"`
	SmoothingEnabled   bool `json:"smoothing_enabled" yaml:"smoothing_enabled"`
	SmoothingTick      int  `json:"smoothing_tick" yaml:"smoothing_tick"`
	SmoothingThreshold int  `json:"smoothing_threshold" yaml:"smoothing_threshold"`
}

// DetectionConfig tunes detection-triggered conflict resolution.
type DetectionConfig struct {
	// Enabled gates the whole detection step. When false, co-occupancy is
	// never differentiated regardless of triggers.
	Enabled bool `json:"enabled" yaml:"enabled"`
	// Resolution is the policy applied to every event this run.
	Resolution detection.Resolution `json:"resolution" yaml:"resolution"`
	// PhaseSeparationOffset is the per-rank offset for the phase-separation
	// policy.
	PhaseSeparationOffset float64 `json:"phase_separation_offset" yaml:"phase_separation_offset"`
}

// LoggingConfig configures tickloop's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables per-tick trace logging to <root>/.tickloop/trace.jsonl.
	Level string `json:"level" yaml:"level"`
}

// Default returns a RunConfig with the validated defaults.
func Default() *RunConfig {
	return &RunConfig{
		Name: "default",
		Lattice: LatticeConfig{
			Lx:           constants.DefaultLatticeSize,
			Ly:           constants.DefaultLatticeSize,
			Lz:           constants.DefaultLatticeSize,
			Connectivity: int(lattice.Conn8),
		},
		Phase: PhaseConfig{
			Tolerance:    constants.DefaultPhaseTolerance,
			DefaultDelta: constants.DefaultDeltaTheta,
		},
		Echo: EchoConfig{
			RhoMin:               constants.DefaultRhoMin,
			DecayFactor:          constants.DefaultDecayFactor,
			DiffusionAlpha:       constants.DefaultDiffusionAlpha,
			HybridLocalWeight:    constants.DefaultHybridLocalWeight,
			HybridNeighborWeight: constants.DefaultHybridNeighborWeight,
			ReinforceAmount:      constants.DefaultReinforceAmount,
		},
		Ancestry: AncestryConfig{
			Required:           true,
			SmoothingEnabled:   false,
			SmoothingTick:      constants.DefaultSmoothingTick,
			SmoothingThreshold: constants.DefaultSmoothingThreshold,
		},
		Detection: DetectionConfig{
			Enabled:               true,
			Resolution:            detection.ResolutionSymbolicMutation,
			PhaseSeparationOffset: constants.DefaultPhaseSeparationOffset,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		TickBudget: constants.DefaultTickBudget,
	}
}

// LoadFromFile loads configuration from a specific YAML file, layered over the
// defaults.
func LoadFromFile(path string) (*RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, nil
}

// Load loads configuration from an optional file path and environment
// variables. Order: defaults -> file -> environment overrides. An empty path
// skips the file layer.
func Load(path string) (*RunConfig, error) {
	cfg := Default()
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

// Validate checks every parameter range. It fails fast: an engine is never
// constructed from an invalid configuration.
func (c *RunConfig) Validate() error {
	if c.Lattice.Lx <= 0 || c.Lattice.Ly <= 0 || c.Lattice.Lz <= 0 {
		return fmt.Errorf("lattice dimensions must be positive, got %dx%dx%d", c.Lattice.Lx, c.Lattice.Ly, c.Lattice.Lz)
	}
	if !lattice.Connectivity(c.Lattice.Connectivity).Valid() {
		return fmt.Errorf("connectivity must be 6, 8, or 12, got %d", c.Lattice.Connectivity)
	}
	if c.Phase.Tolerance < 0 || c.Phase.Tolerance > 0.5 {
		return fmt.Errorf("phase tolerance must be in [0, 0.5], got %v", c.Phase.Tolerance)
	}
	if c.Phase.DefaultDelta < 0 || c.Phase.DefaultDelta >= 1 {
		return fmt.Errorf("default delta theta must be in [0, 1), got %v", c.Phase.DefaultDelta)
	}
	if c.Echo.DecayFactor < 0 || c.Echo.DecayFactor > 1 {
		return fmt.Errorf("decay factor must be in [0, 1], got %v", c.Echo.DecayFactor)
	}
	if c.Echo.DiffusionAlpha < 0 {
		return fmt.Errorf("diffusion alpha must be non-negative, got %v", c.Echo.DiffusionAlpha)
	}
	if c.Echo.RhoMin < 0 {
		return fmt.Errorf("rho_min must be non-negative, got %v", c.Echo.RhoMin)
	}
	if c.Echo.HybridLocalWeight < 0 || c.Echo.HybridNeighborWeight < 0 {
		return fmt.Errorf("hybrid weights must be non-negative, got %v/%v", c.Echo.HybridLocalWeight, c.Echo.HybridNeighborWeight)
	}
	if c.Echo.ReinforceAmount < 0 {
		return fmt.Errorf("reinforce amount must be non-negative, got %v", c.Echo.ReinforceAmount)
	}
	if c.Ancestry.SmoothingTick < 0 {
		return fmt.Errorf("smoothing tick must be non-negative, got %d", c.Ancestry.SmoothingTick)
	}
	if c.Ancestry.SmoothingThreshold < 0 {
		return fmt.Errorf("smoothing threshold must be non-negative, got %d", c.Ancestry.SmoothingThreshold)
	}
	if !c.Detection.Resolution.Valid() {
		return fmt.Errorf("unknown resolution policy %q", c.Detection.Resolution)
	}
	if c.Detection.PhaseSeparationOffset < 0 || c.Detection.PhaseSeparationOffset >= 1 {
		return fmt.Errorf("phase separation offset must be in [0, 1), got %v", c.Detection.PhaseSeparationOffset)
	}
	if c.TickBudget <= 0 {
		return fmt.Errorf("tick budget must be positive, got %d", c.TickBudget)
	}

	validLevels := map[string]bool{"": true, "info": true, "debug": true, "trace": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies TICKLOOP_* environment variable overrides.
func applyEnvOverrides(cfg *RunConfig) {
	if v := os.Getenv("TICKLOOP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("TICKLOOP_TICK_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TickBudget = n
		}
	}
	if v := os.Getenv("TICKLOOP_CONNECTIVITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Lattice.Connectivity = n
		}
	}
	if v := os.Getenv("TICKLOOP_RESOLUTION"); v != "" {
		cfg.Detection.Resolution = detection.Resolution(v)
	}
	if v := os.Getenv("TICKLOOP_CAPTURE_FIELD"); v != "" {
		cfg.CaptureField = v == "true" || v == "1"
	}
}
