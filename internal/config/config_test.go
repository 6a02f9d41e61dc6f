package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvandessel/tick-loop/internal/detection"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Lattice.Connectivity != 8 {
		t.Errorf("default connectivity = %d, want 8", cfg.Lattice.Connectivity)
	}
	if cfg.Phase.Tolerance != 0.11 {
		t.Errorf("default tolerance = %v, want 0.11", cfg.Phase.Tolerance)
	}
	if cfg.Echo.RhoMin != 25.0 {
		t.Errorf("default rho_min = %v, want 25.0", cfg.Echo.RhoMin)
	}
	if cfg.Detection.Resolution != detection.ResolutionSymbolicMutation {
		t.Errorf("default resolution = %q", cfg.Detection.Resolution)
	}
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"negative dimension", func(c *RunConfig) { c.Lattice.Lx = -1 }},
		{"zero dimension", func(c *RunConfig) { c.Lattice.Ly = 0 }},
		{"bad connectivity", func(c *RunConfig) { c.Lattice.Connectivity = 7 }},
		{"decay above one", func(c *RunConfig) { c.Echo.DecayFactor = 1.5 }},
		{"negative decay", func(c *RunConfig) { c.Echo.DecayFactor = -0.1 }},
		{"negative alpha", func(c *RunConfig) { c.Echo.DiffusionAlpha = -0.2 }},
		{"negative rho_min", func(c *RunConfig) { c.Echo.RhoMin = -1 }},
		{"tolerance above half", func(c *RunConfig) { c.Phase.Tolerance = 0.6 }},
		{"negative hybrid weight", func(c *RunConfig) { c.Echo.HybridLocalWeight = -0.5 }},
		{"unknown resolution", func(c *RunConfig) { c.Detection.Resolution = "exclusion" }},
		{"offset out of range", func(c *RunConfig) { c.Detection.PhaseSeparationOffset = 1.0 }},
		{"zero tick budget", func(c *RunConfig) { c.TickBudget = 0 }},
		{"bad log level", func(c *RunConfig) { c.Logging.Level = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Errorf("Validate accepted %s", tt.name)
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	content := `name: trial-070
lattice:
  lx: 10
  ly: 10
  lz: 10
  connectivity: 8
phase:
  tolerance: 0.11
ancestry:
  required: true
  smoothing_enabled: true
  smoothing_tick: 3
tick_budget: 12
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Name != "trial-070" {
		t.Errorf("name = %q", cfg.Name)
	}
	if cfg.Lattice.Lx != 10 || cfg.TickBudget != 12 {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if !cfg.Ancestry.SmoothingEnabled || cfg.Ancestry.SmoothingTick != 3 {
		t.Errorf("smoothing not applied: %+v", cfg.Ancestry)
	}
	// Untouched values keep defaults.
	if cfg.Echo.DecayFactor != 0.95 {
		t.Errorf("default decay not preserved: %v", cfg.Echo.DecayFactor)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("loaded config invalid: %v", err)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file did not error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("TICKLOOP_LOG_LEVEL", "debug")
	t.Setenv("TICKLOOP_TICK_BUDGET", "7")
	t.Setenv("TICKLOOP_RESOLUTION", "phase_separation")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q", cfg.Logging.Level)
	}
	if cfg.TickBudget != 7 {
		t.Errorf("tick budget = %d", cfg.TickBudget)
	}
	if cfg.Detection.Resolution != detection.ResolutionPhaseSeparation {
		t.Errorf("resolution = %q", cfg.Detection.Resolution)
	}
}
