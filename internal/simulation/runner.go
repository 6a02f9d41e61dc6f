package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/nvandessel/tick-loop/internal/config"
	"github.com/nvandessel/tick-loop/internal/engine"
	"github.com/nvandessel/tick-loop/internal/scenario"
	"github.com/nvandessel/tick-loop/internal/snapshot"
	"github.com/nvandessel/tick-loop/internal/store"
)

// Runner orchestrates trial runs against a real engine and run store.
type Runner struct {
	t     *testing.T
	store *store.SQLiteRunStore
	runs  int
}

// Result captures one completed trial run. History is re-read from the store
// after the run, so it reflects the persisted record, not engine internals.
type Result struct {
	RunID   string
	History []snapshot.Tick
	Store   *store.SQLiteRunStore
}

// NewRunner creates a simulation runner with an isolated SQLite store
// and sandboxed HOME directory.
func NewRunner(t *testing.T) *Runner {
	t.Helper()
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)

	s, err := store.NewSQLiteRunStore(tmpDir)
	if err != nil {
		t.Fatalf("NewRunner: failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return &Runner{t: t, store: s}
}

// Run executes the trial for the given tick budget and returns the persisted
// history. A nil cfg uses defaults with a small 9x9x9 lattice.
func (r *Runner) Run(trial *scenario.Trial, cfg *config.RunConfig, budget int) Result {
	r.t.Helper()
	ctx := context.Background()

	if cfg == nil {
		cfg = config.Default()
		cfg.Lattice = config.LatticeConfig{Lx: 9, Ly: 9, Lz: 9, Connectivity: 8}
	}
	cfg.TickBudget = budget

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := engine.New(cfg, log)
	if err != nil {
		r.t.Fatalf("Run: engine.New: %v", err)
	}

	r.runs++
	runID := fmt.Sprintf("run-%06d", r.runs)
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		r.t.Fatalf("Run: marshal config: %v", err)
	}
	if err := r.store.CreateRun(ctx, store.RunMeta{
		ID:         runID,
		Name:       trial.Name,
		CreatedAt:  time.Now().UTC(),
		TickBudget: budget,
		Config:     cfgJSON,
	}); err != nil {
		r.t.Fatalf("Run: CreateRun: %v", err)
	}

	history, err := trial.Run(ctx, e, budget)
	if err != nil {
		r.t.Fatalf("Run: trial %q: %v", trial.Name, err)
	}
	for _, snap := range history {
		if err := r.store.AppendTick(ctx, runID, snap); err != nil {
			r.t.Fatalf("Run: AppendTick %d: %v", snap.Tick, err)
		}
	}

	// Read the history back so assertions run against the persisted record.
	persisted, err := r.store.GetTicks(ctx, runID)
	if err != nil {
		r.t.Fatalf("Run: GetTicks: %v", err)
	}
	if len(persisted) != len(history) {
		r.t.Fatalf("Run: persisted %d ticks, engine produced %d", len(persisted), len(history))
	}

	return Result{RunID: runID, History: persisted, Store: r.store}
}
