// Package store defines the RunStore interface for persisting simulation
// runs: run metadata plus the per-tick snapshot history.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nvandessel/tick-loop/internal/snapshot"
)

// RunMeta describes one recorded simulation run.
type RunMeta struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CreatedAt  time.Time       `json:"created_at"`
	TickBudget int             `json:"tick_budget"`
	TickCount  int             `json:"tick_count"` // ticks recorded so far
	Config     json.RawMessage `json:"config"`     // the RunConfig the run was started with
}

// RunStore defines the interface for persisting and querying simulation runs.
// Snapshots are append-only: ticks arrive in order and are never rewritten.
type RunStore interface {
	// Run operations
	CreateRun(ctx context.Context, meta RunMeta) error
	GetRun(ctx context.Context, id string) (*RunMeta, error)
	ListRuns(ctx context.Context) ([]RunMeta, error)
	DeleteRun(ctx context.Context, id string) error

	// Tick operations
	AppendTick(ctx context.Context, runID string, snap snapshot.Tick) error
	GetTick(ctx context.Context, runID string, tick int) (*snapshot.Tick, error)
	GetTicks(ctx context.Context, runID string) ([]snapshot.Tick, error)

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}
