// Package snapshot defines the immutable per-tick record the engine emits.
// A snapshot is a plain serializable value: it is the only channel outer
// layers (stores, exporters, the CLI) observe engine state through, and the
// engine itself never chooses a wire format.
package snapshot

import (
	"github.com/nvandessel/tick-loop/internal/detection"
	"github.com/nvandessel/tick-loop/internal/identity"
	"github.com/nvandessel/tick-loop/internal/lattice"
)

// IdentityState is one identity's state at the end of a tick.
type IdentityState struct {
	ID             string          `json:"id"`
	ModuleTag      string          `json:"module_tag"`
	Ancestry       string          `json:"ancestry"`
	Theta          float64         `json:"theta"`
	Position       lattice.Coord   `json:"position"`
	Status         identity.Status `json:"status"`
	Mutated        bool            `json:"mutated"`
	TickMemory     int             `json:"tick_memory"`
	CoexistingWith []string        `json:"coexisting_with,omitempty"`
}

// ReturnEvaluation records the outcome of the return-eligibility gate for one
// identity on one tick.
type ReturnEvaluation struct {
	ID        string  `json:"id"`
	Allowed   bool    `json:"allowed"`
	Reason    string  `json:"reason"` // "ok", "no_anchor", "phase_mismatch", "ancestry_mismatch", "echo_below_min"
	PhaseDiff float64 `json:"phase_diff,omitempty"`
	RhoHybrid float64 `json:"rho_hybrid,omitempty"`
}

// EchoStats aggregates the reinforcement field for a tick.
type EchoStats struct {
	Total float64 `json:"total"`
	Max   float64 `json:"max"`
	Min   float64 `json:"min"`
}

// Tick is the complete immutable record of one simulation tick.
type Tick struct {
	Tick        int                 `json:"tick"`
	Identities  []IdentityState     `json:"identities"`
	Evaluations []ReturnEvaluation  `json:"return_evaluations,omitempty"`
	Events      []detection.Event   `json:"detection_events,omitempty"`
	Registry    map[string][]string `json:"coexistence_registry,omitempty"`
	Echo        EchoStats           `json:"echo"`

	// FieldValues is the full reinforcement field in lattice index order,
	// present only when the run captures it.
	FieldValues []float64 `json:"field_values,omitempty"`
}
