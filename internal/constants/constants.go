// Package constants provides named constants used throughout the tick-loop codebase.
// This centralizes the validated simulation parameters for better maintainability
// and documentation.
package constants

// Phase parameters
const (
	// DefaultPhaseTolerance is the maximum absolute phase difference between an
	// identity and its anchor for the phase-match gate to pass.
	DefaultPhaseTolerance = 0.11

	// DefaultDeltaTheta is the per-tick phase advancement applied to identities
	// and anchors that do not specify their own rate.
	DefaultDeltaTheta = 0.1
)

// Reinforcement field parameters
const (
	// DefaultRhoMin is the minimum hybrid reinforcement required for the
	// echo-match gate to pass.
	DefaultRhoMin = 25.0

	// DefaultDecayFactor is the per-tick multiplicative decay applied to every
	// field cell.
	DefaultDecayFactor = 0.95

	// DefaultDiffusionAlpha is the fraction of the neighbor mean added to each
	// cell during diffusion.
	DefaultDiffusionAlpha = 0.10

	// DefaultHybridLocalWeight weights the local cell in the hybrid read.
	DefaultHybridLocalWeight = 0.6

	// DefaultHybridNeighborWeight weights the neighbor mean in the hybrid read.
	DefaultHybridNeighborWeight = 0.4

	// DefaultReinforceAmount is the boost added at a position when an identity
	// completes a return there.
	DefaultReinforceAmount = 1.0
)

// Ancestry smoothing parameters
const (
	// DefaultSmoothingThreshold is the maximum effective mismatch count for the
	// ancestry gate to pass once smoothing is active.
	DefaultSmoothingThreshold = 2

	// DefaultSmoothingTick is the tick from which smoothing applies. Before it,
	// ancestry matching is exact string equality.
	DefaultSmoothingTick = 3
)

// Detection parameters
const (
	// DefaultPhaseSeparationOffset is the per-rank phase offset applied by the
	// phase-separation resolution policy.
	DefaultPhaseSeparationOffset = 0.05
)

// Run parameters
const (
	// DefaultTickBudget is the number of ticks a run executes when the
	// configuration does not specify one.
	DefaultTickBudget = 100

	// DefaultLatticeSize is the edge length of the default cubic lattice.
	DefaultLatticeSize = 30
)
