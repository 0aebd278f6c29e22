// File: api/types.go
//
// Shared domain types for the fixed-timestep simulation core: the settings
// record, phase identifiers, and the three callback shapes a phase can hold.

package api

import "time"

// PhaseID is a stable index into the phase registry, assigned by addPhase.
type PhaseID int

// SubsystemFunc runs once per step on the driver thread, before any range
// task of its phase is dispatched.
type SubsystemFunc func(frame int64, dt time.Duration)

// RangeTaskFunc processes the half-open element interval [begin, end). It
// may run on any worker and must touch only memory owned by that interval.
type RangeTaskFunc func(begin, end int, frame int64, dt time.Duration)

// ReductionFunc runs once per step on the driver thread, after every range
// task of its phase has completed.
type ReductionFunc func(frame int64, dt time.Duration)

// Settings configures a Sim. Zero values are repaired to safe defaults by
// the settings store before a run starts; see control.SettingsStore.Apply.
type Settings struct {
	// Hz is the target step rate, strictly positive.
	Hz float64
	// MaxFrames bounds the run; any negative value (MaxFramesUnbounded is
	// the canonical one) means "run until RequestExit".
	MaxFrames int64
	// Adaptive enables catch-up bursts when the driver falls behind the deadline.
	Adaptive bool
	// MaxCatchUp caps catch-up steps issued per outer loop iteration.
	MaxCatchUp int
	// Threads is the worker population size, at least 1.
	Threads int
	// Pin requests best-effort CPU affinity, one logical core per worker,
	// on platforms that support it (see internal/affinity).
	Pin bool
	// MainHelps lets the driver thread also consume chunks of the active range.
	MainHelps bool
	// ChunkSize is the number of elements per dispatched chunk, at least 1.
	ChunkSize int
	// SpinMicros is the lead time before a deadline within which the driver
	// busy-spins instead of sleeping.
	SpinMicros int
	// DriftLogInterval is the frame stride between drift log records; 0 disables it.
	DriftLogInterval int64
	// MaxCatchUpThresholdFrames counts a catch-up iteration as a "burst" once
	// its extra step count exceeds this many frames.
	MaxCatchUpThresholdFrames int
	// LogPhases and LogRangeTasks gate trace-level phase/chunk instrumentation.
	LogPhases     bool
	LogRangeTasks bool
}

// MaxFramesUnbounded is the canonical MaxFrames value meaning "run until
// RequestExit"; the pacing loop treats every negative MaxFrames the same way.
const MaxFramesUnbounded int64 = -1

// AdaptiveStats accumulates catch-up burst statistics across the life of a run.
type AdaptiveStats struct {
	Bursts      int64
	ExtraSteps  int64
	RecoveredMs float64
}
