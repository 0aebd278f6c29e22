// Package timing derives the fixed-step cadence from a target frequency.
//
// Deriving cadence is a pure computation: it never touches frame counters
// or wall-clock deadlines, so a settings change can recompute it freely.
package timing

import (
	"math"
	"time"
)

// Model is the derived cadence for a given step rate.
type Model struct {
	// Hz is the step rate this model was derived from.
	Hz float64
	// Dt is the duration of one logical step.
	Dt time.Duration
	// SubSteps is how many logical steps are grouped per outer loop iteration.
	SubSteps int
	// OuterDt is Dt * SubSteps, the duration between two outer-loop deadlines.
	OuterDt time.Duration
}

// Derive computes the timing model for hz. hz must already be repaired to a
// positive value by the caller; Derive does not itself apply defaults.
func Derive(hz float64) Model {
	dt := time.Duration(float64(time.Second) / hz)
	subSteps := 1
	if hz > 1000.0 {
		subSteps = int(math.Ceil(hz / 1000.0))
	}
	return Model{
		Hz:       hz,
		Dt:       dt,
		SubSteps: subSteps,
		OuterDt:  dt * time.Duration(subSteps),
	}
}
