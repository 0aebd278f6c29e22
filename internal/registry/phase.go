// Package registry owns the ordered list of phases configured on a Sim
// before run() starts. Membership is frozen once the run begins: the
// pacing loop calls Freeze, after which every registration call is ignored.
package registry

import (
	"fmt"
	"sync"

	"github.com/orbitframe/simcore/api"
)

// Phase holds one step's worth of ordered work: serial subsystems run first
// on the driver, then each parallel range task in insertion order, then
// reductions. ElementCount is the domain size shared by every range task.
type Phase struct {
	Name               string
	SerialSubsystems   []api.SubsystemFunc
	ParallelRangeTasks []api.RangeTaskFunc
	Reductions         []api.ReductionFunc
	ElementCount       int
	Enabled            bool
}

// Registry is the ordered collection of phases for one Sim instance.
type Registry struct {
	mu     sync.Mutex
	phases []*Phase
	frozen bool
}

// New returns an empty phase registry.
func New() *Registry {
	return &Registry{}
}

// Freeze prevents further structural changes. Called once by the driver
// when run() begins; a frozen registry may still be read concurrently by
// the pacing loop and dispatcher.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// AddPhase appends a phase and returns its stable index. Adding a phase
// after Freeze is a usage error; the registry logs nothing itself and
// simply ignores the call, per the core's error-handling design.
func (r *Registry) AddPhase(name string, elementCount int) api.PhaseID {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return api.PhaseID(-1)
	}
	r.phases = append(r.phases, &Phase{
		Name:         name,
		ElementCount: elementCount,
		Enabled:      true,
	})
	return api.PhaseID(len(r.phases) - 1)
}

// SetPhaseElementCount updates the domain size shared by a phase's range tasks.
func (r *Registry) SetPhaseElementCount(id api.PhaseID, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return
	}
	if p := r.phaseLocked(id); p != nil {
		p.ElementCount = n
	}
}

// AddSerialSubsystem appends a serial callback to a phase.
func (r *Registry) AddSerialSubsystem(id api.PhaseID, fn api.SubsystemFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return
	}
	if p := r.phaseLocked(id); p != nil {
		p.SerialSubsystems = append(p.SerialSubsystems, fn)
	}
}

// AddParallelRangeTask appends a range task to a phase.
func (r *Registry) AddParallelRangeTask(id api.PhaseID, fn api.RangeTaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return
	}
	if p := r.phaseLocked(id); p != nil {
		p.ParallelRangeTasks = append(p.ParallelRangeTasks, fn)
	}
}

// AddReductionTask appends a reduction to a phase.
func (r *Registry) AddReductionTask(id api.PhaseID, fn api.ReductionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return
	}
	if p := r.phaseLocked(id); p != nil {
		p.Reductions = append(p.Reductions, fn)
	}
}

// Phases returns the frozen phase slice for the pacing loop to iterate.
// The returned slice and its Phase pointers must not be mutated by callers.
func (r *Registry) Phases() []*Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phases
}

func (r *Registry) phaseLocked(id api.PhaseID) *Phase {
	if id < 0 || int(id) >= len(r.phases) {
		return nil
	}
	return r.phases[id]
}

// String renders a compact description, used by debug probes.
func (p *Phase) String() string {
	return fmt.Sprintf("Phase(%s elems=%d serial=%d range=%d reduce=%d enabled=%t)",
		p.Name, p.ElementCount, len(p.SerialSubsystems), len(p.ParallelRangeTasks), len(p.Reductions), p.Enabled)
}
