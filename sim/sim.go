// Package sim is the unified facade over the fixed-timestep simulation
// core: it wires the phase registry, range dispatcher, pacing loop, and
// observability/control surfaces behind a single type, mirroring how the
// rest of this codebase aggregates its subsystems behind one facade.
package sim

import (
	"sync"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/control"
	"github.com/orbitframe/simcore/internal/dispatch"
	"github.com/orbitframe/simcore/internal/pacing"
	"github.com/orbitframe/simcore/internal/registry"
	"github.com/orbitframe/simcore/obs"
)

// Sim aggregates every core subsystem behind the external interface from
// the programmatic surface: settings, phase registration, run control, and
// the post-run diagnostics surface. It implements api.Control and
// api.GracefulShutdown.
type Sim struct {
	mu sync.Mutex

	settingsStore *control.SettingsStore
	reg           *registry.Registry
	metrics       *control.MetricsRegistry
	debug         *control.DebugProbes
	log           *obs.Logger
	prof          api.ProfileSink

	disp    *dispatch.Dispatcher
	loop    *pacing.Loop
	running bool
	ran     bool
}

var (
	_ api.Control          = (*Sim)(nil)
	_ api.GracefulShutdown = (*Sim)(nil)
)

// New constructs a Sim with the given settings, repairing any invalid
// fields immediately (see control.SettingsStore). Phases and tasks may be
// registered any time before Run.
func New(settings api.Settings) *Sim {
	log := obs.NewLogger(api.LevelInfo)
	s := &Sim{
		reg:     registry.New(),
		metrics: control.NewMetricsRegistry(),
		debug:   control.NewDebugProbes(),
		log:     log,
	}
	s.settingsStore = control.NewSettingsStore(settings, log)
	control.RegisterPlatformProbes(s.debug)
	s.debug.RegisterProbe("sim.settings", func() any { return s.settingsStore.AsMap() })
	return s
}

// AttachLog adds a log sink; safe to call before or after Run.
func (s *Sim) AttachLog(sink api.LogSink) {
	s.log.AddSink(sink)
}

// AttachProf installs the profile sink used for the next Run. Attaching
// after Run has started has no effect on the run already in progress.
func (s *Sim) AttachProf(sink api.ProfileSink) {
	s.mu.Lock()
	s.prof = sink
	s.mu.Unlock()
}

// AddPhase appends a phase to the registry; see registry.Registry.AddPhase.
func (s *Sim) AddPhase(name string, elementCount int) api.PhaseID {
	return s.reg.AddPhase(name, elementCount)
}

func (s *Sim) SetPhaseElementCount(id api.PhaseID, n int) {
	s.reg.SetPhaseElementCount(id, n)
}

func (s *Sim) AddSerialSubsystem(id api.PhaseID, fn api.SubsystemFunc) {
	s.reg.AddSerialSubsystem(id, fn)
}

func (s *Sim) AddParallelRangeTask(id api.PhaseID, fn api.RangeTaskFunc) {
	s.reg.AddParallelRangeTask(id, fn)
}

func (s *Sim) AddReductionTask(id api.PhaseID, fn api.ReductionFunc) {
	s.reg.AddReductionTask(id, fn)
}

// SetDeterministicHash lets a reduction closure publish an opaque identity
// value for the current run. It is a no-op before Run has started.
func (s *Sim) SetDeterministicHash(h uint64) {
	if loop := s.currentLoop(); loop != nil {
		loop.SetDeterministicHash(h)
	}
}

// DeterministicHash returns the last published identity value, or 0 if
// none has been set yet.
func (s *Sim) DeterministicHash() uint64 {
	if loop := s.currentLoop(); loop != nil {
		h, _ := loop.DeterministicHash()
		return h
	}
	return 0
}

func (s *Sim) currentLoop() *pacing.Loop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}

// Run freezes settings and phase registration, builds the worker pool
// sized to the frozen thread count, and drives the fixed-step schedule to
// completion. It is single-use: calling Run twice on the same Sim returns
// api.ErrAlreadyRunning.
func (s *Sim) Run() error {
	s.mu.Lock()
	if s.running || s.ran {
		s.mu.Unlock()
		return api.ErrAlreadyRunning
	}
	settings := s.settingsStore.Snapshot()
	s.settingsStore.Freeze()
	s.disp = dispatch.NewDispatcher(settings.Threads, settings.Pin, settings.MainHelps)
	s.loop = pacing.New(s.reg, s.disp, settings, s.log, s.prof)
	s.running = true
	s.mu.Unlock()

	s.debug.RegisterProbe("sim.workers", func() any { return s.disp.NumWorkers() })
	s.debug.RegisterProbe("sim.frame", func() any { return s.loop.Frame() })

	s.log.Info("run starting hz={} threads={} maxFrames={}", settings.Hz, settings.Threads, settings.MaxFrames)
	err := s.loop.Run()
	if err != nil {
		s.log.Error("run aborted: {}", err)
	} else {
		s.log.Info("run completed frame={}", s.loop.Frame())
	}

	s.mu.Lock()
	s.running = false
	s.ran = true
	s.mu.Unlock()

	s.metrics.Set("frame", s.loop.Frame())
	s.metrics.Set("lastDriftMs", s.loop.LastDriftMs())
	s.metrics.Set("bursts", s.loop.Bursts())
	s.metrics.Set("extraSteps", s.loop.ExtraSteps())
	s.metrics.Set("recoveredMs", s.loop.RecoveredMs())

	return err
}

// RequestExit sets the one-shot termination flag observed at the top of
// the next step. Returns api.ErrNotRunning if no run is currently in progress.
func (s *Sim) RequestExit() error {
	s.mu.Lock()
	running := s.running
	loop := s.loop
	s.mu.Unlock()
	if !running || loop == nil {
		return api.ErrNotRunning
	}
	loop.RequestExit()
	return nil
}

func (s *Sim) Frame() int64 {
	if loop := s.currentLoop(); loop != nil {
		return loop.Frame()
	}
	return 0
}

func (s *Sim) LastDriftMs() float64 {
	if loop := s.currentLoop(); loop != nil {
		return loop.LastDriftMs()
	}
	return 0
}

func (s *Sim) Bursts() int64 {
	if loop := s.currentLoop(); loop != nil {
		return loop.Bursts()
	}
	return 0
}

func (s *Sim) ExtraSteps() int64 {
	if loop := s.currentLoop(); loop != nil {
		return loop.ExtraSteps()
	}
	return 0
}

func (s *Sim) RecoveredMs() float64 {
	if loop := s.currentLoop(); loop != nil {
		return loop.RecoveredMs()
	}
	return 0
}

// GetSettings implements api.Control.
func (s *Sim) GetSettings() map[string]any {
	return s.settingsStore.AsMap()
}

// SetSettings implements api.Control; returns api.ErrAlreadyRunning once
// the run has started.
func (s *Sim) SetSettings(cfg map[string]any) error {
	return s.settingsStore.Apply(cfg)
}

// Stats implements api.Control, merging accumulated run metrics with the
// live debug probe outputs.
func (s *Sim) Stats() map[string]any {
	out := s.metrics.GetSnapshot()
	for k, v := range s.debug.DumpState() {
		out[k] = v
	}
	return out
}

func (s *Sim) OnSettingsApplied(fn func()) {
	s.settingsStore.OnApplied(fn)
}

func (s *Sim) RegisterDebugProbe(name string, fn func() any) {
	s.debug.RegisterProbe(name, fn)
}

// Shutdown joins the worker pool if one was ever created. Idempotent, and
// safe to call on a Sim that never ran.
func (s *Sim) Shutdown() error {
	s.mu.Lock()
	disp := s.disp
	s.mu.Unlock()
	if disp != nil {
		disp.Shutdown()
	}
	return nil
}
