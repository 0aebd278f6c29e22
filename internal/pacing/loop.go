// Package pacing implements the fixed-step driver: it owns frame/deadline
// state, walks the phase registry once per step, and drives the range
// dispatcher for each phase's parallel tasks. It is the only component that
// ever advances the simulation clock.
package pacing

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/internal/backoff"
	"github.com/orbitframe/simcore/internal/dispatch"
	"github.com/orbitframe/simcore/internal/registry"
	"github.com/orbitframe/simcore/internal/timing"
	"github.com/orbitframe/simcore/obs"
)

// Loop is the pacing driver for one run. It is single-use: Run executes the
// whole simulation and returns; a Loop must not be run twice.
type Loop struct {
	reg      *registry.Registry
	disp     *dispatch.Dispatcher
	settings api.Settings
	model    timing.Model
	log      *obs.Logger
	prof     api.ProfileSink

	frame       atomic.Int64
	terminate   atomic.Bool
	lastDriftMs atomic.Uint64
	bursts      atomic.Int64
	extraSteps  atomic.Int64
	recoveredMs atomic.Uint64
	detHash     atomic.Uint64
	detHashSet  atomic.Bool
}

// New builds a Loop over an already-populated, not-yet-frozen registry.
// settings must already be repaired (see control.SettingsStore).
func New(reg *registry.Registry, disp *dispatch.Dispatcher, settings api.Settings, log *obs.Logger, prof api.ProfileSink) *Loop {
	return &Loop{
		reg:      reg,
		disp:     disp,
		settings: settings,
		model:    timing.Derive(settings.Hz),
		log:      log,
		prof:     prof,
	}
}

// RequestExit sets the one-shot termination flag, observed at the top of
// the next step. Safe to call from any goroutine.
func (l *Loop) RequestExit() {
	l.terminate.Store(true)
}

// Frame returns the number of completed steps so far. Safe to call
// concurrently with Run.
func (l *Loop) Frame() int64 { return l.frame.Load() }

func (l *Loop) LastDriftMs() float64 { return math.Float64frombits(l.lastDriftMs.Load()) }
func (l *Loop) Bursts() int64        { return l.bursts.Load() }
func (l *Loop) ExtraSteps() int64    { return l.extraSteps.Load() }
func (l *Loop) RecoveredMs() float64 { return math.Float64frombits(l.recoveredMs.Load()) }

// SetDeterministicHash records the opaque identity value a reduction
// computed for the current or most recent step.
func (l *Loop) SetDeterministicHash(h uint64) {
	l.detHash.Store(h)
	l.detHashSet.Store(true)
}

// DeterministicHash returns the last value set by SetDeterministicHash, and
// whether one was ever set.
func (l *Loop) DeterministicHash() (uint64, bool) {
	return l.detHash.Load(), l.detHashSet.Load()
}

// Run walks the fixed-step schedule until the frame budget is exhausted or
// RequestExit is called, returning the first worker fault encountered.
func (l *Loop) Run() error {
	l.reg.Freeze()

	startReal := time.Now()
	nextFrameTarget := startReal
	var waitBackoff backoff.Backoff

	step := func() (budgetDone bool, err error) {
		if l.terminate.Load() {
			return true, nil
		}
		if l.settings.MaxFrames >= 0 && l.frame.Load() >= l.settings.MaxFrames {
			return true, nil
		}
		if err := l.doStep(l.frame.Load(), l.model.Dt); err != nil {
			return true, err
		}
		l.frame.Add(1)
		return false, nil
	}

outer:
	for {
		for i := 0; i < l.model.SubSteps; i++ {
			done, err := step()
			if err != nil {
				return err
			}
			if done {
				break outer
			}
			nextFrameTarget = nextFrameTarget.Add(l.model.Dt)
		}

		l.waitDeadline(nextFrameTarget, &waitBackoff)

		if l.settings.Adaptive {
			if err := l.runCatchUp(&nextFrameTarget, step); err != nil {
				return err
			}
		}

		l.setLastDriftMs(float64(time.Since(nextFrameTarget)) / float64(time.Millisecond))
		l.maybeLogDrift(startReal)
	}
	return nil
}

// runCatchUp issues bounded extra steps when the driver is behind
// nextFrameTarget, without advancing the deadline between them. The bound
// is per outer iteration, not cumulative across the run.
func (l *Loop) runCatchUp(nextFrameTarget *time.Time, step func() (bool, error)) error {
	behind := time.Since(*nextFrameTarget)
	if behind <= 0 {
		return nil
	}
	extra := int(behind / l.model.Dt)
	if extra > l.settings.MaxCatchUp {
		extra = l.settings.MaxCatchUp
	}
	if extra <= 0 {
		return nil
	}
	ran := 0
	var err error
	for ; ran < extra; ran++ {
		var done bool
		done, err = step()
		if err != nil || done {
			break
		}
	}
	if ran == 0 {
		return err
	}
	l.extraSteps.Add(int64(ran))
	if ran > l.settings.MaxCatchUpThresholdFrames {
		l.bursts.Add(1)
	}
	recMs := float64(ran) * float64(l.model.Dt) / float64(time.Millisecond)
	l.addRecoveredMs(recMs)
	return err
}

func (l *Loop) waitDeadline(target time.Time, b *backoff.Backoff) {
	spin := time.Duration(l.settings.SpinMicros) * time.Microsecond
	for time.Now().Add(spin).Before(target) {
		time.Sleep(50 * time.Microsecond)
	}
	b.Reset()
	for time.Now().Before(target) {
		b.Wait()
	}
}

func (l *Loop) doStep(frame int64, dt time.Duration) error {
	stop := l.startScope("Frame")
	defer stop()

	if l.settings.LogPhases {
		l.log.Trace("step begin frame={}", frame)
	}
	for _, phase := range l.reg.Phases() {
		if !phase.Enabled {
			continue
		}
		if err := l.runPhase(phase, frame, dt); err != nil {
			return err
		}
	}
	if l.settings.LogPhases {
		l.log.Trace("step end frame={}", frame)
	}
	return nil
}

func (l *Loop) runPhase(phase *registry.Phase, frame int64, dt time.Duration) error {
	stop := l.startScope(phase.Name)
	defer stop()

	if l.settings.LogPhases {
		l.log.Trace("phase begin {} frame={}", phase.Name, frame)
	}
	for _, fn := range phase.SerialSubsystems {
		fn(frame, dt)
	}
	for _, task := range phase.ParallelRangeTasks {
		if l.settings.LogRangeTasks {
			l.log.Trace("range task begin phase={} frame={}", phase.Name, frame)
		}
		rangeStop := l.startScope(phase.Name + ".range")
		err := l.disp.Run(task, phase.ElementCount, l.settings.ChunkSize, frame, dt)
		rangeStop()
		if l.settings.LogRangeTasks {
			l.log.Trace("range task end phase={} frame={}", phase.Name, frame)
		}
		if err != nil {
			return err
		}
	}
	for _, fn := range phase.Reductions {
		reduceStop := l.startScope(phase.Name + ".reduce")
		fn(frame, dt)
		reduceStop()
	}
	if l.settings.LogPhases {
		l.log.Trace("phase end {} frame={}", phase.Name, frame)
	}
	return nil
}

func (l *Loop) startScope(name string) func() {
	if l.prof == nil {
		return func() {}
	}
	return l.prof.StartScope(name)
}

func (l *Loop) setLastDriftMs(ms float64) {
	l.lastDriftMs.Store(math.Float64bits(ms))
}

func (l *Loop) addRecoveredMs(ms float64) {
	for {
		old := l.recoveredMs.Load()
		next := math.Float64bits(math.Float64frombits(old) + ms)
		if l.recoveredMs.CompareAndSwap(old, next) {
			return
		}
	}
}

func (l *Loop) maybeLogDrift(startReal time.Time) {
	if l.log == nil || l.settings.DriftLogInterval <= 0 {
		return
	}
	frame := l.frame.Load()
	if frame%l.settings.DriftLogInterval != 0 {
		return
	}
	simMs := float64(frame) * float64(l.model.Dt) / float64(time.Millisecond)
	realMs := float64(time.Since(startReal)) / float64(time.Millisecond)
	l.log.Trace("simT={} realT={} driftMs={}", simMs, realMs, l.LastDriftMs())
}
