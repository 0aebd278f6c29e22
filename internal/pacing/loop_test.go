package pacing

import (
	"sync"
	"testing"
	"time"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/internal/dispatch"
	"github.com/orbitframe/simcore/internal/registry"
	"github.com/orbitframe/simcore/obs"
)

func baseSettings() api.Settings {
	return api.Settings{
		Hz:                        1000,
		MaxFrames:                 0,
		Adaptive:                  false,
		MaxCatchUp:                8,
		Threads:                   2,
		MainHelps:                 false,
		ChunkSize:                 8,
		SpinMicros:                200,
		DriftLogInterval:          0,
		MaxCatchUpThresholdFrames: 3,
	}
}

func TestLoopFrameCountMatchesMaxFrames(t *testing.T) {
	reg := registry.New()
	pid := reg.AddPhase("noop", 0)
	reg.AddSerialSubsystem(pid, func(frame int64, dt time.Duration) {})

	disp := dispatch.NewDispatcher(1, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 500
	s.MaxFrames = 600
	s.Threads = 1

	loop := New(reg, disp, s, nil, nil)
	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if loop.Frame() != 600 {
		t.Fatalf("Frame() = %d, want 600", loop.Frame())
	}
}

func TestLoopOrderingWithinPhase(t *testing.T) {
	reg := registry.New()
	pid := reg.AddPhase("p", 20)

	var mu sync.Mutex
	var events []string
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}

	reg.AddSerialSubsystem(pid, func(frame int64, dt time.Duration) { record("serial1") })
	reg.AddSerialSubsystem(pid, func(frame int64, dt time.Duration) { record("serial2") })
	reg.AddParallelRangeTask(pid, func(begin, end int, frame int64, dt time.Duration) { record("range1") })
	reg.AddParallelRangeTask(pid, func(begin, end int, frame int64, dt time.Duration) { record("range2") })
	reg.AddReductionTask(pid, func(frame int64, dt time.Duration) { record("reduce1") })
	reg.AddReductionTask(pid, func(frame int64, dt time.Duration) { record("reduce2") })

	disp := dispatch.NewDispatcher(4, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 1000
	s.MaxFrames = 1
	s.Threads = 4
	s.ChunkSize = 4

	loop := New(reg, disp, s, nil, nil)
	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 20 elements in chunks of 4: each range task is invoked once per chunk,
	// and every chunk of range1 completes before range2 is dispatched.
	want := []string{
		"serial1", "serial2",
		"range1", "range1", "range1", "range1", "range1",
		"range2", "range2", "range2", "range2", "range2",
		"reduce1", "reduce2",
	}
	if len(events) != len(want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	for i, e := range want {
		if events[i] != e {
			t.Fatalf("events[%d] = %q, want %q (full: %v)", i, events[i], e, events)
		}
	}
}

func TestLoopAdaptiveDriftBound(t *testing.T) {
	reg := registry.New()
	reg.AddPhase("empty", 0)

	disp := dispatch.NewDispatcher(2, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 1000
	s.MaxFrames = 1500
	s.Adaptive = true
	s.Threads = 2

	loop := New(reg, disp, s, nil, nil)
	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if d := loop.LastDriftMs(); d > 5.0 || d < -5.0 {
		t.Fatalf("LastDriftMs() = %v, want within +/-5ms", d)
	}
}

func TestLoopProfilerCountsFrameAndPhaseScopes(t *testing.T) {
	reg := registry.New()
	pid := reg.AddPhase("Physics", 0)
	reg.AddSerialSubsystem(pid, func(frame int64, dt time.Duration) { _ = frame * 2 })

	disp := dispatch.NewDispatcher(1, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 200
	s.MaxFrames = 100
	s.Threads = 1

	prof := obs.NewProfileRegistry()
	loop := New(reg, disp, s, nil, prof)
	if err := loop.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	summary := prof.Summary()
	byName := map[string]int{}
	for _, sc := range summary {
		byName[sc.Name] = int(sc.Count)
	}
	if byName["Frame"] != 100 {
		t.Fatalf("Frame scope count = %d, want 100", byName["Frame"])
	}
	if byName["Physics"] != 100 {
		t.Fatalf("Physics phase scope count = %d, want 100", byName["Physics"])
	}
}

func TestLoopRequestExitStopsEarly(t *testing.T) {
	reg := registry.New()
	reg.AddPhase("empty", 0)

	disp := dispatch.NewDispatcher(1, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 2000
	s.MaxFrames = api.MaxFramesUnbounded
	s.Threads = 1

	loop := New(reg, disp, s, nil, nil)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(20 * time.Millisecond)
	loop.RequestExit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after RequestExit")
	}
	if loop.Frame() <= 0 {
		t.Fatal("expected at least one frame to have run before exit")
	}
}

func TestLoopNegativeMaxFramesRunsUnbounded(t *testing.T) {
	reg := registry.New()
	reg.AddPhase("empty", 0)

	disp := dispatch.NewDispatcher(1, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 2000
	s.MaxFrames = -100 // any negative value, not just api.MaxFramesUnbounded
	s.Threads = 1

	loop := New(reg, disp, s, nil, nil)

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(20 * time.Millisecond)
	loop.RequestExit()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after RequestExit")
	}
	if loop.Frame() <= 0 {
		t.Fatalf("Frame() = %d, want > 0 (MaxFrames=-100 must not act as a zero-frame budget)", loop.Frame())
	}
}

func TestLoopSurfacesWorkerFault(t *testing.T) {
	reg := registry.New()
	pid := reg.AddPhase("faulty", 10)
	reg.AddParallelRangeTask(pid, func(begin, end int, frame int64, dt time.Duration) {
		panic("boom")
	})

	disp := dispatch.NewDispatcher(2, false, false)
	defer disp.Shutdown()

	s := baseSettings()
	s.Hz = 1000
	s.MaxFrames = api.MaxFramesUnbounded
	s.Threads = 2
	s.ChunkSize = 2

	loop := New(reg, disp, s, nil, nil)
	if err := loop.Run(); err == nil {
		t.Fatal("expected Run to surface the worker fault")
	}
}
