// File: cmd/simcore/main.go
//
// Command-line entry point for the fixed-timestep simulation core: parses
// run parameters, wires a stress-style physics workload onto a Sim, and
// prints the final frame/hash/adaptive-stats summary.

package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"time"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/obs"
	"github.com/orbitframe/simcore/sim"
)

func main() {
	hz := flag.Float64("hz", 1000.0, "target step rate")
	frames := flag.Int64("frames", 3000, "step budget (negative means unbounded)")
	threads := flag.Int("threads", 0, "worker population size (0 = NumCPU, at least 2)")
	chunk := flag.Int("chunk", 128, "elements per dispatched chunk")
	maxCatchUp := flag.Int("maxCatchUp", 32, "catch-up step cap per outer iteration")
	thresholdFrames := flag.Int("thresholdFrames", 1, "extras above this count as a burst")
	elements := flag.Int("elements", 5000, "physics phase element count")
	adaptive := flag.Int("adaptive", 1, "1 enables catch-up bursts, 0 disables")
	spinMicros := flag.Int("spinMicros", 200, "busy-spin lead time before a deadline")
	pin := flag.Bool("pin", false, "pin each worker to one logical CPU")
	stress := flag.Bool("stress", false, "inject periodic stalls into the input phase")
	flag.Parse()

	if *threads <= 0 {
		*threads = defaultThreads()
	}

	settings := api.Settings{
		Hz:                        *hz,
		MaxFrames:                 *frames,
		Adaptive:                  *adaptive != 0,
		MaxCatchUp:                *maxCatchUp,
		Threads:                   *threads,
		Pin:                       *pin,
		ChunkSize:                 *chunk,
		SpinMicros:                *spinMicros,
		DriftLogInterval:          250,
		MaxCatchUpThresholdFrames: *thresholdFrames,
		LogPhases:                 true,
		LogRangeTasks:             false,
	}

	s := sim.New(settings)
	defer s.Shutdown()

	logger := obs.NewLogger(api.LevelInfo)
	logger.AddSink(obs.NewStdoutSink())
	s.AttachLog(obs.NewStdoutSink())

	prof := obs.NewProfileRegistry()
	s.AttachProf(prof)

	n := *elements
	pos := make([]float64, n)
	vel := make([]float64, n)
	thr := make([]float64, n)
	force := make([]float64, n)
	for i := range vel {
		vel[i] = 10.0
		thr[i] = 0.5
	}

	input := s.AddPhase("Input", 0)
	physics := s.AddPhase("Physics", n)

	s.AddSerialSubsystem(input, func(frame int64, dt time.Duration) {
		t := float64(frame) * dt.Seconds()
		for i := range thr {
			thr[i] = 0.5 + 0.05*math.Sin(t+float64(i)*0.0005)
		}
		if *stress && frame > 0 && frame%750 == 0 {
			time.Sleep(5 * time.Millisecond)
			logger.Info("[STALL] 5ms frame={}", frame)
		}
	})

	s.AddParallelRangeTask(physics, func(begin, end int, frame int64, dt time.Duration) {
		for i := begin; i < end; i++ {
			force[i] = thr[i] * 1000.0
		}
	})
	s.AddParallelRangeTask(physics, func(begin, end int, frame int64, dt time.Duration) {
		dts := dt.Seconds()
		for i := begin; i < end; i++ {
			vel[i] += (force[i] / 1200.0) * dts
			pos[i] += vel[i] * dts
		}
	})
	s.AddReductionTask(physics, func(frame int64, dt time.Duration) {
		if frame%1000 != 0 {
			return
		}
		h := uint64(1469598103934665603)
		var sum float64
		for _, v := range vel {
			h ^= math.Float64bits(v)
			h *= 1099511628211
			sum += v
		}
		s.SetDeterministicHash(h)
		logger.Info("[REDUCE] frame={} avgVel={} hash={}", frame, sum/float64(len(vel)), fmt.Sprintf("0x%016x", h))
	})

	if err := s.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "simulation aborted: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Final frame=%d pos0=%v vel0=%v hash=0x%x\n", s.Frame(), pos[0], vel[0], s.DeterministicHash())
	if settings.Adaptive {
		fmt.Printf("AdaptiveStats bursts=%d extraSteps=%d recoveredMs=%.2f\n", s.Bursts(), s.ExtraSteps(), s.RecoveredMs())
	}

	for _, sc := range prof.Summary() {
		avgUs := float64(sc.TotalNs) / float64(sc.Count) / 1000.0
		fmt.Printf("%-24s count=%-8d avg=%.3fus total=%.3fms min=%.3fus max=%.3fus\n",
			sc.Name, sc.Count, avgUs, float64(sc.TotalNs)/1e6, float64(sc.MinNs)/1000.0, float64(sc.MaxNs)/1000.0)
	}
}

func defaultThreads() int {
	if n := runtime.NumCPU(); n >= 2 {
		return n
	}
	return 2
}
