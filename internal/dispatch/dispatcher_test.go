package dispatch

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/orbitframe/simcore/api"
)

type span struct{ begin, end int }

func TestDispatcherChunkCoverageIsDisjointAndComplete(t *testing.T) {
	d := NewDispatcher(4, false, false)
	defer d.Shutdown()

	const elementCount = 97
	const chunkSize = 10

	var mu sync.Mutex
	var spans []span
	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		mu.Lock()
		spans = append(spans, span{begin, end})
		mu.Unlock()
	}, elementCount, chunkSize, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	sort.Slice(spans, func(i, j int) bool { return spans[i].begin < spans[j].begin })
	covered := 0
	for i, s := range spans {
		if s.begin != covered {
			t.Fatalf("gap or overlap at chunk %d: begin=%d, want %d", i, s.begin, covered)
		}
		covered = s.end
	}
	if covered != elementCount {
		t.Fatalf("total covered = %d, want %d", covered, elementCount)
	}
}

func TestDispatcherTwoWorkersChunkSizeOneThreeElements(t *testing.T) {
	d := NewDispatcher(2, false, false)
	defer d.Shutdown()

	var mu sync.Mutex
	seen := map[span]bool{}
	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		mu.Lock()
		seen[span{begin, end}] = true
		mu.Unlock()
	}, 3, 1, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	want := map[span]bool{{0, 1}: true, {1, 2}: true, {2, 3}: true}
	if len(seen) != len(want) {
		t.Fatalf("got %d distinct chunks, want %d: %v", len(seen), len(want), seen)
	}
	for s := range want {
		if !seen[s] {
			t.Fatalf("missing chunk %v", s)
		}
	}
}

func TestDispatcherEmptyRangeIsNoop(t *testing.T) {
	d := NewDispatcher(2, false, false)
	defer d.Shutdown()

	called := false
	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		called = true
	}, 0, 8, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if called {
		t.Fatal("task should not run for an empty range")
	}
}

func TestDispatcherSingleWorkerRunsDirect(t *testing.T) {
	d := NewDispatcher(1, false, false)
	defer d.Shutdown()

	var got span
	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		got = span{begin, end}
	}, 42, 5, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if got != (span{0, 42}) {
		t.Fatalf("single-worker run got %v, want the full range in one call", got)
	}
}

func TestDispatcherSurfacesWorkerFault(t *testing.T) {
	d := NewDispatcher(4, false, false)
	defer d.Shutdown()

	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		if begin == 0 {
			panic("boom")
		}
	}, 40, 10, 1, time.Millisecond)
	if err == nil {
		t.Fatal("expected an error after a worker panic")
	}
}

func TestDispatcherMainHelpsParticipates(t *testing.T) {
	d := NewDispatcher(1, false, true)
	defer d.Shutdown()

	var mu sync.Mutex
	count := 0
	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {
		mu.Lock()
		count++
		mu.Unlock()
	}, 20, 5, 1, time.Millisecond)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if count != 4 {
		t.Fatalf("chunk invocations = %d, want 4", count)
	}
}

func TestDispatcherShutdownIsIdempotent(t *testing.T) {
	d := NewDispatcher(3, false, false)
	d.Shutdown()
	d.Shutdown()
	d.Shutdown()
}

func TestDispatcherRunAfterShutdownReturnsClosedError(t *testing.T) {
	d := NewDispatcher(3, false, false)
	d.Shutdown()

	err := d.Run(func(begin, end int, frame int64, dt time.Duration) {}, 10, 2, 0, time.Millisecond)
	if err == nil {
		t.Fatal("Run after Shutdown returned nil error, want api.ErrDispatcherClosed")
	}
	if !errors.Is(err, api.ErrDispatcherClosed) {
		t.Errorf("Run after Shutdown err = %v, want errors.Is match for api.ErrDispatcherClosed", err)
	}
}

func TestDispatcherRunsMultipleFramesSequentially(t *testing.T) {
	d := NewDispatcher(4, false, false)
	defer d.Shutdown()

	for frame := int64(0); frame < 50; frame++ {
		var mu sync.Mutex
		total := 0
		err := d.Run(func(begin, end int, f int64, dt time.Duration) {
			if f != frame {
				panic(fmt.Sprintf("frame mismatch: got %d want %d", f, frame))
			}
			mu.Lock()
			total += end - begin
			mu.Unlock()
		}, 100, 7, frame, time.Millisecond)
		if err != nil {
			t.Fatalf("frame %d: Run returned error: %v", frame, err)
		}
		if total != 100 {
			t.Fatalf("frame %d: total elements processed = %d, want 100", frame, total)
		}
	}
}
