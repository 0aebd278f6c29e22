package dispatch

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestWorkerSetDispatchesToAllWorkers(t *testing.T) {
	const n = 6
	var hits atomic.Int64
	done := make(chan struct{})

	ws := NewWorkerSet(n, false, func() {
		if hits.Add(1) == n {
			close(done)
		}
	})
	defer ws.Shutdown()

	ws.Dispatch()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("only %d/%d workers observed the dispatch token", hits.Load(), n)
	}
}

func TestWorkerSetShutdownJoinsAllWorkers(t *testing.T) {
	ws := NewWorkerSet(4, false, func() {})
	ws.Shutdown()
	ws.Shutdown()
	if ws.NumWorkers() != 4 {
		t.Fatalf("NumWorkers() = %d, want 4", ws.NumWorkers())
	}
}

func TestWorkerSetMinimumOneWorker(t *testing.T) {
	ws := NewWorkerSet(0, false, func() {})
	defer ws.Shutdown()
	if ws.NumWorkers() != 1 {
		t.Fatalf("NumWorkers() = %d, want 1 (repaired from 0)", ws.NumWorkers())
	}
}
