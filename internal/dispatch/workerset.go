package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/orbitframe/simcore/internal/affinity"
	"github.com/orbitframe/simcore/internal/backoff"
)

// WorkerSet is a fixed population of goroutines created at construction and
// joined at Shutdown. Each worker idles on the dispatch token and, once it
// changes, calls back into participate to drain the currently active range.
// Workers own no data that outlives their goroutine.
type WorkerSet struct {
	token    atomic.Uint64
	shutdown atomic.Bool
	wg       sync.WaitGroup
	n        int
	pin      bool
}

// NewWorkerSet starts n persistent workers. participate is called by each
// worker every time the token advances, and must return once the currently
// active range is drained or observed complete. pin requests best-effort
// CPU affinity, one core per worker, on platforms that support it.
func NewWorkerSet(n int, pin bool, participate func()) *WorkerSet {
	if n < 1 {
		n = 1
	}
	ws := &WorkerSet{n: n, pin: pin}
	ws.wg.Add(n)
	for i := 0; i < n; i++ {
		go ws.workerLoop(i, participate)
	}
	return ws
}

func (ws *WorkerSet) workerLoop(id int, participate func()) {
	defer ws.wg.Done()
	if ws.pin {
		if err := affinity.Pin(id); err == nil {
			defer affinity.Unpin()
		}
	}

	var local uint64
	var b backoff.Backoff
	for {
		for {
			cur := ws.token.Load()
			if cur != local || ws.shutdown.Load() {
				local = cur
				break
			}
			b.Wait()
		}
		b.Reset()
		if ws.shutdown.Load() {
			return
		}
		participate()
	}
}

// NumWorkers reports the fixed worker population size.
func (ws *WorkerSet) NumWorkers() int {
	return ws.n
}

// Dispatch increments the dispatch token, waking every idle worker.
func (ws *WorkerSet) Dispatch() {
	ws.token.Add(1)
}

// Shutdown stops accepting new tokens, wakes idle workers so they observe
// the shutdown flag, and joins all of them. Idempotent.
func (ws *WorkerSet) Shutdown() {
	if ws.shutdown.CompareAndSwap(false, true) {
		ws.token.Add(1)
	}
	ws.wg.Wait()
}
