package dispatch

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/internal/backoff"
)

// Dispatcher owns a WorkerSet and drives it through one range task at a
// time. It is the driver-facing half of the parallel core; WorkerSet is the
// worker-facing half. There is exactly one Dispatcher per simulation.
type Dispatcher struct {
	ws        *WorkerSet
	current   atomic.Pointer[activeRange]
	fault     atomic.Pointer[error]
	mainHelps bool
	closed    atomic.Bool
}

// NewDispatcher builds a Dispatcher with a persistent pool of `threads`
// workers. If mainHelps is true, the calling goroutine also claims and runs
// chunks for every dispatched range instead of only waiting on the workers.
func NewDispatcher(threads int, pin bool, mainHelps bool) *Dispatcher {
	if threads < 1 {
		threads = 1
	}
	d := &Dispatcher{mainHelps: mainHelps}
	d.ws = NewWorkerSet(threads, pin, d.participate)
	return d
}

// participate is invoked by every worker goroutine each time the dispatch
// token advances. It is a no-op if no range is currently published, which
// happens when a worker wakes only after the driver has already drained and
// cleared the range.
func (d *Dispatcher) participate() {
	ar := d.current.Load()
	if ar == nil {
		return
	}
	d.drainRange(ar)
}

func (d *Dispatcher) drainRange(ar *activeRange) {
	for {
		begin, end, ok := ar.claim()
		if !ok {
			return
		}
		d.runChunk(ar, begin, end)
	}
}

func (d *Dispatcher) runChunk(ar *activeRange, begin, end int) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", api.ErrWorkerFault, r)
			d.fault.CompareAndSwap(nil, &err)
		}
		ar.finishChunk()
	}()
	ar.task(begin, end, ar.frame, ar.dt)
}

// Run dispatches one range task over [0, elementCount) split into chunkSize
// pieces and blocks until every chunk has completed, faulted, or the range
// is trivially empty. It returns the first worker fault observed, if any, or
// api.ErrDispatcherClosed if called after Shutdown.
func (d *Dispatcher) Run(task api.RangeTaskFunc, elementCount, chunkSize int, frame int64, dt time.Duration) error {
	if d.closed.Load() {
		return api.NewError(api.ErrCodeInternal, api.ErrDispatcherClosed.Error()).
			Wrap(api.ErrDispatcherClosed).
			WithContext("frame", frame)
	}
	if elementCount <= 0 {
		return nil
	}

	participants := d.ws.NumWorkers()
	if d.mainHelps {
		participants++
	}
	if participants <= 1 {
		d.runDirect(task, elementCount, frame, dt)
		return d.takeFault()
	}

	ar := newActiveRange(task, elementCount, chunkSize, frame, dt)
	d.current.Store(ar)
	d.ws.Dispatch()

	if d.mainHelps {
		d.drainRange(ar)
	}

	var b backoff.Backoff
	for !ar.isDrained() {
		b.Wait()
	}
	d.current.Store(nil)

	return d.takeFault()
}

// runDirect handles the case where no concurrency is available or useful:
// exactly one participant would ever claim work, so the dispatch machinery
// is pure overhead.
func (d *Dispatcher) runDirect(task api.RangeTaskFunc, elementCount int, frame int64, dt time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", api.ErrWorkerFault, r)
			d.fault.CompareAndSwap(nil, &err)
		}
	}()
	task(0, elementCount, frame, dt)
}

func (d *Dispatcher) takeFault() error {
	p := d.fault.Swap(nil)
	if p == nil {
		return nil
	}
	return *p
}

// NumWorkers reports the fixed worker population size.
func (d *Dispatcher) NumWorkers() int {
	return d.ws.NumWorkers()
}

// Shutdown joins every worker goroutine. Idempotent. Once called, further
// calls to Run return api.ErrDispatcherClosed.
func (d *Dispatcher) Shutdown() {
	d.closed.Store(true)
	d.ws.Shutdown()
}
