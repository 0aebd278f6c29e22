// Package dispatch implements the single-producer/many-consumer range
// dispatcher and its persistent worker set: the parallel half of the core.
// The driver publishes one ActiveRange at a time; workers claim chunk
// indices from it with a single relaxed fetch-add and signal completion
// with an acquire-release decrement. There is no mutex on this path.
package dispatch

import (
	"sync/atomic"
	"time"

	"github.com/orbitframe/simcore/api"
)

// activeRange is the transient descriptor for one in-flight range task.
// It is published as a single atomic pointer swap so every worker observes
// a consistent snapshot of task/elementCount/chunkSize/totalChunks/frame/dt
// together; nextChunk and remaining are mutated independently afterward.
type activeRange struct {
	task         api.RangeTaskFunc
	elementCount int
	chunkSize    int
	totalChunks  int
	frame        int64
	dt           time.Duration

	nextChunk atomic.Int64
	remaining atomic.Int64
}

func newActiveRange(task api.RangeTaskFunc, elementCount, chunkSize int, frame int64, dt time.Duration) *activeRange {
	if chunkSize < 1 {
		chunkSize = 1
	}
	totalChunks := (elementCount + chunkSize - 1) / chunkSize
	ar := &activeRange{
		task:         task,
		elementCount: elementCount,
		chunkSize:    chunkSize,
		totalChunks:  totalChunks,
		frame:        frame,
		dt:           dt,
	}
	ar.remaining.Store(int64(totalChunks))
	return ar
}

// claim returns the next chunk index to process, or false once every index
// in [0, totalChunks) has already been claimed. Uniqueness is all that's
// required of nextChunk, so the fetch-add itself needs no ordering beyond
// what the Go memory model already guarantees for atomics.
func (ar *activeRange) claim() (begin, end int, ok bool) {
	idx := int(ar.nextChunk.Add(1) - 1)
	if idx >= ar.totalChunks {
		return 0, 0, false
	}
	begin = idx * ar.chunkSize
	end = begin + ar.chunkSize
	if end > ar.elementCount {
		end = ar.elementCount
	}
	return begin, end, true
}

// finishChunk records completion of one claimed chunk and reports whether
// the range has now fully drained.
func (ar *activeRange) finishChunk() (drained bool) {
	return ar.remaining.Add(-1) == 0
}

func (ar *activeRange) isDrained() bool {
	return ar.remaining.Load() == 0
}
