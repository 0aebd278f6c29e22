// Package ringbuf implements a bounded, lock-free MPMC ring buffer used for
// the log ring sink. Padded head/tail counters avoid false sharing between
// producers and consumers.
package ringbuf

import "sync/atomic"

type cell[T any] struct {
	sequence atomic.Uint64
	data     T
}

// RingBuffer is a lock-free bounded MPMC ring buffer, sized to the next
// power of two at or above the requested capacity.
type RingBuffer[T any] struct {
	head  uint64
	_     [64]byte
	tail  uint64
	_     [64]byte
	mask  uint64
	cells []cell[T]
}

// New allocates a ring buffer of at least the given capacity.
func New[T any](capacity int) *RingBuffer[T] {
	size := uint64(2)
	for size < uint64(capacity) {
		size <<= 1
	}
	r := &RingBuffer[T]{
		mask:  size - 1,
		cells: make([]cell[T], size),
	}
	for i := range r.cells {
		r.cells[i].sequence.Store(uint64(i))
	}
	return r
}

// Enqueue adds an item; returns false if the buffer is full.
func (r *RingBuffer[T]) Enqueue(item T) bool {
	for {
		tail := atomic.LoadUint64(&r.tail)
		c := &r.cells[tail&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(tail)
		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.tail, tail, tail+1) {
				c.data = item
				c.sequence.Store(tail + 1)
				return true
			}
		case dif < 0:
			return false
		}
	}
}

// Dequeue removes and returns the oldest item; ok is false if empty.
func (r *RingBuffer[T]) Dequeue() (item T, ok bool) {
	for {
		head := atomic.LoadUint64(&r.head)
		c := &r.cells[head&r.mask]
		seq := c.sequence.Load()
		dif := int64(seq) - int64(head+1)
		switch {
		case dif == 0:
			if atomic.CompareAndSwapUint64(&r.head, head, head+1) {
				item = c.data
				c.sequence.Store(head + r.mask + 1)
				return item, true
			}
		case dif < 0:
			var zero T
			return zero, false
		}
	}
}

// Len returns the current occupancy. It is a snapshot, not a synchronization point.
func (r *RingBuffer[T]) Len() int {
	head := atomic.LoadUint64(&r.head)
	tail := atomic.LoadUint64(&r.tail)
	return int(tail - head)
}

// Cap returns the fixed capacity.
func (r *RingBuffer[T]) Cap() int {
	return len(r.cells)
}

// EnqueueOverwrite pushes item, and if the buffer is full, drops the oldest
// entry first so the newest samples are never rejected. Used by bounded
// history sinks where "latest N" matters more than "never drop".
func (r *RingBuffer[T]) EnqueueOverwrite(item T) {
	for !r.Enqueue(item) {
		if _, ok := r.Dequeue(); !ok {
			continue
		}
	}
}
