package obs

import (
	"fmt"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/internal/ringbuf"
)

// RingSink retains only the most recent `capacity` formatted records,
// overwriting the oldest once full. Snapshot returns them oldest-first.
type RingSink struct {
	buf *ringbuf.RingBuffer[string]
}

// NewRingSink returns a ring sink whose capacity is the requested capacity
// rounded up to the next power of two (minimum 2); it may therefore retain
// more than capacity records.
func NewRingSink(capacity int) *RingSink {
	return &RingSink{buf: ringbuf.New[string](capacity)}
}

func (s *RingSink) Write(r api.Record) {
	line := fmt.Sprintf("[%s] #%d tid=%d %s %s", r.Level, r.Seq, r.TID, r.Time.Format("15:04:05.000000"), r.Msg)
	s.buf.EnqueueOverwrite(line)
}

// Snapshot drains the ring and returns its current contents, oldest first.
// It is destructive: repeated calls without intervening writes return an
// empty slice, matching the ring's role as a rolling tail rather than a log.
func (s *RingSink) Snapshot() []string {
	var out []string
	for {
		v, ok := s.buf.Dequeue()
		if !ok {
			break
		}
		out = append(out, v)
	}
	return out
}
