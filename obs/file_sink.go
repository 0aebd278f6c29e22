package obs

import (
	"fmt"
	"os"
	"sync"

	"github.com/eapache/queue"

	"github.com/orbitframe/simcore/api"
)

// FileSink appends formatted lines to a file. Write only enqueues; a single
// background goroutine drains the queue and performs the actual I/O, so a
// slow disk never blocks the caller's log site.
type FileSink struct {
	f *os.File

	mu     sync.Mutex
	cond   *sync.Cond
	q      *queue.Queue
	closed bool
	done   chan struct{}
}

// NewFileSink opens path for appending (creating it if necessary) and
// starts the background flusher.
func NewFileSink(path string) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("obs: open log file: %w", err)
	}
	s := &FileSink{
		f:    f,
		q:    queue.New(),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.flushLoop()
	return s, nil
}

func (s *FileSink) Write(r api.Record) {
	line := fmt.Sprintf("[%s] #%d tid=%d %s %s", r.Level, r.Seq, r.TID, r.Time.Format("15:04:05.000000"), r.Msg)
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.q.Add(line)
	s.cond.Signal()
	s.mu.Unlock()
}

func (s *FileSink) flushLoop() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.q.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.q.Length() == 0 && s.closed {
			s.mu.Unlock()
			return
		}
		pending := make([]string, 0, s.q.Length())
		for s.q.Length() > 0 {
			pending = append(pending, s.q.Remove().(string))
		}
		s.mu.Unlock()

		for _, line := range pending {
			fmt.Fprintln(s.f, line)
		}
	}
}

// Shutdown drains any pending lines, closes the file, and joins the
// background flusher. Idempotent.
func (s *FileSink) Shutdown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return nil
	}
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()
	<-s.done
	return s.f.Close()
}
