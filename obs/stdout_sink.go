package obs

import (
	"fmt"
	"os"
	"sync"

	"github.com/orbitframe/simcore/api"
)

// StdoutSink writes one line per record to os.Stdout, serialized by a mutex
// since concurrent writers would otherwise interleave partial lines.
type StdoutSink struct {
	mu sync.Mutex
}

// NewStdoutSink returns a ready-to-use stdout sink.
func NewStdoutSink() *StdoutSink {
	return &StdoutSink{}
}

func (s *StdoutSink) Write(r api.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(os.Stdout, "[%s] #%d tid=%d %s %s\n",
		r.Level, r.Seq, r.TID, r.Time.Format("15:04:05.000000"), r.Msg)
}
