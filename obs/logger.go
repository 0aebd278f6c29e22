// Package obs provides the concrete logging and profiling facilities the
// core's injection points call into. The core only knows api.LogSink and
// api.ProfileSink; Logger and ProfileRegistry here are the collaborator-side
// implementations, along with the sinks that back them.
package obs

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbitframe/simcore/api"
)

// Logger gates records by level, substitutes "{}" placeholders in order,
// stamps sequence number/thread id/timestamp, and fans the finished Record
// out to every attached sink. A nil *Logger is safe to call through methods
// on: every method checks for a nil receiver before doing any work.
type Logger struct {
	level atomic.Int32
	seq   atomic.Uint64

	mu    sync.Mutex
	sinks []api.LogSink
}

// NewLogger returns a Logger gating at level, with no sinks attached.
func NewLogger(level api.Level) *Logger {
	l := &Logger{}
	l.level.Store(int32(level))
	return l
}

// SetLevel changes the gating level; safe for concurrent use.
func (l *Logger) SetLevel(level api.Level) {
	if l == nil {
		return
	}
	l.level.Store(int32(level))
}

// Level returns the current gating level.
func (l *Logger) Level() api.Level {
	if l == nil {
		return api.LevelNone
	}
	return api.Level(l.level.Load())
}

// AddSink attaches a sink; records logged after this call are delivered to
// it. Sinks already receiving records are unaffected.
func (l *Logger) AddSink(s api.LogSink) {
	if l == nil || s == nil {
		return
	}
	l.mu.Lock()
	l.sinks = append(l.sinks, s)
	l.mu.Unlock()
}

func (l *Logger) willLog(level api.Level) bool {
	return l != nil && level >= l.Level()
}

func (l *Logger) Trace(format string, args ...any) { l.log(api.LevelTrace, format, args...) }
func (l *Logger) Debug(format string, args ...any) { l.log(api.LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.log(api.LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.log(api.LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.log(api.LevelError, format, args...) }

func (l *Logger) log(level api.Level, format string, args ...any) {
	if !l.willLog(level) {
		return
	}
	rec := api.Record{
		Level: level,
		Seq:   l.seq.Add(1) - 1,
		TID:   tid(),
		Time:  time.Now(),
		Msg:   substitute(format, args),
	}
	l.mu.Lock()
	sinks := l.sinks
	l.mu.Unlock()
	for _, s := range sinks {
		s.Write(rec)
	}
}

// substitute replaces each "{}" in format, in order, with a stringified
// argument. Extra arguments beyond the placeholder count are dropped; a
// placeholder beyond the argument count is left as literal text.
func substitute(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	var b strings.Builder
	b.Grow(len(format))
	ai := 0
	for i := 0; i < len(format); i++ {
		if format[i] == '{' && i+1 < len(format) && format[i+1] == '}' && ai < len(args) {
			b.WriteString(toString(args[ai]))
			ai++
			i++
			continue
		}
		b.WriteByte(format[i])
	}
	return b.String()
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case error:
		return t.Error()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}
