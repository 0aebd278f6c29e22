package obs

import (
	"sort"
	"sync"
	"time"

	"github.com/orbitframe/simcore/api"
)

// ProfileRegistry aggregates per-scope timing: count, total, min, max
// nanoseconds. StartScope returns a closure the caller runs at scope exit;
// a nil *ProfileRegistry is safe to call StartScope on and returns a no-op.
type ProfileRegistry struct {
	mu      sync.Mutex
	entries map[string]*api.ScopeStat
}

// NewProfileRegistry returns an empty registry.
func NewProfileRegistry() *ProfileRegistry {
	return &ProfileRegistry{entries: make(map[string]*api.ScopeStat)}
}

func (p *ProfileRegistry) StartScope(name string) func() {
	if p == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		p.record(name, time.Since(start).Nanoseconds())
	}
}

func (p *ProfileRegistry) record(name string, ns int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	e, ok := p.entries[name]
	if !ok {
		e = &api.ScopeStat{Name: name, MinNs: ns, MaxNs: ns}
		p.entries[name] = e
	}
	e.Count++
	e.TotalNs += ns
	if ns < e.MinNs {
		e.MinNs = ns
	}
	if ns > e.MaxNs {
		e.MaxNs = ns
	}
}

// Summary returns every scope's stats sorted by name.
func (p *ProfileRegistry) Summary() []api.ScopeStat {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]api.ScopeStat, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
