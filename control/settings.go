// control/settings.go
//
// Thread-safe settings store with repair-on-apply and freeze-on-run,
// adapted from the package's original dynamic config store.

package control

import (
	"sync"

	"github.com/orbitframe/simcore/api"
	"github.com/orbitframe/simcore/obs"
)

// SettingsStore holds the mutable pre-run Settings, applies configuration
// repairs with a warning-level log, and freezes into an immutable snapshot
// once the run begins.
type SettingsStore struct {
	mu        sync.RWMutex
	settings  api.Settings
	frozen    bool
	listeners []func()
	log       *obs.Logger
}

// NewSettingsStore returns a store seeded with s, repairing it immediately.
func NewSettingsStore(s api.Settings, log *obs.Logger) *SettingsStore {
	cs := &SettingsStore{log: log}
	cs.settings = repair(s, log)
	return cs
}

// repair corrects the configuration errors spec §7 calls out, logging each
// correction at warning level. A negative SpinMicros is also clamped to 0,
// without a log record.
func repair(s api.Settings, log *obs.Logger) api.Settings {
	if s.Hz <= 0 {
		log.Warn("hz {} is non-positive, corrected to 1.0", s.Hz)
		s.Hz = 1.0
	}
	if s.Threads == 0 {
		log.Warn("threads is zero, corrected to 1")
		s.Threads = 1
	}
	if s.Threads < 0 {
		log.Warn("threads {} is negative, corrected to 1", s.Threads)
		s.Threads = 1
	}
	if s.MaxCatchUp < 0 {
		log.Warn("maxCatchUp {} is negative, corrected to 0", s.MaxCatchUp)
		s.MaxCatchUp = 0
	}
	if s.ChunkSize < 1 {
		log.Warn("chunkSize {} is invalid, corrected to 1", s.ChunkSize)
		s.ChunkSize = 1
	}
	if s.SpinMicros < 0 {
		s.SpinMicros = 0
	}
	return s
}

// Snapshot returns a copy of the current settings.
func (cs *SettingsStore) Snapshot() api.Settings {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.settings
}

// Apply merges a partial update expressed as a map (the shape api.Control
// exchanges settings in) into the store, repairs it, and notifies
// listeners. Returns api.ErrAlreadyRunning once the store is frozen, or a
// structured api.Error wrapping api.ErrInvalidArgument if the patch holds a
// value of the wrong type for a known key.
func (cs *SettingsStore) Apply(patch map[string]any) error {
	cs.mu.Lock()
	if cs.frozen {
		cs.mu.Unlock()
		return api.ErrAlreadyRunning
	}
	next := cs.settings
	rejected := applyPatch(&next, patch)
	if len(rejected) > 0 {
		cs.mu.Unlock()
		return api.NewError(api.ErrCodeInvalidArgument, api.ErrInvalidArgument.Error()).
			Wrap(api.ErrInvalidArgument).
			WithContext("rejectedKeys", rejected)
	}
	cs.settings = repair(next, cs.log)
	listeners := cs.listeners
	cs.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	return nil
}

// OnApplied registers a listener invoked synchronously after every
// successful Apply, in registration order.
func (cs *SettingsStore) OnApplied(fn func()) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.listeners = append(cs.listeners, fn)
}

// Freeze prevents further Apply calls; called once at run start.
func (cs *SettingsStore) Freeze() {
	cs.mu.Lock()
	cs.frozen = true
	cs.mu.Unlock()
}

// AsMap renders the settings snapshot as the map shape api.Control exposes.
func (cs *SettingsStore) AsMap() map[string]any {
	s := cs.Snapshot()
	return map[string]any{
		"hz":                        s.Hz,
		"maxFrames":                 s.MaxFrames,
		"adaptive":                  s.Adaptive,
		"maxCatchUp":                s.MaxCatchUp,
		"threads":                   s.Threads,
		"pin":                       s.Pin,
		"mainHelps":                 s.MainHelps,
		"chunkSize":                 s.ChunkSize,
		"spinMicros":                s.SpinMicros,
		"driftLogInterval":          s.DriftLogInterval,
		"maxCatchUpThresholdFrames": s.MaxCatchUpThresholdFrames,
		"logPhases":                 s.LogPhases,
		"logRangeTasks":             s.LogRangeTasks,
	}
}

// applyPatch merges known keys from patch into s, returning the keys whose
// value was present but of the wrong type. Absent keys are left untouched.
func applyPatch(s *api.Settings, patch map[string]any) []string {
	var rejected []string
	set := func(key string, assign func(v any) bool) {
		v, present := patch[key]
		if !present {
			return
		}
		if !assign(v) {
			rejected = append(rejected, key)
		}
	}

	set("hz", func(v any) bool {
		f, ok := v.(float64)
		if ok {
			s.Hz = f
		}
		return ok
	})
	set("maxFrames", func(v any) bool {
		i, ok := v.(int64)
		if ok {
			s.MaxFrames = i
		}
		return ok
	})
	set("adaptive", func(v any) bool {
		b, ok := v.(bool)
		if ok {
			s.Adaptive = b
		}
		return ok
	})
	set("maxCatchUp", func(v any) bool {
		i, ok := v.(int)
		if ok {
			s.MaxCatchUp = i
		}
		return ok
	})
	set("threads", func(v any) bool {
		i, ok := v.(int)
		if ok {
			s.Threads = i
		}
		return ok
	})
	set("pin", func(v any) bool {
		b, ok := v.(bool)
		if ok {
			s.Pin = b
		}
		return ok
	})
	set("mainHelps", func(v any) bool {
		b, ok := v.(bool)
		if ok {
			s.MainHelps = b
		}
		return ok
	})
	set("chunkSize", func(v any) bool {
		i, ok := v.(int)
		if ok {
			s.ChunkSize = i
		}
		return ok
	})
	set("spinMicros", func(v any) bool {
		i, ok := v.(int)
		if ok {
			s.SpinMicros = i
		}
		return ok
	})
	set("driftLogInterval", func(v any) bool {
		i, ok := v.(int64)
		if ok {
			s.DriftLogInterval = i
		}
		return ok
	})
	set("maxCatchUpThresholdFrames", func(v any) bool {
		i, ok := v.(int)
		if ok {
			s.MaxCatchUpThresholdFrames = i
		}
		return ok
	})
	set("logPhases", func(v any) bool {
		b, ok := v.(bool)
		if ok {
			s.LogPhases = b
		}
		return ok
	})
	set("logRangeTasks", func(v any) bool {
		b, ok := v.(bool)
		if ok {
			s.LogRangeTasks = b
		}
		return ok
	})

	return rejected
}
