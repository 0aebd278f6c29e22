//go:build !linux
// +build !linux

package obs

import "sync/atomic"

var pseudoTID atomic.Uint64

// tid has no portable equivalent off Linux; each call site gets a stable
// per-call counter instead of a real OS thread id.
func tid() uint64 {
	return pseudoTID.Add(1)
}
