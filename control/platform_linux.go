//go:build linux
// +build linux

// control/platform_linux.go
//
// Linux-specific debug probes registered on top of the generic DebugProbes
// registry.

package control

import "runtime"

// RegisterPlatformProbes installs the Linux logical-CPU-count probe.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
