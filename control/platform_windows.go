//go:build windows
// +build windows

// control/platform_windows.go
//
// Windows-specific debug probes registered on top of the generic
// DebugProbes registry.

package control

import "runtime"

// RegisterPlatformProbes installs the Windows logical-CPU-count probe.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any {
		return runtime.NumCPU()
	})
}
