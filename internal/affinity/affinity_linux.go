//go:build linux
// +build linux

package affinity

import (
	"runtime"

	"golang.org/x/sys/unix"
)

func pinPlatform(cpuID int) error {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		runtime.UnlockOSThread()
		return err
	}
	return nil
}

func unpinPlatform() error {
	defer runtime.UnlockOSThread()
	var set unix.CPUSet
	ncpu := runtime.NumCPU()
	set.Zero()
	for i := 0; i < ncpu; i++ {
		set.Set(i)
	}
	return unix.SchedSetaffinity(0, &set)
}
