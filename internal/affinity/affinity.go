// Package affinity pins the calling OS thread to a single logical CPU.
// Platform-specific pinning lives in affinity_linux.go / affinity_stub.go;
// this file is the platform-neutral entry point.
package affinity

// Pin locks the calling goroutine to its OS thread and binds that thread to
// cpuID. Callers that succeed must call Unpin from the same goroutine before
// it exits or is reused for unrelated work.
func Pin(cpuID int) error {
	return pinPlatform(cpuID)
}

// Unpin releases the affinity mask set by Pin and unlocks the OS thread.
func Unpin() error {
	return unpinPlatform()
}
