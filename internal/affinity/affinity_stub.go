//go:build !linux
// +build !linux

package affinity

import "fmt"

func pinPlatform(cpuID int) error {
	return fmt.Errorf("affinity: pinning not supported on this platform")
}

func unpinPlatform() error {
	return fmt.Errorf("affinity: pinning not supported on this platform")
}
