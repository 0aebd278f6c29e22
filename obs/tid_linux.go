//go:build linux
// +build linux

package obs

import "golang.org/x/sys/unix"

func tid() uint64 {
	return uint64(unix.Gettid())
}
