//go:build unix

// Package reuse builds the net.ListenConfig.Control callback that sets
// SO_REUSEADDR/SO_REUSEPORT on a listening socket before bind, the
// standard Go idiom for both options and the same rawConn.Control shape
// hexinfra-gorox's hemi/library/system/net_linux.go and net_darwin.go
// use for SetReusePort.
package reuse

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Control returns a net.ListenConfig.Control callback applying reuseAddr
// (SO_REUSEADDR) and reusePort (SO_REUSEPORT) to the raw socket before
// bind, or nil if neither is requested.
func Control(reuseAddr, reusePort bool) func(network, address string, c syscall.RawConn) error {
	if !reuseAddr && !reusePort {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			if reuseAddr {
				if sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1); sockErr != nil {
					return
				}
			}
			if reusePort {
				sockErr = syscall.SetsockoptInt(int(fd), syscall.SOL_SOCKET, unix.SO_REUSEPORT, 1)
			}
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
