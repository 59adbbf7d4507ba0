//go:build !unix

// Non-unix platforms (Windows) have no portable SO_REUSEPORT; only
// SO_REUSEADDR-equivalent behavior is already Go's default listen
// semantics there, so Control is a no-op, matching
// hexinfra-gorox/hemi/libraries/system/net_windows.go's SetDeferAccept
// no-op for the platform features it can't offer.
package reuse

import "syscall"

// Control always returns nil: neither option has a portable socket-level
// equivalent to wire on this platform.
func Control(reuseAddr, reusePort bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
