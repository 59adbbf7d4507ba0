package originhttp

import (
	"crypto/tls"
	"net"
	"time"
)

// Stream is the polymorphic byte-stream abstraction the connection state
// machine, the body spooler, and the WebSocket codec all operate on. It
// is implemented by both a plain TCP connection and a TLS-wrapped one,
// so the rest of the package never branches on transport type except
// through IsSecure. Grounded on spec.md §9's "Polymorphic stream" note:
// plain TCP and TLS streams are interchangeable at the read/write
// interface plus an is_secure query.
type Stream interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr

	// IsSecure reports whether this stream is TLS-wrapped. It is fixed
	// at accept time and immutable for the stream's lifetime.
	IsSecure() bool
}

// plainStream wraps a raw net.Conn accepted off the cleartext listener.
type plainStream struct {
	net.Conn
}

func newPlainStream(c net.Conn) Stream { return plainStream{Conn: c} }

func (plainStream) IsSecure() bool { return false }

// tlsStream wraps a *tls.Conn accepted off the TLS listener, after the
// handshake has already completed.
type tlsStream struct {
	*tls.Conn
}

func newTLSStream(c *tls.Conn) Stream { return tlsStream{Conn: c} }

func (tlsStream) IsSecure() bool { return true }
