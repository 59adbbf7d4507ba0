package originhttp

import (
	"net"
	"os"
	"path/filepath"
	"strconv"

	"github.com/coriolis-labs/originhttp/internal/obs"
)

func joinHostPort(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}

const (
	defaultPort           = 8000
	defaultTLSPort        = 8443
	defaultMaxBodyLength  = 268435456 // 256 MiB
	defaultReadBodyBuffer = 1024
)

// TlsSettings configures the optional TLS listener. Cert/key paths are
// resolved relative to the directory of the running executable when not
// absolute. Loading the certificate, running the handshake, and driving
// the record layer are crypto/tls's job; TlsSettings only carries the
// bits originhttp needs to build a *tls.Config and bind a second
// listener, per spec.md §1's "TLS library is an external collaborator."
type TlsSettings struct {
	CertFile   string
	KeyFile    string
	Port       int
	PeerVerify bool
}

func (t TlsSettings) resolvedCertFile(base string) string {
	return resolvePath(base, t.CertFile)
}

func (t TlsSettings) resolvedKeyFile(base string) string {
	return resolvePath(base, t.KeyFile)
}

func resolvePath(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ServerConfig holds every construction-time option for a Server. All
// fields have defaults applied by NewServerConfig.
type ServerConfig struct {
	Address string
	Port    int

	Trace        bool
	ReuseAddress bool
	ReusePort    bool

	TLS *TlsSettings

	KeepAlive      bool
	MaxBodyLength  int64
	ReadBodyBuffer int

	TmpDir     string
	TmpBodyDir string

	// Logger receives every trace-worthy event (I/O failures, handler
	// panics, TLS setup failures, WebSocket status transitions) when
	// Trace is true. If nil and Trace is true, NewServer installs a
	// zerolog-backed obs.StdLogger writing to stderr.
	Logger obs.Logger

	// Meter receives the "originhttp.connections.active" counter (+1 on
	// accept, -1 on close). If nil, a NopMeter is installed.
	Meter obs.Meter

	// ConnState, if non-nil, is invoked on every connection accept and
	// close with the connection's remote address and its new state.
	ConnState func(remoteAddr string, state ConnState)
}

// ConnState enumerates the lifecycle states ConnState is notified of.
type ConnState int

const (
	ConnStateNew ConnState = iota
	ConnStateClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnStateNew:
		return "new"
	case ConnStateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// NewServerConfig returns a ServerConfig with every default from spec.md
// §3/§6 applied: plain port 8000, keep-alive off, 256 MiB max body, 1024
// byte read buffer, and OS-default temp directories.
func NewServerConfig() *ServerConfig {
	tmp := os.TempDir()
	return &ServerConfig{
		Address:        "",
		Port:           defaultPort,
		KeepAlive:      false,
		MaxBodyLength:  defaultMaxBodyLength,
		ReadBodyBuffer: defaultReadBodyBuffer,
		TmpDir:         tmp,
		TmpBodyDir:     tmp,
		Meter:          obs.NopMeter{},
	}
}

func (c *ServerConfig) bindAddr() string {
	if c.Port == 0 {
		c.Port = defaultPort
	}
	return joinHostPort(c.Address, c.Port)
}

func (c *ServerConfig) tlsBindAddr() string {
	port := defaultTLSPort
	if c.TLS != nil && c.TLS.Port != 0 {
		port = c.TLS.Port
	}
	return joinHostPort(c.Address, port)
}

func (c *ServerConfig) maxBody() int64 {
	if c.MaxBodyLength <= 0 {
		return defaultMaxBodyLength
	}
	return c.MaxBodyLength
}

func (c *ServerConfig) readBufSize() int {
	if c.ReadBodyBuffer <= 0 {
		return defaultReadBodyBuffer
	}
	return c.ReadBodyBuffer
}

func (c *ServerConfig) tmpBodyDir() string {
	if c.TmpBodyDir != "" {
		return c.TmpBodyDir
	}
	if c.TmpDir != "" {
		return c.TmpDir
	}
	return os.TempDir()
}

func (c *ServerConfig) logger() obs.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return obs.NopLogger{}
}

func (c *ServerConfig) meter() obs.Meter {
	if c.Meter != nil {
		return c.Meter
	}
	return obs.NopMeter{}
}
