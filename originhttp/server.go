package originhttp

import (
	"context"
	"crypto/tls"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/coriolis-labs/originhttp/internal/obs"
	"github.com/coriolis-labs/originhttp/internal/reuse"
)

// lastBoundSite is the process-wide diagnostic variable spec.md §5
// describes: written once per listener bind, read only for trace
// logging, never consulted for request routing.
var (
	lastBoundSiteMu sync.Mutex
	lastBoundSite   string
)

// LastBoundSite returns the most recently bound listener address, for
// diagnostics only.
func LastBoundSite() string {
	lastBoundSiteMu.Lock()
	defer lastBoundSiteMu.Unlock()
	return lastBoundSite
}

func setLastBoundSite(addr string) {
	lastBoundSiteMu.Lock()
	lastBoundSite = addr
	lastBoundSiteMu.Unlock()
}

// Server binds a plain listener and, optionally, a TLS listener, and
// dispatches every accepted connection into serveConn (§4.4-§4.8).
type Server struct {
	cfg     *ServerConfig
	handler Handler

	mu      sync.Mutex
	plainLn net.Listener
	tlsLn   net.Listener
	wg      sync.WaitGroup
	closing bool
}

// NewServer builds a Server bound to cfg (call NewServerConfig first to
// get documented defaults) dispatching every request into handler.
func NewServer(cfg *ServerConfig, handler Handler) *Server {
	if cfg == nil {
		cfg = NewServerConfig()
	}
	if cfg.Trace && cfg.Logger == nil {
		cfg.Logger = obs.NewStdLogger(os.Stderr, obs.Debug, "")
	}
	return &Server{cfg: cfg, handler: handler}
}

// ListenAndServe binds the plain listener (and, if TLS is set, the TLS
// listener) and blocks accepting connections until the server is closed
// or the plain listener fails.
func (s *Server) ListenAndServe() error {
	ln, err := s.listenPlain()
	if err != nil {
		return err
	}
	if s.cfg.TLS != nil {
		if err := s.listenTLS(); err != nil {
			s.cfg.logger().Logf(obs.Warn, "originhttp: tls listener disabled: %v", err)
		}
	}
	return s.serve(ln)
}

// listenConfig builds the net.ListenConfig that applies
// ServerConfig.ReuseAddress/ReusePort to the raw socket before bind, via
// the Control callback net.ListenConfig documents for SO_REUSEADDR/
// SO_REUSEPORT, grounded on hexinfra-gorox's rawConn.Control(...)
// SetReusePort pattern (internal/reuse wraps the same shape).
func (s *Server) listenConfig() *net.ListenConfig {
	return &net.ListenConfig{Control: reuse.Control(s.cfg.ReuseAddress, s.cfg.ReusePort)}
}

func (s *Server) listenPlain() (net.Listener, error) {
	addr := s.cfg.bindAddr()
	ln, err := s.listenConfig().Listen(context.Background(), "tcp", addr)
	if err != nil {
		return nil, errors.Wrap(err, "originhttp: binding plain listener")
	}
	setLastBoundSite("http://" + ln.Addr().String())
	s.cfg.logger().Logf(obs.Info, "originhttp: listening on %s", LastBoundSite())
	s.mu.Lock()
	s.plainLn = ln
	s.mu.Unlock()
	return ln, nil
}

// listenTLS builds the TLS listener from ServerConfig.TLS. A missing
// cert or key file disables the secure listener and the caller logs and
// continues with the plain listener only, per spec.md §7's TLS setup
// error kind.
func (s *Server) listenTLS() error {
	tset := s.cfg.TLS
	base := ""
	if exe, err := os.Executable(); err == nil {
		base = filepath.Dir(exe)
	}
	certFile := tset.resolvedCertFile(base)
	keyFile := tset.resolvedKeyFile(base)

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return errors.Wrap(err, "originhttp: loading tls certificate")
	}
	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   clientAuthMode(tset.PeerVerify),
	}

	addr := s.cfg.tlsBindAddr()
	rawLn, err := s.listenConfig().Listen(context.Background(), "tcp", addr)
	if err != nil {
		return errors.Wrap(err, "originhttp: binding tls listener")
	}
	ln := tls.NewListener(rawLn, tlsCfg)
	setLastBoundSite("https://" + ln.Addr().String())
	s.cfg.logger().Logf(obs.Info, "originhttp: listening on %s", LastBoundSite())
	s.mu.Lock()
	s.tlsLn = ln
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.acceptLoop(ln, true)
	}()
	return nil
}

func clientAuthMode(peerVerify bool) tls.ClientAuthType {
	if peerVerify {
		return tls.RequireAndVerifyClientCert
	}
	return tls.NoClientCert
}

// serve runs the plain listener's accept loop and blocks until it
// returns, either from an unrecoverable Accept error or a Close call.
func (s *Server) serve(ln net.Listener) error {
	return s.acceptLoop(ln, false)
}

func (s *Server) acceptLoop(ln net.Listener, secure bool) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			s.cfg.logger().Logf(obs.Error, "originhttp: accept failed: %v", err)
			return err
		}

		var stream Stream
		if secure {
			tc, ok := c.(*tls.Conn)
			if !ok {
				c.Close()
				continue
			}
			stream = newTLSStream(tc)
		} else {
			stream = newPlainStream(c)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			serveConn(s, stream)
		}()
	}
}

// Close stops both listeners and waits, bounded by ctx, for in-flight
// connections to finish their current request. No keep-alive loop
// iteration starts once shutdown has been signalled. This is the
// graceful-drain behavior the teacher's Server never implemented.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	plainLn := s.plainLn
	tlsLn := s.tlsLn
	s.mu.Unlock()

	if plainLn != nil {
		_ = plainLn.Close()
	}
	if tlsLn != nil {
		_ = tlsLn.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
