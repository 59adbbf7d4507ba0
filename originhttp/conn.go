package originhttp

import (
	"bufio"
	"net/url"
	"strings"

	"github.com/coriolis-labs/originhttp/internal/obs"
	"github.com/coriolis-labs/originhttp/internal/wire"
)

// serveConn is the per-connection protocol engine (§4.4): it loops over
// requests on s, parsing one at a time, dispatching each into srv's
// Handler, writing the response, and deciding whether to reuse the
// connection or close it. One goroutine owns s for its entire lifetime,
// which is this package's mapping of the source's "one connection = one
// cooperative task" model onto Go (spec.md §9's "Cooperative I/O
// re-architecture" note).
func serveConn(srv *Server, s Stream) {
	defer s.Close()

	cfg := srv.cfg
	log := cfg.logger()
	connID := genID()

	if cfg.ConnState != nil {
		cfg.ConnState(s.RemoteAddr().String(), ConnStateNew)
		defer cfg.ConnState(s.RemoteAddr().String(), ConnStateClosed)
	}
	cfg.meter().Counter("originhttp.connections.active", 1)
	defer cfg.meter().Counter("originhttp.connections.active", -1)

	br := bufio.NewReader(s)
	bw := bufio.NewWriter(s)

	ctx := &HttpContext{
		stream:    s,
		bw:        bw,
		isSecure:  s.IsSecure(),
		keepAlive: true,
		server:    srv,
		ConnID:    connID,
	}

	for {
		line, err := wire.ReadLine(br)
		if err != nil {
			return
		}
		if strings.TrimSpace(line) == "" {
			return
		}

		method, target, version, ok := parseRequestLine(line)
		if !ok {
			return
		}
		m, known := parseMethod(method)
		if !known {
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: %v conn=%s method=%q", ErrUnknownMethod, connID, method)
			}
			return
		}

		header, err := parseHeaderBlock(br)
		if err != nil {
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: header parse failed conn=%s err=%v", connID, err)
			}
			return
		}

		reqURL, err := buildRequestURL(target, ctx.isSecure, cfg.bindAddr())
		if err != nil {
			return
		}
		if host := header.Get("Host"); host != "" {
			reqURL.Host = host
		}

		req := &Request{
			HTTPVersion: version,
			Method:      m,
			RawMethod:   method,
			URL:         reqURL,
			Header:      header,
		}

		connVal := header.Get("Connection")
		ctx.keepAlive = cfg.KeepAlive &&
			header.HasToken("Connection", "keep-alive") &&
			!strings.Contains(strings.ToLower(connVal), "close")

		if isUpgradeRequest(m, header) {
			reqURL.Scheme = upgradeScheme(ctx.isSecure)
			ctx.Request = req
			ctx.Response = NewResponse()
			ctx.WebSocket = &WebSocket{
				stream:                 s,
				State:                  WSHandShake,
				HashID:                 genID(),
				HandshakeRequestHeader: header,
			}

			// One negotiation call with ws.State still HandShake gives the
			// handler a chance to pick a subprotocol via
			// Response.Header.Set("Sec-WebSocket-Protocol", ...) before
			// performHandshake writes the 101 response (SPEC_FULL.md
			// supplemented feature 5). Handlers that only care about frames
			// check ws.InFrame == nil and return immediately here, same as
			// any other no-op dispatch.
			invokeHandler(srv.handler, ctx, cfg, connID)

			if err := performHandshake(ctx, bw); err != nil {
				if cfg.Trace {
					log.Logf(obs.Debug, "originhttp: websocket handshake failed conn=%s status=%d err=%v", connID, int(ctx.WebSocket.StatusCode), err)
				}
				return
			}
			runWebSocketLoop(ctx, srv.handler, cfg)
			req.Body.cleanup()
			return
		}

		body, violation, err := spoolBody(cfg, m, header, br)
		if err != nil {
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: body spool failed conn=%s err=%v", connID, err)
			}
			return
		}
		if violation != nil {
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: %v conn=%s status=%d", violation.err, connID, violation.status)
			}
			writeSizeViolation(bw, violation)
			return
		}
		req.Body = body

		ctx.Request = req
		ctx.Response = NewResponse()

		invokeHandler(srv.handler, ctx, cfg, connID)

		if !ctx.sent {
			// Handler never called Send: per contract this leaks the
			// connection until the client times out waiting for a
			// response we will never produce.
			if cfg.Trace {
				log.Logf(obs.Warn, "originhttp: handler did not call Send conn=%s", connID)
			}
			req.Body.cleanup()
			return
		}

		alive := ctx.keepAlive
		req.Body.cleanup()
		ctx.reset()
		if !alive || srv.isClosing() {
			return
		}
	}
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

func invokeHandler(h Handler, ctx *HttpContext, cfg *ServerConfig, connID string) {
	defer func() {
		if r := recover(); r != nil {
			if cfg.Trace {
				cfg.logger().Logf(obs.Error, "originhttp: handler panic conn=%s: %v", connID, r)
			}
		}
	}()
	h.ServeHTTP(ctx)
}

// buildRequestURL parses the request-target into a *url.URL, per
// spec.md §4.4 step c, then sets scheme from the transport and host
// from the local bind address (overridden by the Host header when it
// arrives). net/url is the "URI parser" external collaborator spec.md
// §1 names.
func buildRequestURL(target string, secure bool, localAddr string) (*url.URL, error) {
	var u *url.URL
	var err error
	if strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") {
		u, err = url.Parse(target)
	} else {
		u, err = url.ParseRequestURI(target)
	}
	if err != nil {
		return nil, err
	}
	u.Scheme = httpScheme(secure)
	if u.Host == "" {
		u.Host = localAddr
	}
	return u, nil
}

func httpScheme(secure bool) string {
	if secure {
		return "https"
	}
	return "http"
}

func upgradeScheme(secure bool) string {
	if secure {
		return "wss"
	}
	return "ws"
}

// writeResponse is HttpContext.Send's implementation: the response
// framer described in spec.md §4.5. It applies the reuse decision
// serveConn stored in ctx.keepAlive, emits the header block, writes the
// body (skipped for HEAD), and closes the stream when not reusing.
// serveConn clears the per-request state afterwards via reset.
func writeResponse(ctx *HttpContext) error {
	req := ctx.Request
	resp := ctx.Response
	if resp == nil {
		resp = NewResponse()
		ctx.Response = resp
	}

	isHead := req != nil && req.Method == MethodHEAD
	keepAlive := ctx.keepAlive
	w := ctx.bw

	if resp.Header.fields == nil {
		resp.Header = NewHeader()
	}

	if err := writeResponseHeaderBlock(w, resp, keepAlive, isHead); err != nil {
		ctx.keepAlive = false
		return err
	}
	if !isHead && len(resp.Body) > 0 {
		if _, err := w.Write(resp.Body); err != nil {
			ctx.keepAlive = false
			return err
		}
	}
	if err := w.Flush(); err != nil {
		ctx.keepAlive = false
		return err
	}

	if !keepAlive {
		_ = ctx.stream.Close()
	}
	return nil
}

// writeSizeViolation sends the 411/413 response the server produces
// itself for a body-size policy failure (§4.3), without ever invoking
// the handler, always with Connection: close; serveConn returns right
// after, which closes the connection.
func writeSizeViolation(bw *bufio.Writer, v *sizeViolation) {
	resp := NewResponse()
	resp.StatusCode = v.status
	resp.Body = []byte(v.message)
	_ = writeResponseHeaderBlock(bw, resp, false, false)
	_, _ = bw.Write(resp.Body)
	_ = bw.Flush()
}
