package originhttp

import (
	"bufio"
	"context"
)

// connIDKey is the context.Context key HttpContext.Context() stores
// ConnID under.
type connIDKey struct{}

// ConnIDFromContext returns the ConnID a context.Context obtained from
// HttpContext.Context() carries, or "" if ctx did not come from one.
func ConnIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(connIDKey{}).(string)
	return id
}

// HttpContext owns everything one connection needs to serve a request:
// the parsed Request, the handler-populated Response, the stream, the
// is-secure flag fixed at accept time, the keep-alive flag, and (once an
// upgrade is detected) the WebSocket state. One HttpContext is created
// per connection and cleared between keep-alive requests, per spec.md
// §3's ownership rules.
type HttpContext struct {
	Request  *Request
	Response *Response

	stream    Stream
	bw        *bufio.Writer
	isSecure  bool
	keepAlive bool

	WebSocket *WebSocket

	// ConnID correlates every log line for this connection; assigned
	// once at accept time (§SPEC_FULL "context correlation").
	ConnID string

	server *Server
	ctx    context.Context

	sent bool
}

// IsSecure reports whether the underlying transport is TLS-wrapped. It
// reflects the transport at accept time and never changes for the
// connection's lifetime.
func (c *HttpContext) IsSecure() bool { return c.isSecure }

// KeepAlive reports the context's current keep-alive intent. serveConn
// sets it from ServerConfig.KeepAlive and the request's Connection header
// before the handler runs; the response framer (§4.5) clears it if a
// write fails.
func (c *HttpContext) KeepAlive() bool { return c.keepAlive }

// Context returns the connection's context.Context, carrying ConnID.
// It is built lazily on first call and cached, since most requests never
// call it.
func (c *HttpContext) Context() context.Context {
	if c.ctx == nil {
		c.ctx = context.WithValue(context.Background(), connIDKey{}, c.ConnID)
	}
	return c.ctx
}

// Send is the bound response-sender operation: the handler contract
// requires calling it exactly once per request. It defers to the
// connection's response framer (§4.5). Calling it more than once is a
// no-op after the first call, since failing to call it exactly once
// would otherwise leak the connection.
func (c *HttpContext) Send() error {
	if c.sent {
		return nil
	}
	c.sent = true
	return writeResponse(c)
}

// reset clears transient per-request state so the same HttpContext can
// serve the next request on a reused connection, per spec.md §4.5 step 4.
func (c *HttpContext) reset() {
	c.Request = nil
	c.Response = nil
	c.sent = false
}
