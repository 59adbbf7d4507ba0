// Package originhttp implements an HTTP/1.1 origin server with persistent
// connections and an integrated WebSocket (RFC 6455) upgrade path.
//
// It accepts both cleartext and TLS-wrapped connections, parses incoming
// requests, dispatches each into a user-supplied handler through an
// HttpContext, and writes the handler's response back on the same
// connection, reusing it per RFC 7230 §6.3 when keep-alive applies.
//
// Highlights
//   - Server: request-line/header/body parser with request-size policy,
//     spooled bodies for large payloads, keep-alive framing, WebSocket
//     handshake and frame codec with masking and control-frame handling.
//   - Observability: a pluggable Logger/Meter pair (internal/obs) driven
//     off ServerConfig.Trace.
//
// Quick start:
//
//	cfg := originhttp.NewServerConfig()
//	cfg.Port = 8080
//	srv := originhttp.NewServer(cfg, originhttp.HandlerFunc(func(ctx *originhttp.HttpContext) {
//	    ctx.Response.StatusCode = 200
//	    ctx.Response.Body = []byte("hello")
//	    ctx.Send()
//	}))
//	log.Fatal(srv.ListenAndServe())
//
// HTTP/2, HTTP/3, chunked request bodies, request pipelining, content
// compression, multipart parsing, cookies/sessions, caching, and virtual
// host routing are explicitly out of scope.
package originhttp
