package originhttp

import (
	"errors"

	"github.com/coriolis-labs/originhttp/internal/wire"
)

// Sentinel errors for the wire-protocol failure kinds spec.md §7
// enumerates. Callers use errors.Is against these; the trace log carries
// the pkg/errors-wrapped detail alongside them.
var (
	// ErrConnectionClosed is returned by the wire primitives (§4.1) when
	// EOF is observed before any byte of a line, or before n bytes of an
	// exact read, could be produced.
	ErrConnectionClosed = wire.ErrConnectionClosed

	// ErrMalformedLine is returned when a lone CR or LF appears where a
	// CRLF-terminated line was expected.
	ErrMalformedLine = wire.ErrMalformedLine

	// ErrBadRequest marks a request line or header block that could not
	// be parsed into a well-formed request.
	ErrBadRequest = errors.New("originhttp: bad request")

	// ErrUnknownMethod marks a request line naming a method outside the
	// closed enumeration in Method.
	ErrUnknownMethod = errors.New("originhttp: unknown method")

	// ErrLengthRequired marks a body-bearing request missing
	// Content-Length.
	ErrLengthRequired = errors.New("originhttp: length required")

	// ErrPayloadTooLarge marks a declared Content-Length above the
	// configured maximum. An oversized WebSocket frame is reported as
	// StatusPayloadToBig instead.
	ErrPayloadTooLarge = errors.New("originhttp: payload too large")

	// ErrHandshakeFailed marks a WebSocket upgrade with a missing or
	// empty Sec-WebSocket-Key, or a Sec-WebSocket-Version other than 13.
	ErrHandshakeFailed = errors.New("originhttp: websocket handshake failed")
)
