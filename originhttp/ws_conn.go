package originhttp

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coriolis-labs/originhttp/internal/obs"
)

// wsGUID is the RFC 6455 §1.3 magic GUID used to compute the handshake
// accept digest.
const wsGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

// isUpgradeRequest reports whether this request should divert into a
// WebSocket handshake: method GET together with an Upgrade: websocket
// header, per spec.md §4.4 step d.
func isUpgradeRequest(method Method, header Header) bool {
	return method == MethodGET && strings.EqualFold(header.Get("Upgrade"), "websocket")
}

// computeWSAccept computes Sec-WebSocket-Accept = Base64(SHA1(key || GUID)).
func computeWSAccept(clientKey string) string {
	h := sha1.New()
	h.Write([]byte(clientKey))
	h.Write([]byte(wsGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// performHandshake implements §4.7's HandShake state. On success it
// writes the 101 response, transitions ws.State to Open, and returns
// nil. On a missing/empty client key, or an explicitly unsupported
// Sec-WebSocket-Version, it sets ws.StatusCode to StatusHandShakeFailed,
// writes a 400 response, and returns a non-nil error; the caller closes
// the connection without completing the upgrade.
//
// The caller runs the handler once with ws.State still HandShake before
// calling this, so ctx.Response.Header may already carry a
// Sec-WebSocket-Protocol the handler chose to echo below.
func performHandshake(ctx *HttpContext, bw *bufio.Writer) error {
	ws := ctx.WebSocket
	key := ws.HandshakeRequestHeader.Get("Sec-WebSocket-Key")
	if key == "" {
		ws.StatusCode = StatusHandShakeFailed
		writeHandshakeFailure(bw)
		return ErrHandshakeFailed
	}
	if v := ws.HandshakeRequestHeader.Get("Sec-WebSocket-Version"); v != "" && v != "13" {
		ws.StatusCode = StatusHandShakeFailed
		writeHandshakeFailure(bw)
		return ErrHandshakeFailed
	}

	accept := computeWSAccept(key)

	if _, err := io.WriteString(bw, "HTTP/1.1 101 Switching Protocols\r\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Server: %s\r\n", serverIdentifier); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Date: %s\r\n", time.Now().UTC().Format(http1123GMT)); err != nil {
		return err
	}
	if _, err := io.WriteString(bw, "Connection: Upgrade\r\n"); err != nil {
		return err
	}
	if _, err := io.WriteString(bw, "Upgrade: websocket\r\n"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(bw, "Sec-WebSocket-Accept: %s\r\n", accept); err != nil {
		return err
	}

	resp := ctx.Response
	respHdr := NewHeader()
	respHdr.Set("Sec-WebSocket-Accept", accept)

	if offered := ws.HandshakeRequestHeader.Get("Sec-WebSocket-Protocol"); offered != "" && resp != nil {
		if chosen := resp.Header.Get("Sec-WebSocket-Protocol"); chosen != "" {
			if _, err := fmt.Fprintf(bw, "Sec-WebSocket-Protocol: %s\r\n", sanitizeHeaderValue(chosen)); err != nil {
				return err
			}
			respHdr.Set("Sec-WebSocket-Protocol", chosen)
		}
	}

	if resp != nil {
		var werr error
		resp.Header.Range(func(k, v string) bool {
			if isReservedUpgradeHeader(k) {
				return true
			}
			if _, err := fmt.Fprintf(bw, "%s: %s\r\n", k, sanitizeHeaderValue(v)); err != nil {
				werr = err
				return false
			}
			respHdr.Add(k, v)
			return true
		})
		if werr != nil {
			return werr
		}
	}

	if _, err := io.WriteString(bw, "\r\n"); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return err
	}

	ws.HandshakeResponseHeader = respHdr
	ws.State = WSOpen
	return nil
}

func isReservedUpgradeHeader(k string) bool {
	switch strings.ToLower(k) {
	case "connection", "upgrade", "sec-websocket-accept", "sec-websocket-protocol", "server", "date":
		return true
	default:
		return false
	}
}

func writeHandshakeFailure(bw *bufio.Writer) {
	_, _ = io.WriteString(bw, "HTTP/1.1 400 Bad Request\r\n")
	_, _ = io.WriteString(bw, "Connection: close\r\n")
	_, _ = io.WriteString(bw, "Content-Length: 0\r\n\r\n")
	_ = bw.Flush()
}

// runWebSocketLoop implements the Open-state per-frame processing in
// spec.md §4.7. It returns once the connection reaches WSClose or a
// read failure occurs; the caller is responsible for closing the
// stream afterward.
func runWebSocketLoop(ctx *HttpContext, handler Handler, cfg *ServerConfig) {
	ws := ctx.WebSocket
	log := cfg.logger()
	defer func() {
		if cfg.Trace && ws.StatusCode != 0 {
			log.Logf(obs.Debug, "originhttp: websocket closed conn=%s status=%d %s", ctx.ConnID, int(ws.StatusCode), ws.StatusCode)
		}
	}()

	for ws.State == WSOpen {
		frame, statusCode, err := readWSFrame(ctx.stream, cfg.maxBody())
		if err != nil {
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: websocket read failed conn=%s err=%v", ctx.ConnID, err)
			}
			ws.State = WSClose
			return
		}
		if statusCode != 0 {
			ws.State = WSClose
			ws.StatusCode = statusCode
			return
		}

		switch frame.Opcode {
		case OpText, OpBinary, OpContinuation:
			ws.InFrame = frame
			ws.OutFrame = nil
			dispatchWSFrame(ctx, handler, cfg)

		case OpPing:
			pong := &WSFrame{Fin: true, Opcode: OpPong, Payload: frame.Payload}
			if err := writeWSFrame(ctx.stream, pong, false); err != nil {
				ws.State = WSClose
				return
			}

		case OpPong:
			if !bytes.Equal(frame.Payload, []byte(ws.HashID)) {
				ws.StatusCode = StatusUnknownOpcode
				ws.State = WSClose
				return
			}

		case OpClose:
			ws.State = WSClose
			ws.StatusCode = StatusUnexpectedClose
			return

		default:
			if cfg.Trace {
				log.Logf(obs.Debug, "originhttp: ignoring unknown websocket opcode %d conn=%s", frame.Opcode, ctx.ConnID)
			}
		}
	}
}

func dispatchWSFrame(ctx *HttpContext, handler Handler, cfg *ServerConfig) {
	defer func() {
		if r := recover(); r != nil && cfg.Trace {
			cfg.logger().Logf(obs.Error, "originhttp: websocket handler panic conn=%s: %v", ctx.ConnID, r)
		}
	}()
	handler.ServeHTTP(ctx)
}
