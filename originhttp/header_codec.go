package originhttp

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coriolis-labs/originhttp/internal/wire"
)

// serverIdentifier is emitted as the Server header on every response.
// spec.md §6 notes the source historically emitted "ZFBlast (Nim)" and
// leaves the identifier string to the implementer.
const serverIdentifier = "originhttp/1"

// parseRequestLine splits "METHOD SP REQUEST-TARGET SP HTTP-VERSION"
// into exactly three tokens, per spec.md §4.2. A line with any other
// token count is malformed.
func parseRequestLine(line string) (method, target, version string, ok bool) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return "", "", "", false
	}
	if strings.Contains(parts[2], " ") {
		return "", "", "", false
	}
	return parts[0], parts[1], parts[2], true
}

// parseHeaderBlock reads "field-name: OWS field-value OWS" lines from br
// until a blank line, accumulating repeated fields, per spec.md §4.2.
// Field-name lookup on the resulting Header is case-insensitive; the
// as-received casing of each field name is preserved for later emission
// (e.g. when a handler echoes a request header back).
func parseHeaderBlock(br *bufio.Reader) (Header, error) {
	h := NewHeader()
	for {
		line, err := wire.ReadLine(br)
		if err != nil {
			return h, err
		}
		if line == "" {
			return h, nil
		}
		i := strings.IndexByte(line, ':')
		if i <= 0 {
			return h, ErrBadRequest
		}
		key := line[:i]
		value := strings.Trim(line[i+1:], " \t")
		h.Add(key, value)
	}
}

// writeResponseHeaderBlock emits the fixed-order response header block
// spec.md §4.2 requires: status line, Server, Date (RFC 1123 GMT),
// Connection, Content-Length (unless the handler already set one),
// every user-supplied header in insertion order (except Connection,
// which this function always writes itself), then a blank line.
// Content-Length is always written for non-HEAD responses unless the
// handler set one already.
func writeResponseHeaderBlock(w io.Writer, resp *Response, keepAlive bool, isHead bool) error {
	code := resp.StatusCode
	if code == 0 {
		code = 200
	}
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", code, reasonPhrase(code)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Server: %s\r\n", serverIdentifier); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Date: %s\r\n", time.Now().UTC().Format(http1123GMT)); err != nil {
		return err
	}
	if keepAlive {
		if _, err := io.WriteString(w, "Connection: keep-alive\r\n"); err != nil {
			return err
		}
	} else {
		if _, err := io.WriteString(w, "Connection: close\r\n"); err != nil {
			return err
		}
	}
	if !isHead && !resp.Header.Has("Content-Length") {
		if _, err := fmt.Fprintf(w, "Content-Length: %d\r\n", len(resp.Body)); err != nil {
			return err
		}
	}
	var werr error
	resp.Header.Range(func(key, value string) bool {
		if strings.EqualFold(key, "Connection") {
			return true
		}
		if _, err := fmt.Fprintf(w, "%s: %s\r\n", key, sanitizeHeaderValue(value)); err != nil {
			werr = err
			return false
		}
		return true
	})
	if werr != nil {
		return werr
	}
	_, err := io.WriteString(w, "\r\n")
	return err
}

// http1123GMT is time.RFC1123 pinned to GMT instead of the zone
// abbreviation Go's time package would otherwise substitute.
const http1123GMT = "Mon, 02 Jan 2006 15:04:05 GMT"

// sanitizeHeaderValue strips CR/LF and other control characters (except
// HTAB) from a header value before it hits the wire, preventing response
// splitting via handler-supplied header values.
func sanitizeHeaderValue(v string) string {
	if v == "" {
		return v
	}
	var b strings.Builder
	b.Grow(len(v))
	for i := 0; i < len(v); i++ {
		c := v[i]
		if c == '\r' || c == '\n' || c == 0x7f {
			continue
		}
		if c < 0x20 && c != '\t' {
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
