package originhttp

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/coriolis-labs/originhttp/internal/wire"
)

var spoolPool bytebufferpool.Pool

// sizeViolation is returned by spoolBody when the request fails the
// server's size policy (§4.3); the server sends this response itself
// without ever invoking the user callback. err is one of
// ErrLengthRequired/ErrPayloadTooLarge, so callers holding a sizeViolation
// can still errors.Is against the sentinel that produced it.
type sizeViolation struct {
	status  int
	message string
	err     error
}

// spoolBody implements the body spooler (§4.3). It only reads a body for
// {POST, PUT, PATCH, DELETE}; every other method returns BodyAbsent
// immediately. A missing Content-Length on a body-bearing method, or one
// declaring more than the configured maximum, is reported as a
// sizeViolation instead of an error: the caller writes that response and
// moves on without touching the handler.
func spoolBody(cfg *ServerConfig, method Method, header Header, br *bufio.Reader) (Body, *sizeViolation, error) {
	if !method.hasBody() {
		return Body{Kind: BodyAbsent}, nil, nil
	}

	clStr := header.Get("Content-Length")
	if clStr == "" {
		return Body{}, &sizeViolation{status: 411, message: "Length Required", err: ErrLengthRequired}, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(clStr), 10, 64)
	if err != nil || n < 0 {
		return Body{}, nil, ErrBadRequest
	}

	max := cfg.maxBody()
	if n > max {
		mb := max / (1024 * 1024)
		msg := fmt.Sprintf("request larger than %d MB not allowed.", mb)
		return Body{}, &sizeViolation{status: 413, message: msg, err: ErrPayloadTooLarge}, nil
	}
	if n == 0 {
		return Body{Kind: BodyAbsent}, nil, nil
	}

	bufSize := int64(cfg.readBufSize())
	if n <= bufSize {
		data, err := readSmallBody(br, n)
		if err != nil {
			return Body{}, nil, err
		}
		return Body{Kind: BodyInMemory, Bytes: data}, nil, nil
	}

	path := filepath.Join(cfg.tmpBodyDir(), genSpoolName())
	f, err := os.Create(path)
	if err != nil {
		return Body{}, nil, errors.Wrap(err, "originhttp: creating spool file")
	}
	defer f.Close()

	if err := wire.CopyExact(f, br, n); err != nil {
		os.Remove(path)
		return Body{}, nil, err
	}

	return Body{Kind: BodySpooled, Path: path}, nil, nil
}

// readSmallBody reads the whole declared-length body through a pooled
// scratch buffer, then copies it into a Body-owned slice — the
// ≤-read-buffer-size branch of §4.3, kept off disk entirely as
// BodyInMemory. The pooled buffer (github.com/valyala/bytebufferpool, the
// same pool newacorn-fasthttp keeps per-request bodies in) avoids growing
// a fresh backing array on every small request; only the final copy
// escapes the pool.
func readSmallBody(br *bufio.Reader, n int64) ([]byte, error) {
	bb := spoolPool.Get()
	defer spoolPool.Put(bb)

	if cap(bb.B) < int(n) {
		bb.B = make([]byte, n)
	} else {
		bb.B = bb.B[:n]
	}
	if _, err := io.ReadFull(br, bb.B); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrConnectionClosed
		}
		return nil, errors.Wrap(err, "originhttp: reading request body")
	}
	data := make([]byte, n)
	copy(data, bb.B)
	return data, nil
}

// readSpooledBody reads back the full contents of a spooled body file.
// The handler is expected to read the file itself for large bodies; this
// is a convenience for handlers that want the whole thing in memory.
func readSpooledBody(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "originhttp: reading spool file")
	}
	return data, nil
}

// cleanup removes the spool file backing b, if any. The source this
// package is grounded on never deleted its temp files (spec.md §9
// flags this); every code path that clears a Request ties the file's
// lifetime to this call.
func (b Body) cleanup() {
	if b.Kind == BodySpooled && b.Path != "" {
		_ = os.Remove(b.Path)
	}
}
