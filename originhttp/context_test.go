package originhttp

import (
	"bufio"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHttpContextSendIsIdempotent(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	ctx := &HttpContext{
		stream:    server,
		bw:        bufio.NewWriter(server),
		Request:   &Request{Method: MethodGET, Header: NewHeader()},
		Response:  NewResponse(),
		keepAlive: true,
	}
	ctx.Response.StatusCode = 204

	go func() {
		require.NoError(t, ctx.Send())
		// A second call must not attempt to write again.
		require.NoError(t, ctx.Send())
	}()

	br := bufio.NewReader(client)
	line, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 204 No Content\r\n", line)

	// Drain the rest of the header block so the writer goroutine's
	// second (no-op) Send doesn't block on an unread pipe.
	for {
		l, err := br.ReadString('\n')
		require.NoError(t, err)
		if l == "\r\n" {
			break
		}
	}
}
