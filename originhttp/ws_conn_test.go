package originhttp

import (
	"bufio"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeWSAcceptRFC6455Vector(t *testing.T) {
	// The example key/accept pair from RFC 6455 §1.3.
	got := computeWSAccept("dGhlIHNhbXBsZSBub25jZQ==")
	assert.Equal(t, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=", got)
}

func TestIsUpgradeRequest(t *testing.T) {
	h := NewHeader()
	h.Set("Upgrade", "websocket")
	assert.True(t, isUpgradeRequest(MethodGET, h))
	assert.False(t, isUpgradeRequest(MethodPOST, h))

	h2 := NewHeader()
	h2.Set("Upgrade", "h2c")
	assert.False(t, isUpgradeRequest(MethodGET, h2))
}

func newHandshakeContext(server Stream, reqHeader Header) *HttpContext {
	return &HttpContext{
		stream:   server,
		Response: NewResponse(),
		WebSocket: &WebSocket{
			stream:                 server,
			State:                  WSHandShake,
			HashID:                 genID(),
			HandshakeRequestHeader: reqHeader,
		},
	}
}

func TestPerformHandshakeSuccess(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	reqHeader := NewHeader()
	reqHeader.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	reqHeader.Set("Sec-WebSocket-Version", "13")
	ctx := newHandshakeContext(server, reqHeader)

	bw := bufio.NewWriter(server)
	errCh := make(chan error, 1)
	go func() { errCh <- performHandshake(ctx, bw) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 101 Switching Protocols\r\n", status)

	var acceptLine string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		if len(line) >= len("Sec-WebSocket-Accept:") && line[:len("Sec-WebSocket-Accept:")] == "Sec-WebSocket-Accept:" {
			acceptLine = line
		}
	}

	require.NoError(t, <-errCh)
	assert.Equal(t, WSOpen, ctx.WebSocket.State)
	assert.Contains(t, acceptLine, "s3pPLMBiTxaQ9kYGzzhZRbK+xOo=")
}

func TestPerformHandshakeMissingKeyFails(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	ctx := newHandshakeContext(server, NewHeader())
	bw := bufio.NewWriter(server)

	errCh := make(chan error, 1)
	go func() { errCh <- performHandshake(ctx, bw) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n", status)

	assert.ErrorIs(t, <-errCh, ErrHandshakeFailed)
	assert.Equal(t, StatusHandShakeFailed, ctx.WebSocket.StatusCode)
}

func TestPerformHandshakeRejectsUnsupportedVersion(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	reqHeader := NewHeader()
	reqHeader.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	reqHeader.Set("Sec-WebSocket-Version", "8")
	ctx := newHandshakeContext(server, reqHeader)
	bw := bufio.NewWriter(server)

	errCh := make(chan error, 1)
	go func() { errCh <- performHandshake(ctx, bw) }()

	br := bufio.NewReader(client)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 400 Bad Request\r\n", status)
	assert.ErrorIs(t, <-errCh, ErrHandshakeFailed)
}

func TestPerformHandshakeEchoesNegotiatedProtocol(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	reqHeader := NewHeader()
	reqHeader.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	reqHeader.Set("Sec-WebSocket-Protocol", "chat")
	ctx := newHandshakeContext(server, reqHeader)
	// This is the SPEC_FULL.md supplemented-feature hook conn.go drives
	// before performHandshake: the handler picks a subprotocol while
	// ws.State is still HandShake.
	ctx.Response.Header.Set("Sec-WebSocket-Protocol", "chat")

	bw := bufio.NewWriter(server)
	errCh := make(chan error, 1)
	go func() { errCh <- performHandshake(ctx, bw) }()

	br := bufio.NewReader(client)
	var sawProtocol bool
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if line == "\r\n" {
			break
		}
		if line == "Sec-WebSocket-Protocol: chat\r\n" {
			sawProtocol = true
		}
	}

	require.NoError(t, <-errCh)
	assert.True(t, sawProtocol, "expected negotiated subprotocol to be echoed")
	assert.Equal(t, "chat", ctx.WebSocket.HandshakeResponseHeader.Get("Sec-WebSocket-Protocol"))
}

func TestRunWebSocketLoopEchoesMaskedTextFrame(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	cfg := NewServerConfig()
	ctx := &HttpContext{
		stream:    server,
		WebSocket: &WebSocket{stream: server, State: WSOpen, HashID: genID()},
	}
	echo := HandlerFunc(func(ctx *HttpContext) {
		if ctx.WebSocket.InFrame == nil {
			return
		}
		require.NoError(t, ctx.WebSocket.SendText(ctx.WebSocket.InFrame.Payload))
	})

	done := make(chan struct{})
	go func() {
		runWebSocketLoop(ctx, echo, cfg)
		close(done)
	}()

	require.NoError(t, writeWSFrame(client, &WSFrame{Fin: true, Opcode: OpText, Payload: []byte("Hello")}, true))

	got, status, err := readWSFrame(client, 0)
	require.NoError(t, err)
	require.Equal(t, WSStatusCode(0), status)
	assert.Equal(t, OpText, got.Opcode)
	assert.Equal(t, "Hello", string(got.Payload))

	require.NoError(t, writeWSFrame(client, &WSFrame{Fin: true, Opcode: OpClose}, true))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runWebSocketLoop did not return after a close frame")
	}
	assert.Equal(t, WSClose, ctx.WebSocket.State)
	assert.Equal(t, StatusUnexpectedClose, ctx.WebSocket.StatusCode)
}

func TestRunWebSocketLoopRepliesToPing(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	cfg := NewServerConfig()
	ctx := &HttpContext{
		stream:    server,
		WebSocket: &WebSocket{stream: server, State: WSOpen, HashID: genID()},
	}
	handler := HandlerFunc(func(ctx *HttpContext) {})

	done := make(chan struct{})
	go func() {
		runWebSocketLoop(ctx, handler, cfg)
		close(done)
	}()

	require.NoError(t, writeWSFrame(client, &WSFrame{Fin: true, Opcode: OpPing, Payload: []byte("nonce")}, true))

	got, status, err := readWSFrame(client, 0)
	require.NoError(t, err)
	require.Equal(t, WSStatusCode(0), status)
	assert.Equal(t, OpPong, got.Opcode)
	assert.Equal(t, "nonce", string(got.Payload))

	require.NoError(t, writeWSFrame(client, &WSFrame{Fin: true, Opcode: OpClose}, true))
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runWebSocketLoop did not return after a close frame")
	}
}

func TestRunWebSocketLoopClosesOnUnsolicitedPong(t *testing.T) {
	client, server := newLoopback()
	defer client.Close()
	defer server.Close()

	cfg := NewServerConfig()
	ctx := &HttpContext{
		stream:    server,
		WebSocket: &WebSocket{stream: server, State: WSOpen, HashID: "expected-nonce"},
	}
	handler := HandlerFunc(func(ctx *HttpContext) {})

	done := make(chan struct{})
	go func() {
		runWebSocketLoop(ctx, handler, cfg)
		close(done)
	}()

	require.NoError(t, writeWSFrame(client, &WSFrame{Fin: true, Opcode: OpPong, Payload: []byte("unmatched")}, true))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runWebSocketLoop did not close on an unsolicited pong")
	}
	assert.Equal(t, WSClose, ctx.WebSocket.State)
	assert.Equal(t, StatusUnknownOpcode, ctx.WebSocket.StatusCode)
}
