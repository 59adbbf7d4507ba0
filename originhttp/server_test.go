package originhttp

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startTestServer(t *testing.T, h Handler, configure func(*ServerConfig)) (addr string, shutdown func()) {
	t.Helper()
	cfg := NewServerConfig()
	cfg.Address = "127.0.0.1"
	cfg.Port = 0
	cfg.KeepAlive = true
	if configure != nil {
		configure(cfg)
	}

	srv := NewServer(cfg, h)
	ln, err := net.Listen("tcp", cfg.bindAddr())
	require.NoError(t, err)

	srv.mu.Lock()
	srv.plainLn = ln
	srv.mu.Unlock()

	go func() { _ = srv.serve(ln) }()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Close(ctx)
	}
}

func TestServeConnPlainRequestResponse(t *testing.T) {
	addr, shutdown := startTestServer(t, HandlerFunc(func(ctx *HttpContext) {
		ctx.Response.StatusCode = 200
		ctx.Response.Body = []byte("pong")
		require.NoError(t, ctx.Send())
	}), nil)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("GET /ping HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n"))
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 200 OK\r\n", status)

	var body strings.Builder
	inBody := false
	for {
		line, err := br.ReadString('\n')
		if inBody {
			body.WriteString(line)
		} else if line == "\r\n" {
			inBody = true
		}
		if err != nil {
			break
		}
	}
	assert.Equal(t, "pong", body.String())
}

func TestServeConnKeepAliveReusesConnection(t *testing.T) {
	addr, shutdown := startTestServer(t, HandlerFunc(func(ctx *HttpContext) {
		ctx.Response.StatusCode = 200
		ctx.Response.Body = []byte("hi")
		require.NoError(t, ctx.Send())
	}), nil)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	br := bufio.NewReader(conn)
	for i := 0; i < 2; i++ {
		_, err = conn.Write([]byte("GET / HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n"))
		require.NoError(t, err)

		status, err := br.ReadString('\n')
		require.NoError(t, err)
		assert.Equal(t, "HTTP/1.1 200 OK\r\n", status)

		for {
			line, err := br.ReadString('\n')
			require.NoError(t, err)
			if line == "\r\n" {
				break
			}
		}

		bodyBuf := make([]byte, len("hi"))
		_, err = io.ReadFull(br, bodyBuf)
		require.NoError(t, err)
		assert.Equal(t, "hi", string(bodyBuf))
	}
}

func TestServeConnUnknownMethodClosesSilently(t *testing.T) {
	addr, shutdown := startTestServer(t, HandlerFunc(func(ctx *HttpContext) {
		t.Fatal("handler should never be invoked for an unknown method")
	}), nil)
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("FROB / HTTP/1.1\r\nHost: example.com\r\n\r\n"))
	require.NoError(t, err)

	buf := make([]byte, 16)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	n, err := conn.Read(buf)
	assert.Equal(t, 0, n)
	assert.Error(t, err)
}

func TestServeConnBodyTooLargeReturns413WithoutInvokingHandler(t *testing.T) {
	addr, shutdown := startTestServer(t, HandlerFunc(func(ctx *HttpContext) {
		t.Fatal("handler should never be invoked when the body policy rejects the request")
	}), func(cfg *ServerConfig) { cfg.MaxBodyLength = 4 })
	defer shutdown()

	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	defer conn.Close()

	req := "POST /upload HTTP/1.1\r\nHost: example.com\r\nContent-Length: 100\r\nConnection: close\r\n\r\n"
	_, err = conn.Write([]byte(req))
	require.NoError(t, err)

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "HTTP/1.1 413 Payload Too Large\r\n", status)
}
