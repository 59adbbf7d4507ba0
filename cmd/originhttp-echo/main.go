// Command originhttp-echo runs a minimal origin server: it echoes the
// request body back on POST, returns a static greeting on GET, and
// echoes every inbound WebSocket text frame on any Upgrade request.
package main

import (
	"log"

	"github.com/coriolis-labs/originhttp/originhttp"
)

func main() {
	cfg := originhttp.NewServerConfig()
	cfg.Port = 8080
	cfg.KeepAlive = true
	cfg.Trace = true

	// srv logs its own bind address once ListenAndServe actually opens
	// the listener; originhttp.LastBoundSite() only becomes meaningful
	// after that point.
	srv := originhttp.NewServer(cfg, originhttp.HandlerFunc(handle))
	log.Fatal(srv.ListenAndServe())
}

func handle(ctx *originhttp.HttpContext) {
	if ctx.WebSocket != nil {
		echoFrame(ctx)
		return
	}

	req := ctx.Request
	resp := ctx.Response

	switch {
	case req.Method == originhttp.MethodGET:
		resp.StatusCode = 200
		resp.Body = []byte("hello from originhttp\n")
	case req.Method == originhttp.MethodPOST:
		body, err := req.BodyBytes()
		if err != nil {
			resp.StatusCode = 500
			resp.Body = []byte("error reading body\n")
			break
		}
		resp.StatusCode = 200
		resp.Body = body
	default:
		resp.StatusCode = 405
		resp.Body = []byte("method not allowed\n")
	}

	if err := ctx.Send(); err != nil {
		log.Printf("send failed: %v", err)
	}
}

func echoFrame(ctx *originhttp.HttpContext) {
	ws := ctx.WebSocket
	if ws.InFrame == nil {
		return
	}
	if err := ws.SendText(ws.InFrame.Payload); err != nil {
		log.Printf("websocket send failed: %v", err)
	}
}
