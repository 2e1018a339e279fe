package api

import (
	"context"
	"net/http"

	"github.com/sh4869221b/niconeon/internal/rpc"
)

/*
LEARNING: CONSUMER-DRIVEN INTERFACES (Go Idiom)

This package (api/handlers) is the CONSUMER of the rpc server and the websocket
hub, so the interfaces it needs live HERE.

The handler only moves bytes between HTTP and the dispatcher. Tests swap in
small stubs without starting a database or a hub.
*/

// RPCDispatcher answers one raw JSON-RPC request
type RPCDispatcher interface {
	HandleMessage(ctx context.Context, data []byte) *rpc.Response
}

// WebSocketHub accepts websocket upgrades
type WebSocketHub interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
	Len() int
}
