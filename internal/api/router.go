package api

import (
	"github.com/sh4869221b/niconeon/internal/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	// Learning: Middleware runs in order - tracing first, then recovery, then CORS
	r.Use(middleware.TracingMiddleware)       // Add tracing spans to all requests
	r.Use(middleware.ErrorRecoveryMiddleware) // Catch panics
	r.Use(middleware.CORSMiddleware)          // Handle CORS

	// JSON-RPC over HTTP
	r.HandleFunc("/rpc", h.HandleRPC).Methods("POST", "OPTIONS")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", h.Health).Methods("GET")

	// WebSocket route: JSON-RPC requests plus server notifications
	r.HandleFunc("/ws", h.HandleWebSocket)

	return r
}
