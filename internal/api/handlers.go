package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sh4869221b/niconeon/internal/middleware"
	"github.com/sh4869221b/niconeon/internal/rpc"
)

// maxRequestBytes bounds one POST /rpc body
const maxRequestBytes = 16 << 20

// Handler handles HTTP requests
// Learning: Uses INTERFACES defined in this package (consumer-driven)
type Handler struct {
	rpc RPCDispatcher
	hub WebSocketHub
}

func NewHandler(dispatcher RPCDispatcher, hub WebSocketHub) *Handler {
	return &Handler{
		rpc: dispatcher,
		hub: hub,
	}
}

// HandleRPC answers one JSON-RPC request per POST body.
// JSON-RPC errors travel in the body, so the status is 200 whenever a response was produced.
func (h *Handler) HandleRPC(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes+1))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(body) > maxRequestBytes {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}

	resp := h.rpc.HandleMessage(r.Context(), body)
	if resp.Error != nil && resp.Error.Code == rpc.CodeParseError {
		logrus.WithField("request_id", middleware.GetRequestID(r.Context())).Debug("unparsable rpc body")
	}

	writeJSON(w, http.StatusOK, resp)
}

// HealthResponse is the body of GET /api/health
type HealthResponse struct {
	Status           string `json:"status"`
	WebSocketClients int    `json:"websocket_clients"`
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:           "ok",
		WebSocketClients: h.hub.Len(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Warn("failed to write response")
	}
}
