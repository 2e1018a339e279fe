package api

import "net/http"

// HandleWebSocket upgrades to a websocket carrying one JSON-RPC request per text frame
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
