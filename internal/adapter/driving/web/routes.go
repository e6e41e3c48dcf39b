package web

import "net/http"

// RegisterRoutes registers the HTML routes on the provided mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /mcp-info", h.MCPInfo)
}
