// Package web implements the HTML driving adapter using templ components.
package web

import (
	"log/slog"
	"net/http"
	"strings"
)

// Handler is the web driving adapter that serves HTML via templ components.
type Handler struct {
	view   InfoView
	logger *slog.Logger
}

// NewHandler creates a Handler. publicURL is the externally reachable base
// URL; when empty, page links are built from each request's host.
func NewHandler(name, version, publicURL string, tools []ToolView, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		view: InfoView{
			Name:      name,
			Version:   version,
			MCPURL:    strings.TrimRight(publicURL, "/"),
			Tools:     tools,
			Protocols: []string{"MCP over Streamable HTTP (/mcp)", "MCP over SSE (/sse, /message)"},
		},
		logger: logger,
	}
}

// MCPInfo renders the connection instructions page.
func (h *Handler) MCPInfo(w http.ResponseWriter, r *http.Request) {
	view := h.view
	base := view.MCPURL
	if base == "" {
		scheme := "http"
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	view.MCPURL = base + "/mcp"
	view.SSEURL = base + "/sse"

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := Layout(view.Name, InfoPage(view)).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to render mcp info page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}
