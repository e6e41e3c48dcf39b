package httphandler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

const (
	defaultUsageLimit = 50
	maxUsageLimit     = 500
)

// Stores groups the connection stores served by the admin API.
type Stores struct {
	WordPress driven.WordPressStore
	Kie       driven.KieStore
	Wordstat  driven.WordstatStore
	Telegram  driven.TelegramStore
}

// ToolSummary names one MCP tool on the server info endpoint.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ServerInfo is the static description served at the root path.
type ServerInfo struct {
	Name      string
	Version   string
	PublicURL string
	Tools     []ToolSummary
}

// Handler is the HTTP driving adapter that serves the REST admin API.
type Handler struct {
	wordpress kindRoutes
	services  map[model.Kind]kindRoutes
	connSvc   *application.ConnectionService
	usage     driven.UsageStore
	info      ServerInfo
	logger    *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. connSvc and
// usage may be nil, which disables verification and the usage endpoint.
func NewHandler(
	stores Stores,
	connSvc *application.ConnectionService,
	usage driven.UsageStore,
	info ServerInfo,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}

	h := &Handler{
		connSvc: connSvc,
		usage:   usage,
		info:    info,
		logger:  logger,
	}

	h.wordpress = &connectionRoutes[model.WordPressConnection, model.NewWordPressConnection, model.WordPressPatch, createWordPressRequest, patchWordPressRequest]{
		kind:    model.KindWordPress,
		store:   stores.WordPress,
		respond: func(c model.WordPressConnection) any { return toWordPressResponse(c) },
		changed: h.forgetClient,
		logger:  logger,
	}
	h.services = map[model.Kind]kindRoutes{
		model.KindKie: &connectionRoutes[model.KieConnection, model.NewKieConnection, model.KiePatch, createKieRequest, patchKieRequest]{
			kind:    model.KindKie,
			store:   stores.Kie,
			respond: func(c model.KieConnection) any { return toKieResponse(c) },
			logger:  logger,
		},
		model.KindWordstat: &connectionRoutes[model.WordstatConnection, model.NewWordstatConnection, model.WordstatPatch, createWordstatRequest, patchWordstatRequest]{
			kind:    model.KindWordstat,
			store:   stores.Wordstat,
			respond: func(c model.WordstatConnection) any { return toWordstatResponse(c) },
			logger:  logger,
		},
		model.KindTelegram: &connectionRoutes[model.TelegramConnection, model.NewTelegramConnection, model.TelegramPatch, createTelegramRequest, patchTelegramRequest]{
			kind:    model.KindTelegram,
			store:   stores.Telegram,
			respond: func(c model.TelegramConnection) any { return toTelegramResponse(c) },
			logger:  logger,
		},
	}

	return h
}

// RegisterAPIRoutes registers the admin API, health, info and metrics routes.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /{$}", h.Info)
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("GET /health", h.Health)
	mux.Handle("GET /msp", http.RedirectHandler("/mcp", http.StatusMovedPermanently))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/users/{owner}/wordpress", h.wordpress.list)
	mux.HandleFunc("POST /api/v1/users/{owner}/wordpress", h.wordpress.create)
	mux.HandleFunc("GET /api/v1/users/{owner}/wordpress/{id}", h.wordpress.get)
	mux.HandleFunc("PATCH /api/v1/users/{owner}/wordpress/{id}", h.wordpress.update)
	mux.HandleFunc("DELETE /api/v1/users/{owner}/wordpress/{id}", h.wordpress.remove)
	mux.HandleFunc("POST /api/v1/users/{owner}/wordpress/{id}/verify", h.VerifyWordPress)

	mux.HandleFunc("GET /api/v1/users/{owner}/services/{kind}", h.serviceHandler(kindRoutes.list))
	mux.HandleFunc("POST /api/v1/users/{owner}/services/{kind}", h.serviceHandler(kindRoutes.create))
	mux.HandleFunc("GET /api/v1/users/{owner}/services/{kind}/{id}", h.serviceHandler(kindRoutes.get))
	mux.HandleFunc("PATCH /api/v1/users/{owner}/services/{kind}/{id}", h.serviceHandler(kindRoutes.update))
	mux.HandleFunc("DELETE /api/v1/users/{owner}/services/{kind}/{id}", h.serviceHandler(kindRoutes.remove))
	mux.HandleFunc("POST /api/v1/users/{owner}/services/telegram/{id}/verify", h.VerifyTelegram)

	mux.HandleFunc("GET /api/v1/users/{owner}/usage", h.ListUsage)
}

// serviceHandler dispatches a combined-store route to the routes of the
// requested kind.
func (h *Handler) serviceHandler(fn func(kindRoutes, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		kind, ok := model.ParseKind(r.PathValue("kind"))
		routes, found := h.services[kind]
		if !ok || !found {
			writeError(w, http.StatusNotFound, "unknown service kind")
			return
		}
		fn(routes, w, r)
	}
}

// Info returns the server name, version, endpoints and tools.
func (h *Handler) Info(w http.ResponseWriter, _ *http.Request) {
	tools := h.info.Tools
	if tools == nil {
		tools = []ToolSummary{}
	}
	writeJSON(w, http.StatusOK, InfoResponse{
		Name:     h.info.Name,
		Version:  h.info.Version,
		Protocol: "MCP over Streamable HTTP / SSE",
		Endpoints: map[string]string{
			"/":                      "Server information",
			"/api/v1/health":         "Health check",
			"/mcp":                   "Streamable HTTP MCP endpoint",
			"/sse":                   "SSE MCP endpoint (legacy)",
			"/mcp-info":              "Connection instructions",
			"/api/v1/users/{owner}/": "Connection administration",
		},
		Tools: tools,
		URL:   h.info.PublicURL,
	})
}

// Health returns a simple health check response.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// VerifyWordPress checks a WordPress connection's credentials against its site.
func (h *Handler) VerifyWordPress(w http.ResponseWriter, r *http.Request) {
	if h.connSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "verification is not configured")
		return
	}
	result, err := h.connSvc.VerifyWordPress(r.Context(), r.PathValue("owner"), r.PathValue("id"))
	h.writeVerifyResult(w, result, err)
}

// VerifyTelegram checks a Telegram connection's bot token.
func (h *Handler) VerifyTelegram(w http.ResponseWriter, r *http.Request) {
	if h.connSvc == nil {
		writeError(w, http.StatusServiceUnavailable, "verification is not configured")
		return
	}
	result, err := h.connSvc.VerifyTelegram(r.Context(), r.PathValue("owner"), r.PathValue("id"))
	h.writeVerifyResult(w, result, err)
}

func (h *Handler) writeVerifyResult(w http.ResponseWriter, result model.VerifyResult, err error) {
	if err != nil {
		if errors.Is(err, application.ErrConnectionNotFound) {
			writeError(w, http.StatusNotFound, "connection not found")
			return
		}
		writeStoreError(w, h.logger, "verify connection", err)
		return
	}
	writeJSON(w, http.StatusOK, VerifyResponse{
		Success:     result.Success,
		Message:     result.Message,
		DisplayName: result.DisplayName,
	})
}

// ListUsage returns the owner's most recent credential uses, newest first.
func (h *Handler) ListUsage(w http.ResponseWriter, r *http.Request) {
	limit := defaultUsageLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxUsageLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(maxUsageLimit))
			return
		}
		limit = n
	}

	if h.usage == nil {
		writeJSON(w, http.StatusOK, []UsageEventResponse{})
		return
	}

	owner := r.PathValue("owner")
	events, err := h.usage.ListByOwner(r.Context(), owner, limit)
	if err != nil {
		h.logger.Error("failed to list usage", "owner", owner, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	resp := make([]UsageEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, toUsageEventResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) forgetClient(id string) {
	if h.connSvc != nil {
		h.connSvc.ForgetClient(id)
	}
}
