package httphandler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/jsonstore"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/secrets"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/telegram"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/wordpress"
	httphandler "github.com/ericfisherdev/wpgateway/internal/adapter/driving/http"
	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// --- Mock implementations ---

type mockUsageStore struct {
	events []model.UsageEvent
	limit  int
}

func (m *mockUsageStore) Record(_ context.Context, e model.UsageEvent) (model.UsageEvent, error) {
	e.ID = int64(len(m.events) + 1)
	m.events = append(m.events, e)
	return e, nil
}

func (m *mockUsageStore) ListByOwner(_ context.Context, owner string, limit int) ([]model.UsageEvent, error) {
	m.limit = limit
	out := []model.UsageEvent{}
	for i := len(m.events) - 1; i >= 0; i-- {
		if m.events[i].Owner == owner {
			out = append(out, m.events[i])
		}
	}
	return out, nil
}

// --- Test helpers ---

type testEnv struct {
	mux      http.Handler
	dir      string
	wpStore  *jsonstore.WordPressRepo
	services *jsonstore.ServiceRepo
	usage    *mockUsageStore
	registry *application.ClientRegistry
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	raw, err := secrets.ParseKey(key)
	require.NoError(t, err)
	cipher, err := secrets.NewCipher(raw)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	env := &testEnv{
		dir:      dir,
		wpStore:  jsonstore.NewWordPressRepo(filepath.Join(dir, "wordpress_connections.json"), cipher, jsonstore.WithLogger(logger)),
		services: jsonstore.NewServiceRepo(filepath.Join(dir, "service_connections.json"), cipher, jsonstore.WithLogger(logger)),
		usage:    &mockUsageStore{},
	}
	env.registry = application.NewClientRegistry(func(c model.WordPressConnection) driven.CMSClient {
		return wordpress.NewClient(c.SiteURL, c.Username, c.Password, wordpress.WithTimeout(2*time.Second))
	}, 8, time.Minute)

	connSvc := application.NewConnectionService(env.wpStore, env.services.Telegram(), env.registry,
		telegram.NewNotifier("http://127.0.0.1:1", logger), env.usage, logger)

	h := httphandler.NewHandler(httphandler.Stores{
		WordPress: env.wpStore,
		Kie:       env.services.Kie(),
		Wordstat:  env.services.Wordstat(),
		Telegram:  env.services.Telegram(),
	}, connSvc, env.usage, httphandler.ServerInfo{
		Name:    "WordPress MCP Server",
		Version: "test",
		Tools:   []httphandler.ToolSummary{{Name: "create_post", Description: "Create a new WordPress post on your site"}},
	}, logger)

	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, h)
	env.mux = httphandler.ApplyMiddleware(mux, logger)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))
	err := json.NewDecoder(rec.Body).Decode(v)
	require.NoError(t, err)
}

const wordpressBody = `{
	"site_name": "My Blog",
	"site_url": "https://blog.example.com/",
	"wp_username": "admin",
	"wp_password": "app-pass-1"
}`

// --- Tests ---

func TestHealth(t *testing.T) {
	env := setupEnv(t)

	for _, path := range []string{"/api/v1/health", "/health"} {
		rec := env.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		decodeJSON(t, rec, &body)
		assert.Equal(t, "ok", body["status"])
	}
}

func TestInfo(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, "WordPress MCP Server", body["name"])
	assert.Equal(t, "test", body["version"])
	tools, ok := body["tools"].([]any)
	require.True(t, ok)
	assert.Len(t, tools, 1)

	rec = env.do(t, http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code, "root pattern matches only /")
}

func TestMSPRedirect(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/msp", "")

	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/mcp", rec.Header().Get("Location"))
}

func TestMetrics(t *testing.T) {
	env := setupEnv(t)
	env.do(t, http.MethodGet, "/health", "")

	rec := env.do(t, http.MethodGet, "/metrics", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "wpgateway_http_responses_total")
}

func TestWordPressLifecycle(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/alice/wordpress", wordpressBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "app-pass-1")

	var created map[string]any
	decodeJSON(t, rec, &created)
	assert.Equal(t, "alice_1", created["connection_id"])
	assert.Equal(t, "alice", created["owner"])
	assert.Equal(t, "https://blog.example.com", created["site_url"])
	assert.Equal(t, "en", created["site_language"])
	assert.Equal(t, true, created["wp_password_set"])
	assert.Equal(t, true, created["enabled"])
	assert.Nil(t, created["last_used"])

	rec = env.do(t, http.MethodGet, "/api/v1/users/alice/wordpress", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list []map[string]any
	decodeJSON(t, rec, &list)
	require.Len(t, list, 1)

	rec = env.do(t, http.MethodPatch, "/api/v1/users/alice/wordpress/alice_1", `{"site_name":"Renamed","enabled":false}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated map[string]any
	decodeJSON(t, rec, &updated)
	assert.Equal(t, "Renamed", updated["site_name"])
	assert.Equal(t, false, updated["enabled"])
	assert.Equal(t, "admin", updated["wp_username"], "fields not in the patch are kept")

	rec = env.do(t, http.MethodDelete, "/api/v1/users/alice/wordpress/alice_1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/v1/users/alice/wordpress/alice_1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/v1/users/alice/wordpress/alice_1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWordPress_PasswordNeverStoredInPlaintext(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/alice/wordpress", wordpressBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	data, err := os.ReadFile(filepath.Join(env.dir, "wordpress_connections.json"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "app-pass-1")
}

func TestCreateConnection_Validation(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
		want string
	}{
		{"malformed json", "/api/v1/users/alice/wordpress", `{"site_name":`, "invalid request body"},
		{"unknown field", "/api/v1/users/alice/wordpress", `{"site_name":"a","bogus":1}`, "invalid request body"},
		{"missing password", "/api/v1/users/alice/wordpress", `{"site_name":"a","site_url":"https://a.example","wp_username":"u"}`, "wp_password"},
		{"bad url", "/api/v1/users/alice/wordpress", `{"site_name":"a","site_url":"not a url","wp_username":"u","wp_password":"p"}`, "site_url"},
		{"two objects", "/api/v1/users/alice/services/kie", `{"connection_name":"k","api_key":"x"}{}`, "one JSON object"},
		{"missing api key", "/api/v1/users/alice/services/kie", `{"connection_name":"k"}`, "api_key"},
		{"telegram without chat", "/api/v1/users/alice/services/telegram", `{"bot_name":"b","bot_token":"t"}`, "chat_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupEnv(t)

			rec := env.do(t, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			var body map[string]string
			decodeJSON(t, rec, &body)
			assert.Contains(t, body["error"], tt.want)
		})
	}
}

func TestServiceConnections(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodPost, "/api/v1/users/bob/services/kie", `{"connection_name":"main","api_key":"kie-secret"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var kie map[string]any
	decodeJSON(t, rec, &kie)
	assert.Equal(t, "bob_kie_1", kie["connection_id"])
	assert.Equal(t, true, kie["api_key_set"])
	assert.NotContains(t, rec.Body.String(), "kie-secret")

	rec = env.do(t, http.MethodPost, "/api/v1/users/bob/services/wordstat",
		`{"connection_name":"ws","client_id":"cid","client_secret":"cs","redirect_uri":"https://oauth.yandex.ru/verification_code"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var ws map[string]any
	decodeJSON(t, rec, &ws)
	assert.Equal(t, "bob_wordstat_1", ws["connection_id"])
	assert.Equal(t, true, ws["client_secret_set"])

	rec = env.do(t, http.MethodPost, "/api/v1/users/bob/services/telegram", `{"bot_name":"news","bot_token":"1:abc","chat_id":"@news"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPatch, "/api/v1/users/bob/services/kie/bob_kie_1", `{"description":"rotated","api_key":"kie-secret-2"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	decodeJSON(t, rec, &kie)
	assert.Equal(t, "rotated", kie["description"])

	stored, err := env.services.Kie().Get(context.Background(), "bob", "bob_kie_1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "kie-secret-2", stored.APIKey)

	rec = env.do(t, http.MethodGet, "/api/v1/users/bob/services/telegram", "")
	var tg []map[string]any
	decodeJSON(t, rec, &tg)
	require.Len(t, tg, 1)
	assert.Equal(t, true, tg[0]["bot_token_set"])
	assert.Equal(t, "@news", tg[0]["chat_id"])

	rec = env.do(t, http.MethodDelete, "/api/v1/users/bob/services/wordstat/bob_wordstat_1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestServiceConnections_UnknownKind(t *testing.T) {
	env := setupEnv(t)

	for _, kind := range []string{"github", "wordpress"} {
		rec := env.do(t, http.MethodGet, "/api/v1/users/bob/services/"+kind, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, kind)
	}
}

func TestListConnections_EmptyIsArray(t *testing.T) {
	env := setupEnv(t)

	rec := env.do(t, http.MethodGet, "/api/v1/users/nobody/services/kie", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestVerifyWordPress(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "app-pass-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":1,"name":"Alice Admin"}`)
	}))
	t.Cleanup(site.Close)

	env := setupEnv(t)
	_, err := env.wpStore.Add(context.Background(), "alice", model.NewWordPressConnection{
		SiteName: "Blog", SiteURL: site.URL, Username: "admin", Password: "app-pass-1",
	})
	require.NoError(t, err)

	rec := env.do(t, http.MethodPost, "/api/v1/users/alice/wordpress/alice_1/verify", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body map[string]any
	decodeJSON(t, rec, &body)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Successfully connected as Alice Admin", body["message"])

	require.Len(t, env.usage.events, 1)
	assert.Equal(t, "verify", env.usage.events[0].Operation)

	rec = env.do(t, http.MethodPost, "/api/v1/users/alice/wordpress/alice_9/verify", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateForgetsCachedClient(t *testing.T) {
	env := setupEnv(t)
	conn, err := env.wpStore.Add(context.Background(), "alice", model.NewWordPressConnection{
		SiteName: "Blog", SiteURL: "https://blog.example", Username: "admin", Password: "p",
	})
	require.NoError(t, err)
	env.registry.Get(conn)
	require.Equal(t, 1, env.registry.Len())

	rec := env.do(t, http.MethodPatch, "/api/v1/users/alice/wordpress/alice_1", `{"wp_password":"rotated"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.registry.Len())
}

func TestListUsage(t *testing.T) {
	env := setupEnv(t)
	_, _ = env.usage.Record(context.Background(), model.UsageEvent{
		Owner: "alice", Kind: model.KindWordPress, ConnectionID: "alice_1", Operation: "create_post",
		Success: true, Message: "ok", OccurredAt: time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC),
	})

	rec := env.do(t, http.MethodGet, "/api/v1/users/alice/usage?limit=5", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var events []map[string]any
	decodeJSON(t, rec, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "create_post", events[0]["operation"])
	assert.Equal(t, "2026-05-01T10:00:00Z", events[0]["occurred_at"])
	assert.Equal(t, 5, env.usage.limit)

	for _, bad := range []string{"0", "abc", "501"} {
		rec = env.do(t, http.MethodGet, "/api/v1/users/alice/usage?limit="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestMiddleware_RequestIDAndCORS(t *testing.T) {
	env := setupEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://chat.example")
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get(httphandler.RequestIDHeader))
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(httphandler.RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(httphandler.RequestIDHeader))
}

func TestMiddleware_Recovery(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /boom", func(http.ResponseWriter, *http.Request) { panic("boom") })
	handler := httphandler.ApplyMiddleware(mux, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "internal server error")
}
