package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// ConnectionMetaResponse holds the fields every connection response shares.
type ConnectionMetaResponse struct {
	ConnectionID string  `json:"connection_id"`
	Owner        string  `json:"owner"`
	Enabled      bool    `json:"enabled"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	LastUsed     *string `json:"last_used"`
}

// WordPressResponse is the JSON representation of a WordPress connection.
// The password is reported only as set or unset.
type WordPressResponse struct {
	ConnectionMetaResponse
	SiteName        string `json:"site_name"`
	SiteURL         string `json:"site_url"`
	Username        string `json:"wp_username"`
	PasswordSet     bool   `json:"wp_password_set"`
	SiteLanguage    string `json:"site_language"`
	SiteDescription string `json:"site_description"`
}

// KieResponse is the JSON representation of a Kie.ai connection.
type KieResponse struct {
	ConnectionMetaResponse
	Name        string `json:"connection_name"`
	APIKeySet   bool   `json:"api_key_set"`
	Description string `json:"description"`
}

// WordstatResponse is the JSON representation of a Wordstat connection.
type WordstatResponse struct {
	ConnectionMetaResponse
	Name            string `json:"connection_name"`
	ClientID        string `json:"client_id"`
	ClientSecretSet bool   `json:"client_secret_set"`
	RedirectURI     string `json:"redirect_uri"`
	Description     string `json:"description"`
}

// TelegramResponse is the JSON representation of a Telegram connection.
type TelegramResponse struct {
	ConnectionMetaResponse
	BotName     string `json:"bot_name"`
	BotTokenSet bool   `json:"bot_token_set"`
	ChatID      string `json:"chat_id"`
	Description string `json:"description"`
}

// VerifyResponse is the outcome of a credential check.
type VerifyResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	DisplayName string `json:"display_name,omitempty"`
}

// UsageEventResponse is the JSON representation of one usage ledger entry.
type UsageEventResponse struct {
	ID           int64  `json:"id"`
	Kind         string `json:"kind"`
	ConnectionID string `json:"connection_id"`
	Operation    string `json:"operation"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	OccurredAt   string `json:"occurred_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// InfoResponse is the JSON representation of the server info endpoint.
type InfoResponse struct {
	Name      string            `json:"name"`
	Version   string            `json:"version"`
	Protocol  string            `json:"protocol"`
	Endpoints map[string]string `json:"endpoints"`
	Tools     []ToolSummary     `json:"tools"`
	URL       string            `json:"url,omitempty"`
}

func toMetaResponse(m model.ConnectionMeta) ConnectionMetaResponse {
	var lastUsed *string
	if m.LastUsed != nil {
		v := m.LastUsed.UTC().Format(time.RFC3339)
		lastUsed = &v
	}
	return ConnectionMetaResponse{
		ConnectionID: m.ID,
		Owner:        m.Owner,
		Enabled:      m.Enabled,
		CreatedAt:    m.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    m.UpdatedAt.UTC().Format(time.RFC3339),
		LastUsed:     lastUsed,
	}
}

func toWordPressResponse(c model.WordPressConnection) WordPressResponse {
	return WordPressResponse{
		ConnectionMetaResponse: toMetaResponse(c.ConnectionMeta),
		SiteName:               c.SiteName,
		SiteURL:                c.SiteURL,
		Username:               c.Username,
		PasswordSet:            c.Password != "",
		SiteLanguage:           c.SiteLanguage,
		SiteDescription:        c.SiteDescription,
	}
}

func toKieResponse(c model.KieConnection) KieResponse {
	return KieResponse{
		ConnectionMetaResponse: toMetaResponse(c.ConnectionMeta),
		Name:                   c.Name,
		APIKeySet:              c.APIKey != "",
		Description:            c.Description,
	}
}

func toWordstatResponse(c model.WordstatConnection) WordstatResponse {
	return WordstatResponse{
		ConnectionMetaResponse: toMetaResponse(c.ConnectionMeta),
		Name:                   c.Name,
		ClientID:               c.ClientID,
		ClientSecretSet:        c.ClientSecret != "",
		RedirectURI:            c.RedirectURI,
		Description:            c.Description,
	}
}

func toTelegramResponse(c model.TelegramConnection) TelegramResponse {
	return TelegramResponse{
		ConnectionMetaResponse: toMetaResponse(c.ConnectionMeta),
		BotName:                c.BotName,
		BotTokenSet:            c.BotToken != "",
		ChatID:                 c.ChatID,
		Description:            c.Description,
	}
}

func toUsageEventResponse(e model.UsageEvent) UsageEventResponse {
	return UsageEventResponse{
		ID:           e.ID,
		Kind:         string(e.Kind),
		ConnectionID: e.ConnectionID,
		Operation:    e.Operation,
		Success:      e.Success,
		Message:      e.Message,
		OccurredAt:   e.OccurredAt.UTC().Format(time.RFC3339),
	}
}
