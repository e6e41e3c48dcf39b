package model

import "time"

// Kind identifies the external service family a connection targets.
type Kind string

const (
	KindWordPress Kind = "wordpress"
	KindKie       Kind = "kie"
	KindWordstat  Kind = "wordstat"
	KindTelegram  Kind = "telegram"
)

// ServiceKinds lists the kinds persisted in the combined service document.
var ServiceKinds = []Kind{KindKie, KindWordstat, KindTelegram}

// ParseKind converts a user-supplied kind name to a Kind. The second return
// value is false for unknown names.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindWordPress, KindKie, KindWordstat, KindTelegram:
		return Kind(s), true
	}
	return "", false
}

// ConnectionMeta holds the fields shared by every connection kind.
// Owner is not part of the persisted record; stores attach it on read.
type ConnectionMeta struct {
	ID        string
	Owner     string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	LastUsed  *time.Time // nil until the credentials are first used.
}

// WordPressConnection is a tenant's credential set for one WordPress site.
// Password is plaintext at the domain boundary and encrypted at rest.
type WordPressConnection struct {
	ConnectionMeta
	SiteName        string
	SiteURL         string // No trailing slash.
	Username        string
	Password        string
	SiteLanguage    string // e.g. "en", "ru", "uk".
	SiteDescription string
}

// KieConnection holds a Kie.ai API key.
type KieConnection struct {
	ConnectionMeta
	Name        string
	APIKey      string
	Description string
}

// WordstatConnection holds Yandex Wordstat OAuth client credentials.
type WordstatConnection struct {
	ConnectionMeta
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Description  string
}

// TelegramConnection holds a Telegram bot token and the chat it posts to.
type TelegramConnection struct {
	ConnectionMeta
	BotName     string
	BotToken    string
	ChatID      string // Numeric chat id or "@channel" username.
	Description string
}

// NewWordPressConnection is the input for creating a WordPress connection.
type NewWordPressConnection struct {
	SiteName        string
	SiteURL         string
	Username        string
	Password        string
	SiteLanguage    string // Defaults to "en" when empty.
	SiteDescription string
}

// NewKieConnection is the input for creating a Kie.ai connection.
type NewKieConnection struct {
	Name        string
	APIKey      string
	Description string
}

// NewWordstatConnection is the input for creating a Wordstat connection.
type NewWordstatConnection struct {
	Name         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Description  string
}

// NewTelegramConnection is the input for creating a Telegram connection.
type NewTelegramConnection struct {
	BotName     string
	BotToken    string
	ChatID      string
	Description string
}

// WordPressPatch is a sparse update: nil fields are left unchanged.
type WordPressPatch struct {
	SiteName        *string
	SiteURL         *string
	Username        *string
	Password        *string
	SiteLanguage    *string
	SiteDescription *string
	Enabled         *bool
}

// KiePatch is a sparse update: nil fields are left unchanged.
type KiePatch struct {
	Name        *string
	APIKey      *string
	Description *string
	Enabled     *bool
}

// WordstatPatch is a sparse update: nil fields are left unchanged.
type WordstatPatch struct {
	Name         *string
	ClientID     *string
	ClientSecret *string
	RedirectURI  *string
	Description  *string
	Enabled      *bool
}

// TelegramPatch is a sparse update: nil fields are left unchanged.
type TelegramPatch struct {
	BotName     *string
	BotToken    *string
	ChatID      *string
	Description *string
	Enabled     *bool
}
