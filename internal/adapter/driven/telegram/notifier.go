// Package telegram implements the TelegramNotifier port with the telego Bot API client.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TelegramNotifier = (*Notifier)(nil)

// Notifier builds a short-lived bot per call from the stored connection token.
type Notifier struct {
	apiURL string // Empty for the official Bot API.
	logger *slog.Logger
}

// NewNotifier creates a Notifier. apiURL overrides the Bot API server, which
// tests and self-hosted Bot API deployments use.
func NewNotifier(apiURL string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{apiURL: strings.TrimRight(apiURL, "/"), logger: logger}
}

func (n *Notifier) bot(token string) (*telego.Bot, error) {
	opts := []telego.BotOption{telego.WithDiscardLogger()}
	if n.apiURL != "" {
		opts = append(opts, telego.WithAPIServer(n.apiURL))
	}
	bot, err := telego.NewBot(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return bot, nil
}

// Verify calls getMe with the connection's token.
func (n *Notifier) Verify(ctx context.Context, conn model.TelegramConnection) model.VerifyResult {
	bot, err := n.bot(conn.BotToken)
	if err != nil {
		return model.VerifyResult{Message: fmt.Sprintf("Invalid bot token: %v", err)}
	}

	me, err := bot.GetMe(ctx)
	if err != nil {
		n.logger.Warn("telegram getMe failed", "connection_id", conn.ID, "error", err)
		return model.VerifyResult{Message: fmt.Sprintf("Connection error: %v", err)}
	}

	name := me.FirstName
	if me.Username != "" {
		name = "@" + me.Username
	}
	return model.VerifyResult{
		Success:     true,
		Message:     "Successfully connected as " + name,
		DisplayName: name,
	}
}

// Send posts text to the connection's chat.
func (n *Notifier) Send(ctx context.Context, conn model.TelegramConnection, text string) error {
	chatID, err := parseChatID(conn.ChatID)
	if err != nil {
		return err
	}

	bot, err := n.bot(conn.BotToken)
	if err != nil {
		return err
	}

	if _, err := bot.SendMessage(ctx, tu.Message(chatID, text)); err != nil {
		return fmt.Errorf("send telegram message via %s: %w", conn.ID, err)
	}
	n.logger.Info("telegram message sent", "connection_id", conn.ID)
	return nil
}

// parseChatID accepts a numeric chat id or a channel username with or without "@".
func parseChatID(raw string) (telego.ChatID, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return telego.ChatID{}, fmt.Errorf("telegram chat id is empty")
	}
	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return tu.ID(id), nil
	}
	if !strings.HasPrefix(s, "@") {
		s = "@" + s
	}
	return tu.Username(s), nil
}
