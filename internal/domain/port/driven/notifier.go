package driven

import (
	"context"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// TelegramNotifier defines the driven port for talking to the Telegram Bot API
// with a stored connection's token.
type TelegramNotifier interface {
	// Verify checks the bot token and reports the bot's username.
	Verify(ctx context.Context, conn model.TelegramConnection) model.VerifyResult

	// Send posts text to the connection's chat.
	Send(ctx context.Context, conn model.TelegramConnection, text string) error
}
