package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// ErrConnectionNotFound is returned when a verification targets a connection
// that does not exist.
var ErrConnectionNotFound = errors.New("connection not found")

// ConnectionService checks stored credentials against their remote services
// and keeps the CMS client registry in step with the store.
type ConnectionService struct {
	wordpress driven.WordPressStore
	telegram  driven.TelegramStore
	clients   *ClientRegistry
	notifier  driven.TelegramNotifier
	usage     driven.UsageStore
	logger    *slog.Logger
}

// NewConnectionService creates a ConnectionService. usage may be nil.
func NewConnectionService(
	wordpress driven.WordPressStore,
	telegram driven.TelegramStore,
	clients *ClientRegistry,
	notifier driven.TelegramNotifier,
	usage driven.UsageStore,
	logger *slog.Logger,
) *ConnectionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnectionService{
		wordpress: wordpress,
		telegram:  telegram,
		clients:   clients,
		notifier:  notifier,
		usage:     usage,
		logger:    logger,
	}
}

// VerifyWordPress checks a WordPress connection's credentials.
func (s *ConnectionService) VerifyWordPress(ctx context.Context, owner, id string) (model.VerifyResult, error) {
	conn, err := s.wordpress.Get(ctx, owner, id)
	if err != nil {
		return model.VerifyResult{}, fmt.Errorf("verify wordpress connection: %w", err)
	}
	if conn == nil {
		return model.VerifyResult{}, fmt.Errorf("wordpress connection %q: %w", id, ErrConnectionNotFound)
	}

	result := s.clients.Get(*conn).Verify(ctx)
	s.logger.Info("wordpress connection verified", "owner", owner, "connection_id", id, "success", result.Success)
	s.record(ctx, owner, model.KindWordPress, id, result)
	return result, nil
}

// VerifyTelegram checks a Telegram connection's bot token.
func (s *ConnectionService) VerifyTelegram(ctx context.Context, owner, id string) (model.VerifyResult, error) {
	conn, err := s.telegram.Get(ctx, owner, id)
	if err != nil {
		return model.VerifyResult{}, fmt.Errorf("verify telegram connection: %w", err)
	}
	if conn == nil {
		return model.VerifyResult{}, fmt.Errorf("telegram connection %q: %w", id, ErrConnectionNotFound)
	}

	result := s.notifier.Verify(ctx, *conn)
	s.logger.Info("telegram connection verified", "owner", owner, "connection_id", id, "success", result.Success)
	s.record(ctx, owner, model.KindTelegram, id, result)
	return result, nil
}

// WarmClients fills the client registry from every enabled WordPress connection.
func (s *ConnectionService) WarmClients(ctx context.Context) (int, error) {
	return s.clients.Warm(ctx, s.wordpress)
}

// ForgetClient drops a cached client after its connection was changed or deleted.
func (s *ConnectionService) ForgetClient(id string) {
	s.clients.Forget(id)
}

func (s *ConnectionService) record(ctx context.Context, owner string, kind model.Kind, id string, result model.VerifyResult) {
	if s.usage == nil {
		return
	}
	_, err := s.usage.Record(ctx, model.UsageEvent{
		Owner:        owner,
		Kind:         kind,
		ConnectionID: id,
		Operation:    "verify",
		Success:      result.Success,
		Message:      result.Message,
	})
	if err != nil {
		s.logger.Warn("failed to record usage", "owner", owner, "connection_id", id, "error", err)
	}
}
