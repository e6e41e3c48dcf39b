package application_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

type connectionFixture struct {
	store    *mockWordPressStore
	telegram *mockTelegramStore
	notifier *mockNotifier
	usage    *mockUsageStore
	client   *mockCMSClient
	registry *application.ClientRegistry
	svc      *application.ConnectionService
}

func newConnectionFixture(t *testing.T) *connectionFixture {
	t.Helper()

	f := &connectionFixture{
		store:    &mockWordPressStore{conns: []model.WordPressConnection{wpConn("alice", "alice_1", true)}},
		telegram: &mockTelegramStore{conns: []model.TelegramConnection{{ConnectionMeta: model.ConnectionMeta{ID: "alice_telegram_1", Owner: "alice", Enabled: true}}}},
		notifier: &mockNotifier{},
		usage:    &mockUsageStore{},
		client:   &mockCMSClient{},
	}
	f.registry = application.NewClientRegistry(func(model.WordPressConnection) driven.CMSClient {
		return f.client
	}, 8, time.Minute)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.svc = application.NewConnectionService(f.store, f.telegram, f.registry, f.notifier, f.usage, logger)
	return f
}

func TestConnectionService_VerifyWordPress(t *testing.T) {
	f := newConnectionFixture(t)
	f.client.verifyRes = model.VerifyResult{Success: true, DisplayName: "Alice", Message: "Successfully connected as Alice"}

	result, err := f.svc.VerifyWordPress(context.Background(), "alice", "alice_1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "Alice", result.DisplayName)

	require.Len(t, f.usage.events, 1)
	assert.Equal(t, "verify", f.usage.events[0].Operation)
	assert.Equal(t, model.KindWordPress, f.usage.events[0].Kind)
}

func TestConnectionService_VerifyWordPress_NotFound(t *testing.T) {
	f := newConnectionFixture(t)

	_, err := f.svc.VerifyWordPress(context.Background(), "bob", "alice_1")

	require.ErrorIs(t, err, application.ErrConnectionNotFound)
	assert.Empty(t, f.usage.events)
}

func TestConnectionService_VerifyWordPress_StoreError(t *testing.T) {
	f := newConnectionFixture(t)
	f.store.err = driven.ErrDecryption

	_, err := f.svc.VerifyWordPress(context.Background(), "alice", "alice_1")

	require.ErrorIs(t, err, driven.ErrDecryption)
}

func TestConnectionService_VerifyTelegram(t *testing.T) {
	f := newConnectionFixture(t)
	f.notifier.verifyRes = model.VerifyResult{Message: "Invalid bot token: bad"}

	result, err := f.svc.VerifyTelegram(context.Background(), "alice", "alice_telegram_1")

	require.NoError(t, err)
	assert.False(t, result.Success)
	require.Len(t, f.usage.events, 1)
	assert.False(t, f.usage.events[0].Success)
	assert.Equal(t, model.KindTelegram, f.usage.events[0].Kind)

	_, err = f.svc.VerifyTelegram(context.Background(), "alice", "alice_telegram_9")
	assert.ErrorIs(t, err, application.ErrConnectionNotFound)
}

func TestConnectionService_WarmAndForget(t *testing.T) {
	f := newConnectionFixture(t)

	n, err := f.svc.WarmClients(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	f.svc.ForgetClient("alice_1")
	assert.Equal(t, 0, f.registry.Len())
}
