package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

func countingFactory(builds *int) application.CMSClientFactory {
	return func(conn model.WordPressConnection) driven.CMSClient {
		*builds++
		return &mockCMSClient{siteURL: conn.SiteURL}
	}
}

func TestClientRegistry_ReusesUnchangedConnection(t *testing.T) {
	builds := 0
	registry := application.NewClientRegistry(countingFactory(&builds), 8, time.Minute)
	conn := wpConn("alice", "alice_1", true)

	first := registry.Get(conn)
	second := registry.Get(conn)

	assert.Same(t, first, second)
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, registry.Len())
}

func TestClientRegistry_RebuildsOnCredentialChange(t *testing.T) {
	builds := 0
	registry := application.NewClientRegistry(countingFactory(&builds), 8, time.Minute)
	conn := wpConn("alice", "alice_1", true)
	first := registry.Get(conn)

	conn.Password = "rotated"
	second := registry.Get(conn)

	assert.NotSame(t, first, second)
	assert.Equal(t, 2, builds)
	assert.Equal(t, 1, registry.Len(), "the stale entry is replaced")
}

func TestClientRegistry_RebuildsOnReissuedID(t *testing.T) {
	builds := 0
	registry := application.NewClientRegistry(countingFactory(&builds), 8, time.Minute)

	conn := wpConn("alice", "alice_2", true)
	conn.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	registry.Get(conn)

	conn.CreatedAt = conn.CreatedAt.Add(time.Hour)
	registry.Get(conn)

	assert.Equal(t, 2, builds)
}

func TestClientRegistry_WarmForgetPurge(t *testing.T) {
	builds := 0
	registry := application.NewClientRegistry(countingFactory(&builds), 8, time.Minute)
	store := &mockWordPressStore{conns: []model.WordPressConnection{
		wpConn("alice", "alice_1", true),
		wpConn("alice", "alice_2", false),
		wpConn("bob", "bob_1", true),
	}}

	n, err := registry.Warm(context.Background(), store)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "disabled connections are not warmed")

	registry.Forget("alice_1")
	assert.Equal(t, 1, registry.Len())

	registry.Purge()
	assert.Equal(t, 0, registry.Len())
}

func TestClientRegistry_WarmStoreError(t *testing.T) {
	builds := 0
	registry := application.NewClientRegistry(countingFactory(&builds), 8, time.Minute)
	store := &mockWordPressStore{err: driven.ErrCorruptDocument}

	_, err := registry.Warm(context.Background(), store)

	require.ErrorIs(t, err, driven.ErrCorruptDocument)
	assert.Zero(t, builds)
}
