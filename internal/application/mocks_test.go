package application_test

import (
	"context"
	"errors"
	"sync"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
)

// --- Mock implementations ---

type mockWordPressStore struct {
	mu      sync.Mutex
	conns   []model.WordPressConnection
	touched []string
	err     error
}

func (m *mockWordPressStore) Add(_ context.Context, _ string, _ model.NewWordPressConnection) (model.WordPressConnection, error) {
	return model.WordPressConnection{}, errors.New("not implemented")
}

func (m *mockWordPressStore) List(_ context.Context, owner string) ([]model.WordPressConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := []model.WordPressConnection{}
	for _, c := range m.conns {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockWordPressStore) Get(_ context.Context, owner, id string) (*model.WordPressConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, c := range m.conns {
		if c.Owner == owner && c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockWordPressStore) Update(_ context.Context, _, _ string, _ model.WordPressPatch) (bool, error) {
	return false, nil
}

func (m *mockWordPressStore) Delete(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *mockWordPressStore) TouchLastUsed(_ context.Context, _, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.touched = append(m.touched, id)
	return true, nil
}

func (m *mockWordPressStore) ListAllEnabled(_ context.Context) (map[string]model.WordPressConnection, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := map[string]model.WordPressConnection{}
	for _, c := range m.conns {
		if c.Enabled {
			out[c.ID] = c
		}
	}
	return out, nil
}

type mockTelegramStore struct {
	conns   []model.TelegramConnection
	touched []string
}

func (m *mockTelegramStore) Add(_ context.Context, _ string, _ model.NewTelegramConnection) (model.TelegramConnection, error) {
	return model.TelegramConnection{}, errors.New("not implemented")
}

func (m *mockTelegramStore) List(_ context.Context, owner string) ([]model.TelegramConnection, error) {
	out := []model.TelegramConnection{}
	for _, c := range m.conns {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockTelegramStore) Get(_ context.Context, owner, id string) (*model.TelegramConnection, error) {
	for _, c := range m.conns {
		if c.Owner == owner && c.ID == id {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *mockTelegramStore) Update(_ context.Context, _, _ string, _ model.TelegramPatch) (bool, error) {
	return false, nil
}

func (m *mockTelegramStore) Delete(_ context.Context, _, _ string) (bool, error) {
	return false, nil
}

func (m *mockTelegramStore) TouchLastUsed(_ context.Context, _, id string) (bool, error) {
	m.touched = append(m.touched, id)
	return true, nil
}

func (m *mockTelegramStore) ListAllEnabled(_ context.Context) (map[string]model.TelegramConnection, error) {
	return map[string]model.TelegramConnection{}, nil
}

type mockCMSClient struct {
	siteURL     string
	created     []model.NewPost
	createRes   model.PostResult
	updateRes   model.PostResult
	listRes     model.PostListResult
	deleteRes   model.PostResult
	verifyRes   model.VerifyResult
	lastPerPage int
	lastPage    int
}

func (m *mockCMSClient) CreatePost(_ context.Context, post model.NewPost) model.PostResult {
	m.created = append(m.created, post)
	return m.createRes
}

func (m *mockCMSClient) UpdatePost(_ context.Context, _ int64, _ model.PostPatch) model.PostResult {
	return m.updateRes
}

func (m *mockCMSClient) GetPosts(_ context.Context, perPage, page int) model.PostListResult {
	m.lastPerPage, m.lastPage = perPage, page
	return m.listRes
}

func (m *mockCMSClient) DeletePost(_ context.Context, _ int64) model.PostResult {
	return m.deleteRes
}

func (m *mockCMSClient) Verify(_ context.Context) model.VerifyResult {
	return m.verifyRes
}

type sentMessage struct {
	ConnectionID string
	Text         string
}

type mockNotifier struct {
	sent      []sentMessage
	sendErr   error
	verifyRes model.VerifyResult
}

func (m *mockNotifier) Verify(_ context.Context, _ model.TelegramConnection) model.VerifyResult {
	return m.verifyRes
}

func (m *mockNotifier) Send(_ context.Context, conn model.TelegramConnection, text string) error {
	m.sent = append(m.sent, sentMessage{ConnectionID: conn.ID, Text: text})
	return m.sendErr
}

type mockUsageStore struct {
	mu     sync.Mutex
	events []model.UsageEvent
}

func (m *mockUsageStore) Record(_ context.Context, event model.UsageEvent) (model.UsageEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	event.ID = int64(len(m.events) + 1)
	m.events = append(m.events, event)
	return event, nil
}

func (m *mockUsageStore) ListByOwner(_ context.Context, owner string, _ int) ([]model.UsageEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UsageEvent
	for _, e := range m.events {
		if e.Owner == owner {
			out = append(out, e)
		}
	}
	return out, nil
}

func wpConn(owner, id string, enabled bool) model.WordPressConnection {
	return model.WordPressConnection{
		ConnectionMeta: model.ConnectionMeta{ID: id, Owner: owner, Enabled: enabled},
		SiteName:       "Blog " + id,
		SiteURL:        "https://" + id + ".example",
		Username:       "u",
		Password:       "p",
	}
}
