package jsonstore

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

func TestServiceRepo_IDsPerKind(t *testing.T) {
	repo, _ := setupServiceRepo(t)
	ctx := context.Background()

	k1, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "main", APIKey: "kie-key-1"})
	require.NoError(t, err)
	k2, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "backup", APIKey: "kie-key-2"})
	require.NoError(t, err)
	w1, err := repo.Wordstat().Add(ctx, "alice", model.NewWordstatConnection{
		Name: "ws", ClientID: "cid", ClientSecret: "csecret", RedirectURI: "https://oauth.yandex.ru/verification_code",
	})
	require.NoError(t, err)
	t1, err := repo.Telegram().Add(ctx, "alice", model.NewTelegramConnection{
		BotName: "news_bot", BotToken: "123:tok", ChatID: "@news",
	})
	require.NoError(t, err)

	assert.Equal(t, "alice_kie_1", k1.ID)
	assert.Equal(t, "alice_kie_2", k2.ID)
	assert.Equal(t, "alice_wordstat_1", w1.ID)
	assert.Equal(t, "alice_telegram_1", t1.ID)

	assert.Equal(t, "kie-key-1", k1.APIKey)
	assert.Equal(t, "csecret", w1.ClientSecret)
	assert.Equal(t, "123:tok", t1.BotToken)
	assert.Equal(t, "alice", t1.Owner)
	assert.True(t, t1.Enabled)
}

func TestServiceRepo_SecretsEncryptedAtRest(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	_, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "main", APIKey: "kie-plain-key"})
	require.NoError(t, err)
	_, err = repo.Wordstat().Add(ctx, "alice", model.NewWordstatConnection{Name: "ws", ClientID: "cid", ClientSecret: "ws-plain-secret"})
	require.NoError(t, err)
	_, err = repo.Telegram().Add(ctx, "alice", model.NewTelegramConnection{BotName: "b", BotToken: "tg-plain-token", ChatID: "1"})
	require.NoError(t, err)

	raw := string(readFile(t, path))
	for _, secret := range []string{"kie-plain-key", "ws-plain-secret", "tg-plain-token"} {
		assert.NotContains(t, raw, secret)
	}
	assert.Contains(t, raw, `"client_id": "cid"`, "non-secret fields stay readable")

	kies, err := repo.Kie().List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, kies, 1)
	assert.Equal(t, "kie-plain-key", kies[0].APIKey)
}

func TestServiceRepo_DocumentShape(t *testing.T) {
	repo, path := setupServiceRepo(t)

	_, err := repo.Telegram().Add(context.Background(), "alice", model.NewTelegramConnection{BotName: "b", BotToken: "t", ChatID: "1"})
	require.NoError(t, err)

	var doc map[string]map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readFile(t, path), &doc))
	require.Contains(t, doc, "alice")
	assert.Len(t, doc["alice"], 3)
	assert.Empty(t, doc["alice"]["kie"])
	assert.Empty(t, doc["alice"]["wordstat"])
	assert.Contains(t, doc["alice"]["telegram"], "alice_telegram_1")
}

func TestServiceRepo_DeletePrunesOwnerWhenAllKindsEmpty(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	k, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "k", APIKey: "x"})
	require.NoError(t, err)
	tg, err := repo.Telegram().Add(ctx, "alice", model.NewTelegramConnection{BotName: "b", BotToken: "t", ChatID: "1"})
	require.NoError(t, err)

	ok, err := repo.Kie().Delete(ctx, "alice", k.ID)
	require.NoError(t, err)
	require.True(t, ok)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readFile(t, path), &doc))
	assert.Contains(t, doc, "alice", "owner kept while a telegram connection remains")

	ok, err = repo.Telegram().Delete(ctx, "alice", tg.ID)
	require.NoError(t, err)
	require.True(t, ok)

	doc = nil
	require.NoError(t, json.Unmarshal(readFile(t, path), &doc))
	assert.NotContains(t, doc, "alice")
}

func TestServiceRepo_DeleteAbsentWritesNothing(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	_, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "k", APIKey: "x"})
	require.NoError(t, err)

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(path, old, old))
	before := readFile(t, path)
	infoBefore, err := os.Stat(path)
	require.NoError(t, err)

	ok, err := repo.Wordstat().Delete(ctx, "alice", "alice_wordstat_1")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Telegram().Update(ctx, "bob", "bob_telegram_1", model.TelegramPatch{ChatID: ptr("2")})
	require.NoError(t, err)
	assert.False(t, ok)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, before, readFile(t, path))
	assert.True(t, info.ModTime().Equal(infoBefore.ModTime()), "mtime must not change")
}

func TestServiceRepo_PartialUpdate(t *testing.T) {
	repo, _ := setupServiceRepo(t)
	ctx := context.Background()

	before, err := repo.Telegram().Add(ctx, "alice", model.NewTelegramConnection{
		BotName: "news_bot", BotToken: "123:old", ChatID: "@news", Description: "channel",
	})
	require.NoError(t, err)

	ok, err := repo.Telegram().Update(ctx, "alice", before.ID, model.TelegramPatch{BotToken: ptr("123:new")})
	require.NoError(t, err)
	require.True(t, ok)

	after, err := repo.Telegram().Get(ctx, "alice", before.ID)
	require.NoError(t, err)
	require.NotNil(t, after)

	assert.Equal(t, "123:new", after.BotToken)
	assert.Equal(t, before.BotName, after.BotName)
	assert.Equal(t, before.ChatID, after.ChatID)
	assert.Equal(t, before.Description, after.Description)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
	assert.True(t, after.Enabled)
}

func TestServiceRepo_TouchAndListAllEnabled(t *testing.T) {
	repo, _ := setupServiceRepo(t)
	ctx := context.Background()

	a, err := repo.Wordstat().Add(ctx, "alice", model.NewWordstatConnection{Name: "a", ClientID: "1", ClientSecret: "s1"})
	require.NoError(t, err)
	b, err := repo.Wordstat().Add(ctx, "bob", model.NewWordstatConnection{Name: "b", ClientID: "2", ClientSecret: "s2"})
	require.NoError(t, err)

	ok, err := repo.Wordstat().Update(ctx, "bob", b.ID, model.WordstatPatch{Enabled: ptr(false)})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Wordstat().TouchLastUsed(ctx, "alice", a.ID)
	require.NoError(t, err)
	require.True(t, ok)

	all, err := repo.Wordstat().ListAllEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	got := all[a.ID]
	assert.Equal(t, "alice", got.Owner)
	assert.Equal(t, "s1", got.ClientSecret)
	require.NotNil(t, got.LastUsed)
}

func TestServiceRepo_PersistenceFailure(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	repo.file.write = func(string, []byte) error { return errors.New("read-only filesystem") }

	_, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "k", APIKey: "x"})
	require.ErrorIs(t, err, driven.ErrPersistence)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	list, err := repo.Kie().List(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestServiceRepo_WrongKey(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	_, err := repo.Kie().Add(ctx, "alice", model.NewKieConnection{Name: "k", APIKey: "x"})
	require.NoError(t, err)

	other := NewServiceRepo(path, newTestCipher(t, 0x99), testOptions(newStepClock())...)
	_, err = other.Kie().List(ctx, "alice")
	assert.ErrorIs(t, err, driven.ErrDecryption)
}

func TestServiceRepo_ReadsLegacyOwnerWithMissingKinds(t *testing.T) {
	repo, path := setupServiceRepo(t)
	ctx := context.Background()

	legacy := `{"dave": {"kie": {"dave_kie_1": {"connection_id": "dave_kie_1", "connection_name": "k", "api_key": "", "description": "", "created_at": "2024-01-02T03:04:05", "last_used": null}}}}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	kies, err := repo.Kie().List(ctx, "dave")
	require.NoError(t, err)
	require.Len(t, kies, 1)
	assert.True(t, kies[0].Enabled)

	tgs, err := repo.Telegram().List(ctx, "dave")
	require.NoError(t, err)
	assert.Empty(t, tgs)

	tg, err := repo.Telegram().Add(ctx, "dave", model.NewTelegramConnection{BotName: "b", BotToken: "t", ChatID: "1"})
	require.NoError(t, err)
	assert.Equal(t, "dave_telegram_1", tg.ID)

	var doc map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(readFile(t, path), &doc))
	assert.JSONEq(t, `{}`, string(doc["dave"]["wordstat"]))
}
