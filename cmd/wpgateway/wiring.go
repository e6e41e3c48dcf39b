package main

import (
	"log/slog"

	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/jsonstore"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/secrets"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/telegram"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/wordpress"
	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/config"
	"github.com/ericfisherdev/wpgateway/internal/domain/model"
	"github.com/ericfisherdev/wpgateway/internal/domain/port/driven"
)

// stores holds the encrypted connection stores shared by serve and the CLI.
type stores struct {
	wordpress *jsonstore.WordPressRepo
	services  *jsonstore.ServiceRepo
}

// openStores loads the master key and opens both connection documents.
func openStores(cfg *config.Config, logger *slog.Logger) (*stores, error) {
	key, err := secrets.LoadOrCreateKey(cfg.EncryptionKey, cfg.KeyFile)
	if err != nil {
		return nil, err
	}
	cipher, err := secrets.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return &stores{
		wordpress: jsonstore.NewWordPressRepo(cfg.WordPressStore, cipher, jsonstore.WithLogger(logger)),
		services:  jsonstore.NewServiceRepo(cfg.ServiceStore, cipher, jsonstore.WithLogger(logger)),
	}, nil
}

// newClientRegistry builds the cached CMS client registry.
func newClientRegistry(cfg *config.Config, logger *slog.Logger) *application.ClientRegistry {
	return application.NewClientRegistry(func(conn model.WordPressConnection) driven.CMSClient {
		return wordpress.NewClient(conn.SiteURL, conn.Username, conn.Password,
			wordpress.WithTimeout(cfg.CMSTimeout),
			wordpress.WithLogger(logger.With("connection_id", conn.ID)),
		)
	}, cfg.ClientCacheSize, cfg.ClientCacheTTL)
}

// newConnectionService wires verification over the stores. usage may be nil.
func newConnectionService(cfg *config.Config, st *stores, clients *application.ClientRegistry, usage driven.UsageStore, logger *slog.Logger) *application.ConnectionService {
	return application.NewConnectionService(
		st.wordpress,
		st.services.Telegram(),
		clients,
		telegram.NewNotifier(cfg.TelegramAPIURL, logger),
		usage,
		logger,
	)
}
