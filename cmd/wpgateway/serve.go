package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sqliteadapter "github.com/ericfisherdev/wpgateway/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/wpgateway/internal/adapter/driven/telegram"
	httphandler "github.com/ericfisherdev/wpgateway/internal/adapter/driving/http"
	mcpadapter "github.com/ericfisherdev/wpgateway/internal/adapter/driving/mcp"
	webhandler "github.com/ericfisherdev/wpgateway/internal/adapter/driving/web"
	"github.com/ericfisherdev/wpgateway/internal/application"
	"github.com/ericfisherdev/wpgateway/internal/config"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP and admin HTTP server",
		Long: `Serve the MCP endpoints (/mcp, /sse), the connection admin API
(/api/v1/users/{owner}/...), the info page (/mcp-info) and /metrics.

Configuration is read from WPGATEWAY_* environment variables.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	logger := slog.Default()

	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"wordpress_store", cfg.WordPressStore,
		"service_store", cfg.ServiceStore,
		"db_path", cfg.DBPath,
		"key_from_env", cfg.HasEncryptionKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load the master key and open the encrypted connection stores.
	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("connection stores opened")

	// 4. Open the usage database and run migrations.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	usage := sqliteadapter.NewUsageRepo(db)
	logger.Info("usage database ready", "path", cfg.DBPath)

	// 5. Wire application services.
	clients := newClientRegistry(cfg, logger)
	connSvc := newConnectionService(cfg, st, clients, usage, logger)
	postSvc := application.NewPostService(
		st.wordpress,
		clients,
		st.services.Telegram(),
		telegram.NewNotifier(cfg.TelegramAPIURL, logger),
		usage,
		logger,
	)

	// 6. Pre-build clients for every enabled connection. A corrupt store is
	// not fatal: requests report it per call.
	if n, err := connSvc.WarmClients(ctx); err != nil {
		logger.Warn("failed to warm cms clients", "error", err)
	} else {
		logger.Info("cms clients warmed", "count", n)
	}

	// 7. Create the MCP server.
	mcpServer := mcpadapter.NewServer(postSvc, version, logger)
	tools := mcpServer.Tools()
	summaries := make([]httphandler.ToolSummary, 0, len(tools))
	views := make([]webhandler.ToolView, 0, len(tools))
	for _, t := range tools {
		summaries = append(summaries, httphandler.ToolSummary{Name: t.Name, Description: t.Description})
		views = append(views, webhandler.ToolView{Name: t.Name, Description: t.Description})
	}

	// 8. Register routes.
	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(httphandler.Stores{
		WordPress: st.wordpress,
		Kie:       st.services.Kie(),
		Wordstat:  st.services.Wordstat(),
		Telegram:  st.services.Telegram(),
	}, connSvc, usage, httphandler.ServerInfo{
		Name:      mcpadapter.ServerName,
		Version:   version,
		PublicURL: cfg.PublicURL,
		Tools:     summaries,
	}, logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)
	mcpadapter.RegisterRoutes(mux, mcpServer, cfg.PublicURL)
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(mcpadapter.ServerName, version, cfg.PublicURL, views, logger))

	// Apply middleware.
	handler := httphandler.ApplyMiddleware(mux, logger)

	// SSE streams stay open for the session, so only headers are bounded.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 9. Log startup complete.
	logger.Info("wpgateway started",
		"listen_addr", cfg.ListenAddr,
		"version", version,
		"tools", len(tools),
	)

	// 10. Wait for shutdown signal or a listener failure.
	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			return err
		}
	}

	// 11. Graceful shutdown with 10s timeout to drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	clients.Purge()
	logger.Info("shutdown complete")
	return nil
}
