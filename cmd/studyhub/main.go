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

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	sourceadapter "github.com/avillegas/studyhub/internal/adapter/driven/source"
	sqliteadapter "github.com/avillegas/studyhub/internal/adapter/driven/sqlite"
	httphandler "github.com/avillegas/studyhub/internal/adapter/driving/http"
	"github.com/avillegas/studyhub/internal/application"
	"github.com/avillegas/studyhub/internal/config"
	"github.com/avillegas/studyhub/internal/domain/model"
	"github.com/avillegas/studyhub/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"sync_enabled", cfg.SyncEnabled,
		"sync_interval", cfg.SyncInterval,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Wire stores.
	userStore := sqliteadapter.NewUserRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	taskStore := sqliteadapter.NewTaskRepo(db)

	// 6. Wire source adapters over a shared caching HTTP client.
	httpClient := sourceadapter.NewHTTPClient()
	canvas := sourceadapter.NewCanvasAdapter(httpClient, cfg.CanvasBaseURL)
	adapters := map[model.SourceType]driven.SourceAdapter{
		model.SourceCanvas:         canvas,
		model.SourceOutlook:        sourceadapter.NewOutlookAdapter(httpClient),
		model.SourceGoogleCalendar: sourceadapter.NewGoogleCalendarAdapter(""),
		model.SourceHandshake:      sourceadapter.NewHandshakeAdapter(httpClient),
	}

	// 7. Wire application services.
	providers := application.BuildProviders(application.OAuthCredentials{
		CanvasBaseURL:      cfg.CanvasBaseURL,
		CanvasClientID:     cfg.CanvasClientID,
		CanvasClientSecret: cfg.CanvasClientSecret,
		MicrosoftClientID:  cfg.MicrosoftClientID,
		MicrosoftSecret:    cfg.MicrosoftClientSecret,
		MicrosoftTenantID:  cfg.MicrosoftTenantID,
		GoogleClientID:     cfg.GoogleClientID,
		GoogleClientSecret: cfg.GoogleClientSecret,
		HandshakeClientID:  cfg.HandshakeClientID,
		HandshakeSecret:    cfg.HandshakeClientSecret,
	})
	oauthSvc := application.NewOAuthService(credentialStore, providers)
	syncSvc := application.NewSyncService(userStore, credentialStore, taskStore, oauthSvc, adapters, cfg.SyncInterval, cfg.FetchTimeout)
	summarySvc := application.NewSummaryService(taskStore)

	if cfg.SyncEnabled {
		go syncSvc.Start(ctx)
	} else {
		slog.Info("background sync disabled")
	}

	// 8. Create HTTP handler and server.
	apiHandler := httphandler.NewHandler(userStore, credentialStore, taskStore, oauthSvc, syncSvc, summarySvc, canvas, slog.Default())
	handler := httphandler.NewServeMux(apiHandler, slog.Default(), cfg.FrontendOrigins)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("studyhub started",
		"listen_addr", cfg.ListenAddr,
		"sync_interval", cfg.SyncInterval,
	)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 10. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
