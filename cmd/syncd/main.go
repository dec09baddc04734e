package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/launchpress/contentsync/internal/auth"
	"github.com/launchpress/contentsync/internal/config"
	"github.com/launchpress/contentsync/internal/db"
	"github.com/launchpress/contentsync/internal/engine"
	"github.com/launchpress/contentsync/internal/httpapi"
	"github.com/launchpress/contentsync/internal/localrepo"
	"github.com/launchpress/contentsync/internal/remote"
	"github.com/launchpress/contentsync/internal/store"
)

func main() {
	// Configure structured logging
	zerolog.TimeFieldFormat = time.RFC3339Nano
	log.Logger = log.With().Str("service", "contentsync").Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Pretty logging for local dev
	if cfg.Env == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
	}

	ctx := context.Background()

	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("schema migration failed")
	}

	adapter := remote.NewWordPress(remote.WordPressConfig{
		BaseURL:     cfg.WPBaseURL,
		Username:    cfg.WPUsername,
		AppPassword: cfg.WPAppPassword,
	})

	mappings := store.NewPGMappingStore(pool)
	conflicts := store.NewPGConflictStore(pool)
	audit := store.NewPGAuditLog(pool)
	local := localrepo.NewPG(pool)

	orch := engine.New(engine.Config{
		EnabledTypes: cfg.EnabledTypes,
		Interval:     cfg.SyncInterval,
		PageSize:     cfg.PageSize,
	}, adapter, local, mappings, conflicts, audit)

	if cfg.AutoStart {
		orch.StartAutoSync(cfg.SyncInterval)
	}

	// HTTP server setup
	srv := &httpapi.Server{
		Engine:   orch,
		Resolver: orch.Resolver(),
		Audit:    audit,
	}

	jwtCfg := auth.JWTCfg{
		HS256Secret: cfg.JWTSecret,
		DevMode:     cfg.DevMode,
	}

	httpServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srv.Routes(jwtCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5 * time.Minute, // synchronous full syncs can be slow
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info().Msg("shutting down gracefully...")

	// Stop future ticks first; an in-flight sync runs to completion.
	orch.StopAutoSync()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	log.Info().Msg("sync daemon stopped")
}
