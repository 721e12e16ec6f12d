package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equity_valuation/pkg/api/server"
	"equity_valuation/pkg/core/config"
	"equity_valuation/pkg/core/logger"
	"equity_valuation/pkg/core/store"
)

func main() {
	configPath := flag.String("config", config.DefaultPath, "Path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Logger settings live in the config, so fall back to defaults to report this
		log := logger.New(logger.Config{Level: "info", Pretty: true})
		log.Fatal().Err(err).Str("path", *configPath).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)
	log.Info().Msg("Starting valuation API")

	// Run store: Postgres when configured and reachable, JSON files otherwise
	ctx := context.Background()
	if cfg.Database.URL != "" {
		dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := store.InitDB(dbCtx, cfg.Database.URL); err != nil {
			log.Warn().Err(err).Msg("Database unavailable, falling back to file run store")
		}
		cancel()
	}
	defer store.Close()

	runs, err := store.NewRunStore(store.GetPool(), cfg.Store.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open run store")
	}
	if err := runs.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Str("backend", runs.Backend()).Msg("Run store ready")

	// Initialize HTTP server
	srv := server.New(server.Config{
		Port:    cfg.Server.Port,
		Log:     log,
		Runs:    runs,
		Config:  cfg,
		DevMode: cfg.Server.DevMode,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Server.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
