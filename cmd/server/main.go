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

	"meetingbingo/internal/app"
	"meetingbingo/internal/config"
	"meetingbingo/internal/domain"
	"meetingbingo/internal/transcribe"
	httpTransport "meetingbingo/internal/transport/http"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Set up logger
	var logger *slog.Logger
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Logging.Level),
	}

	if cfg.Logging.Format == "json" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, logOpts))
	} else {
		logger = slog.New(slog.NewTextHandler(os.Stdout, logOpts))
	}

	slog.SetDefault(logger)

	logger.Info("starting meeting bingo server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"gameMode", cfg.Game.Mode,
	)

	// Create room registry (owns the expiry reaper)
	registry := app.NewRegistry(app.RegistryConfig{
		Mode:          domain.ParseGameMode(cfg.Game.Mode),
		RoomTTL:       cfg.Game.RoomTTL,
		SweepInterval: cfg.Game.SweepInterval,
		GapTolerance:  cfg.Game.GapTolerance,
	}, logger)
	defer registry.Close()

	// External transcription provider
	provider := transcribe.NewHTTPProvider(
		cfg.Transcription.Endpoint,
		cfg.Transcription.APIKey,
		cfg.Transcription.Model,
		cfg.Transcription.Timeout,
		logger,
	)

	// Create HTTP server
	server := httpTransport.NewServer(cfg, registry, provider, logger)

	// Start server in goroutine
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
