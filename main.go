package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"equity-share-calculator/config"
	"equity-share-calculator/internal/api"
	"equity-share-calculator/internal/events"
	"equity-share-calculator/internal/logging"
	"equity-share-calculator/internal/preview"

	"github.com/rs/zerolog"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(&logging.Config{
		Level:      cfg.LoggingConfig.Level,
		Output:     cfg.LoggingConfig.Output,
		JSONFormat: cfg.LoggingConfig.JSONFormat,
		Component:  "main",
	})
	logging.SetDefault(logger)
	logger.Info("Structured logging initialized")

	// Initialize event bus
	eventBus := events.NewEventBus()
	logger.Info("Event bus initialized")

	// Preview sessions log through zerolog; keep it on the same output.
	zlog := zerolog.New(os.Stdout).With().Timestamp().Str("component", "preview").Logger()

	previews := preview.NewManager(
		cfg.PreviewConfig.Debounce(),
		cfg.PreviewConfig.SessionTTL(),
		nil,
		eventBus,
		zlog,
	)
	go previews.Run()
	logger.Info("Preview manager started",
		"debounce", cfg.PreviewConfig.Debounce().String(),
		"session_ttl", cfg.PreviewConfig.SessionTTL().String())

	server := api.NewServer(api.ServerConfig{
		Port:            cfg.ServerConfig.Port,
		Host:            cfg.ServerConfig.Host,
		ProductionMode:  cfg.ServerConfig.ProductionMode,
		AllowedOrigins:  cfg.ServerConfig.AllowedOrigins,
		ReadTimeout:     time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
		WriteTimeout:    time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
		ShutdownTimeout: time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second,
		RateLimit:       cfg.ServerConfig.RateLimit,
		RateWindow:      time.Duration(cfg.ServerConfig.RateWindow) * time.Second,
		MaxParticipants: cfg.EngineConfig.MaxParticipants,
	}, eventBus, previews, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Error("API server stopped", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	shutdownTimeout := time.Duration(cfg.ServerConfig.ShutdownTimeout) * time.Second
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
	previews.Stop()

	logger.Info("Shutdown complete")
}
