package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/internal/api"
	"github.com/satriahrh/robozinho/internal/app"
	"github.com/satriahrh/robozinho/internal/auth"
	"github.com/satriahrh/robozinho/internal/config"
	"github.com/satriahrh/robozinho/internal/metrics"
	"github.com/satriahrh/robozinho/internal/websocket"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Initialize adapters and usecase services
	ctx := context.Background()
	providers := app.NewProviders(cfg.Server, logger)
	services, err := providers.Build(ctx, m)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	var tokens *auth.TokenManager
	if cfg.Server.JWTSecret != "" {
		tokens, err = auth.NewTokenManager(cfg.Server.JWTSecret, 0)
		if err != nil {
			logger.Fatal("Failed to create token manager", zap.Error(err))
		}
	} else {
		logger.Warn("JWT_SECRET not set, robots API disabled")
	}

	// WebSocket hub pushes streamed turns to its own connections
	hub := websocket.NewHub(services.Gateway, m, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	api.InitRoutes(e, api.Dependencies{
		Gateway:   services.Gateway,
		WebSocket: hub.HandleWebSocket,
		Robots:    services.Robots,
		Tokens:    tokens,
		Gatherer:  registry,
		Logger:    logger,
	})

	// Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	go func() {
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("shutting down the server", zap.Error(err))
		}
	}()

	logger.Info("Server started",
		zap.String("addr", addr),
		zap.String("llmProvider", cfg.Server.LLMProvider),
		zap.String("ttsProvider", cfg.Server.TTSProvider),
		zap.String("configStore", cfg.Server.ConfigStore))

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Error("WebSocket hub forced to shutdown", zap.Error(err))
	}
	if err := providers.Close(shutdownCtx); err != nil {
		logger.Error("Failed to close backends", zap.Error(err))
	}

	logger.Info("Server exited")
}
