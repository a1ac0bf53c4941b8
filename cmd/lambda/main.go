package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/internal/app"
	"github.com/satriahrh/robozinho/internal/config"
	"github.com/satriahrh/robozinho/internal/metrics"
	"github.com/satriahrh/robozinho/internal/serverless"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := app.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.ValidateServer(); err != nil {
		logger.Fatal("Invalid configuration", zap.Error(err))
	}

	m := metrics.New(prometheus.NewRegistry())

	// Clients are built once per container and reused by warm invocations
	ctx := context.Background()
	providers := app.NewProviders(cfg.Server, logger)
	services, err := providers.Build(ctx, m)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}

	newPusher, err := providers.PusherFactory(ctx)
	if err != nil {
		logger.Fatal("Failed to initialize pusher", zap.Error(err))
	}

	router := serverless.NewRouter(services.Gateway, newPusher, cfg.Server.APIGatewayEndpoint, logger)
	logger.Info("Lambda handler ready",
		zap.String("llmProvider", cfg.Server.LLMProvider),
		zap.String("ttsProvider", cfg.Server.TTSProvider))

	lambda.Start(router.Handle)
}
