package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/adapters/stt"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/client"
	"github.com/satriahrh/robozinho/internal/config"
)

// SpeechToText returns the configured streaming transcriber and a function
// releasing it
func SpeechToText(ctx context.Context, cfg config.ClientConfig, logger *zap.Logger) (repositories.SpeechToText, func() error, error) {
	switch cfg.STTProvider {
	case "google":
		google, err := stt.NewGoogleSpeechToText(ctx, logger)
		if err != nil {
			return nil, nil, err
		}
		return google, google.Close, nil
	case "deepgram":
		deepgram, err := stt.NewDeepgramSpeechToText(stt.DeepgramConfig{
			APIKey: cfg.DeepgramAPIKey,
			Model:  cfg.DeepgramModel,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return deepgram, func() error { return nil }, nil
	case "mock":
		return stt.NewMockSpeechToText(logger), func() error { return nil }, nil
	default:
		return nil, nil, fmt.Errorf("unknown stt provider %q", cfg.STTProvider)
	}
}

// Invoker returns the turn invoker for the configured mode and a function releasing it
func Invoker(cfg config.ClientConfig, logger *zap.Logger) (client.Invoker, func() error, error) {
	switch cfg.Mode {
	case "sync":
		return client.NewSyncInvoker(cfg.APIURL, cfg.ResponseTimeout, logger), func() error { return nil }, nil
	case "stream":
		invoker := client.NewStreamInvoker(cfg.WebSocketURL, cfg.SampleRate, cfg.ResponseTimeout, logger)
		return invoker, invoker.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown client mode %q", cfg.Mode)
	}
}
