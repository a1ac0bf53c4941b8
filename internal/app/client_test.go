package app

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/adapters/stt"
	"github.com/satriahrh/robozinho/internal/client"
	"github.com/satriahrh/robozinho/internal/config"
)

func TestSpeechToText(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	cfg := config.Default().Client
	cfg.STTProvider = "mock"
	provider, release, err := SpeechToText(ctx, cfg, logger)
	if err != nil {
		t.Fatalf("SpeechToText failed: %v", err)
	}
	defer release()
	if _, ok := provider.(*stt.MockSpeechToText); !ok {
		t.Errorf("Expected mock transcriber, got %T", provider)
	}

	cfg.STTProvider = "deepgram"
	if _, _, err := SpeechToText(ctx, cfg, logger); err == nil {
		t.Error("Expected error for deepgram without API key")
	}

	cfg.STTProvider = "whisper"
	if _, _, err := SpeechToText(ctx, cfg, logger); err == nil {
		t.Error("Expected error for unknown provider")
	}
}

func TestInvoker(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.Default().Client
	cfg.APIURL = "http://localhost:8080/api/v1/invoke"
	cfg.WebSocketURL = "ws://localhost:8080/ws"

	tests := []struct {
		mode    string
		check   func(client.Invoker) bool
		wantErr bool
	}{
		{"sync", func(i client.Invoker) bool { _, ok := i.(*client.SyncInvoker); return ok }, false},
		{"stream", func(i client.Invoker) bool { _, ok := i.(*client.StreamInvoker); return ok }, false},
		{"carrier-pigeon", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg.Mode = tt.mode
			invoker, release, err := Invoker(cfg, logger)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Invoker failed: %v", err)
			}
			defer release()
			if !tt.check(invoker) {
				t.Errorf("Unexpected invoker %T", invoker)
			}
		})
	}
}
