package app

import (
	"context"
	"io"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/satriahrh/robozinho/adapters/llm"
	"github.com/satriahrh/robozinho/adapters/tts"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/internal/config"
	"github.com/satriahrh/robozinho/internal/metrics"
	"github.com/satriahrh/robozinho/usecase"
)

func mockServerConfig() config.ServerConfig {
	cfg := config.Default().Server
	cfg.LLMProvider = "mock"
	cfg.TTSProvider = "mock"
	cfg.ConfigStore = "memory"
	return cfg
}

func TestProviders_SelectsMocks(t *testing.T) {
	p := NewProviders(mockServerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	model, err := p.LanguageModel(ctx)
	if err != nil {
		t.Fatalf("LanguageModel failed: %v", err)
	}
	if _, ok := model.(*llm.MockLLM); !ok {
		t.Errorf("Expected mock language model, got %T", model)
	}

	synthesizer, err := p.TextToSpeech(ctx)
	if err != nil {
		t.Fatalf("TextToSpeech failed: %v", err)
	}
	if _, ok := synthesizer.(tts.MockTTS); !ok {
		t.Errorf("Expected mock synthesizer, got %T", synthesizer)
	}
}

func TestProviders_UnknownProviders(t *testing.T) {
	cfg := mockServerConfig()
	cfg.LLMProvider = "llama"
	cfg.TTSProvider = "espeak"
	cfg.ConfigStore = "sqlite"
	p := NewProviders(cfg, zaptest.NewLogger(t))
	ctx := context.Background()

	if _, err := p.LanguageModel(ctx); err == nil {
		t.Error("Expected error for unknown llm provider")
	}
	if _, err := p.TextToSpeech(ctx); err == nil {
		t.Error("Expected error for unknown tts provider")
	}
	if _, err := p.RobotRepository(ctx); err == nil {
		t.Error("Expected error for unknown config store")
	}
}

func TestProviders_BuildRunsTurn(t *testing.T) {
	p := NewProviders(mockServerConfig(), zaptest.NewLogger(t))
	ctx := context.Background()
	defer p.Close(ctx)

	services, err := p.Build(ctx, metrics.New(nil))
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := services.Turns.Converse(ctx, usecase.TurnRequest{Prompt: "oi", History: entities.History{}})
	if err != nil {
		t.Fatalf("Converse failed: %v", err)
	}
	if len(result.UpdatedHistory) != 2 {
		t.Errorf("Expected 2 turns, got %d", len(result.UpdatedHistory))
	}

	stream, err := services.Turns.Synthesize(ctx, result.Response)
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	defer stream.Close()
	audio, err := io.ReadAll(stream)
	if err != nil || len(audio) == 0 {
		t.Errorf("Expected audio, got %d bytes (%v)", len(audio), err)
	}
	if services.Turns.Voice().SampleRate != 16000 {
		t.Errorf("Expected 16000 Hz voice, got %d", services.Turns.Voice().SampleRate)
	}
}
