package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/metrics"
)

// TurnConfig controls how turns are resolved and bounded
type TurnConfig struct {
	DefaultSystemInstructions string
	// StrictDeviceConfig fails turns for unknown device codes instead of using the default persona
	StrictDeviceConfig bool
	ModelTimeout       time.Duration
	SynthesisTimeout   time.Duration
	Voice              repositories.VoiceConfig
}

// TurnRequest is one prompt with the history the client holds
type TurnRequest struct {
	Prompt    string
	History   entities.History
	RobotCode string
}

// TurnResult is the assistant reply and the history the client should keep
type TurnResult struct {
	Response       string
	UpdatedHistory entities.History
}

// TurnService runs a conversational turn. It keeps no state between calls:
// the history comes in with the request and leaves with the result.
type TurnService struct {
	configs repositories.DeviceConfigRepository
	llm     repositories.LanguageModel
	tts     repositories.TextToSpeech
	config  TurnConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewTurnService creates a new turn service
func NewTurnService(
	configs repositories.DeviceConfigRepository,
	llm repositories.LanguageModel,
	tts repositories.TextToSpeech,
	config TurnConfig,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TurnService {
	return &TurnService{
		configs: configs,
		llm:     llm,
		tts:     tts,
		config:  config,
		metrics: m,
		logger:  logger,
	}
}

// Converse resolves the device persona, appends the prompt, asks the language model
// and appends its reply. On any failure the caller's history is untouched and no
// partial history is returned.
func (s *TurnService) Converse(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrMissingPrompt
	}
	if err := req.History.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}

	systemInstructions, err := s.resolveSystemInstructions(ctx, req.RobotCode)
	if err != nil {
		return nil, err
	}

	working := req.History.AppendUser(req.Prompt)

	modelCtx, cancel := withOptionalTimeout(ctx, s.config.ModelTimeout)
	defer cancel()

	started := time.Now()
	reply, err := s.llm.Generate(modelCtx, systemInstructions, working)
	if err == nil && strings.TrimSpace(reply) == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		s.metrics.UpstreamFailure(domain.ServiceLanguageModel)
		s.logger.Error("Language model failed",
			zap.String("robotCode", req.RobotCode),
			zap.Int("historyLength", len(req.History)),
			zap.Error(err))
		return nil, domain.NewUpstreamError(domain.ServiceLanguageModel, err)
	}

	s.logger.Info("Language model replied",
		zap.String("robotCode", req.RobotCode),
		zap.Int("historyLength", len(req.History)),
		zap.Int("responseLength", len(reply)),
		zap.Duration("elapsed", time.Since(started)))

	return &TurnResult{
		Response:       reply,
		UpdatedHistory: working.AppendAssistant(reply),
	}, nil
}

// Synthesize opens the audio stream for text. The synthesis timeout covers the
// whole read; closing the stream releases it.
func (s *TurnService) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	synthCtx, cancel := withOptionalTimeout(ctx, s.config.SynthesisTimeout)

	stream, err := s.tts.Synthesize(synthCtx, text, s.config.Voice)
	if err != nil {
		cancel()
		s.metrics.UpstreamFailure(domain.ServiceSpeechSynthesis)
		s.logger.Error("Speech synthesis failed", zap.Int("textLength", len(text)), zap.Error(err))
		return nil, domain.NewUpstreamError(domain.ServiceSpeechSynthesis, err)
	}
	return &cancelOnClose{ReadCloser: stream, cancel: cancel}, nil
}

// Voice returns the voice every turn is synthesized with
func (s *TurnService) Voice() repositories.VoiceConfig {
	return s.config.Voice
}

func (s *TurnService) resolveSystemInstructions(ctx context.Context, robotCode string) (string, error) {
	if robotCode != "" {
		instructions, err := s.configs.GetSystemInstructions(ctx, robotCode)
		switch {
		case err == nil && strings.TrimSpace(instructions) != "":
			return instructions, nil
		case err != nil && !errors.Is(err, domain.ErrDeviceNotFound):
			s.metrics.UpstreamFailure(domain.ServiceDeviceConfig)
			return "", domain.NewUpstreamError(domain.ServiceDeviceConfig, err)
		}
	}

	s.metrics.DeviceConfigMiss()
	if s.config.StrictDeviceConfig {
		return "", fmt.Errorf("%w: %q", domain.ErrDeviceNotFound, robotCode)
	}
	s.logger.Warn("No configuration for device, using default persona", zap.String("robotCode", robotCode))
	return s.config.DefaultSystemInstructions, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}

func withOptionalTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
