package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/adapters/apigateway"
	"github.com/satriahrh/robozinho/adapters/llm"
	"github.com/satriahrh/robozinho/adapters/memory"
	"github.com/satriahrh/robozinho/adapters/mongo"
	"github.com/satriahrh/robozinho/adapters/postgres"
	"github.com/satriahrh/robozinho/adapters/tts"
	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/audiostream"
	"github.com/satriahrh/robozinho/internal/config"
	"github.com/satriahrh/robozinho/internal/gateway"
	"github.com/satriahrh/robozinho/internal/metrics"
	"github.com/satriahrh/robozinho/usecase"
)

// Providers builds the server's collaborators from configuration. Clients for
// shared backends are created once and released by Close.
type Providers struct {
	cfg    config.ServerConfig
	logger *zap.Logger

	awsOnce sync.Once
	awsCfg  aws.Config
	awsErr  error

	closers []func(context.Context) error
}

// NewProviders creates providers for cfg
func NewProviders(cfg config.ServerConfig, logger *zap.Logger) *Providers {
	return &Providers{cfg: cfg, logger: logger}
}

// AWSConfig loads the shared AWS configuration on first use. Static keys from the
// configuration file take precedence over the default credential chain.
func (p *Providers) AWSConfig(ctx context.Context) (aws.Config, error) {
	p.awsOnce.Do(func() {
		opts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(p.cfg.AWSRegion),
		}
		if p.cfg.AWSAccessKeyID != "" {
			opts = append(opts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(p.cfg.AWSAccessKeyID, p.cfg.AWSSecretAccessKey, p.cfg.AWSSessionToken),
			))
		}
		p.awsCfg, p.awsErr = awsconfig.LoadDefaultConfig(ctx, opts...)
		if p.awsErr != nil {
			p.awsErr = fmt.Errorf("failed to load AWS config: %w", p.awsErr)
		}
	})
	return p.awsCfg, p.awsErr
}

// LanguageModel returns the configured language model
func (p *Providers) LanguageModel(ctx context.Context) (repositories.LanguageModel, error) {
	switch p.cfg.LLMProvider {
	case "gemini":
		return llm.NewGeminiLLM(ctx, llm.GeminiConfig{
			APIKey: p.cfg.Gemini.APIKey,
			Model:  p.cfg.Gemini.Model,
		}, p.logger)
	case "bedrock":
		awsCfg, err := p.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return llm.NewBedrockLLM(bedrockruntime.NewFromConfig(awsCfg), llm.BedrockConfig{
			ModelID:   p.cfg.Bedrock.ModelID,
			MaxTokens: p.cfg.Bedrock.MaxTokens,
		}, p.logger), nil
	case "openai":
		return llm.NewOpenAILLM(llm.OpenAIConfig{
			APIKey:  p.cfg.OpenAI.APIKey,
			Model:   p.cfg.OpenAI.Model,
			BaseURL: p.cfg.OpenAI.BaseURL,
		}, p.logger)
	case "mock":
		return llm.NewMockLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", p.cfg.LLMProvider)
	}
}

// TextToSpeech returns the configured synthesizer
func (p *Providers) TextToSpeech(ctx context.Context) (repositories.TextToSpeech, error) {
	switch p.cfg.TTSProvider {
	case "elevenlabs":
		return tts.NewElevenLabsTTS(tts.ElevenLabsConfig{
			APIKey:  p.cfg.ElevenLabs.APIKey,
			VoiceID: p.cfg.ElevenLabs.VoiceID,
			ModelID: p.cfg.ElevenLabs.ModelID,
			Timeout: p.cfg.SynthesisTimeout,
		}, p.logger)
	case "polly":
		awsCfg, err := p.AWSConfig(ctx)
		if err != nil {
			return nil, err
		}
		return tts.NewPollyTTS(polly.NewFromConfig(awsCfg), tts.PollyConfig{
			VoiceID: p.cfg.Polly.VoiceID,
			Engine:  p.cfg.Polly.Engine,
		}, p.logger), nil
	case "mock":
		return tts.NewMockTTS(), nil
	default:
		return nil, fmt.Errorf("unknown tts provider %q", p.cfg.TTSProvider)
	}
}

// RobotRepository returns the configured device configuration store
func (p *Providers) RobotRepository(ctx context.Context) (repositories.RobotRepository, error) {
	switch p.cfg.ConfigStore {
	case "postgres":
		pool, err := postgres.NewPool(ctx, p.cfg.DatabaseURL, p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func(context.Context) error {
			pool.Close()
			return nil
		})
		return postgres.NewRobotRepository(pool, p.logger), nil
	case "mongo":
		client, err := mongo.NewClient(ctx, p.cfg.MongoURI, p.cfg.MongoDatabase, p.logger)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, client.Close)
		return mongo.NewRobotRepository(ctx, client.Database, p.logger)
	case "memory":
		return memory.NewRobotRepository()
	default:
		return nil, fmt.Errorf("unknown config store %q", p.cfg.ConfigStore)
	}
}

// Services are the server components shared by every transport
type Services struct {
	Robots  repositories.RobotRepository
	Turns   *usecase.TurnService
	Gateway *gateway.Handler
}

// Build wires the configured collaborators into a turn gateway
func (p *Providers) Build(ctx context.Context, m *metrics.Metrics) (*Services, error) {
	robots, err := p.RobotRepository(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create config store: %w", err)
	}
	model, err := p.LanguageModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create language model: %w", err)
	}
	synthesizer, err := p.TextToSpeech(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech synthesizer: %w", err)
	}
	chunker, err := audiostream.NewChunker(p.cfg.MaxFramePayload)
	if err != nil {
		return nil, err
	}

	turns := usecase.NewTurnService(robots, model, synthesizer, usecase.TurnConfig{
		DefaultSystemInstructions: p.cfg.DefaultSystemInstructions,
		StrictDeviceConfig:        p.cfg.StrictDeviceConfig,
		ModelTimeout:              p.cfg.ModelTimeout,
		SynthesisTimeout:          p.cfg.SynthesisTimeout,
		Voice: repositories.VoiceConfig{
			Format:     domain.AudioFormatPCM,
			SampleRate: p.cfg.SampleRate,
		},
	}, m, p.logger)

	p.logger.Info("Turn gateway ready",
		zap.Strings("acceptedActions", p.cfg.AcceptedActions),
		zap.Int("maxFramePayload", chunker.MaxPayload()),
		zap.Int("sampleRate", p.cfg.SampleRate))

	return &Services{
		Robots:  robots,
		Turns:   turns,
		Gateway: gateway.NewHandler(turns, chunker, p.cfg.AcceptedActions, m, p.logger),
	}, nil
}

// PusherFactory returns a constructor of API Gateway pushers sharing the AWS configuration
func (p *Providers) PusherFactory(ctx context.Context) (func(endpoint string) repositories.Pusher, error) {
	awsCfg, err := p.AWSConfig(ctx)
	if err != nil {
		return nil, err
	}
	return func(endpoint string) repositories.Pusher {
		return apigateway.NewPusher(awsCfg, endpoint, p.logger)
	}, nil
}

// Close releases the backend clients in reverse creation order
func (p *Providers) Close(ctx context.Context) error {
	var errs []error
	for i := len(p.closers) - 1; i >= 0; i-- {
		errs = append(errs, p.closers[i](ctx))
	}
	p.closers = nil
	return errors.Join(errs...)
}
