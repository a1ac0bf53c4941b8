package tts

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/repositories"
)

const (
	defaultPollyVoice  = "Ricardo"
	defaultPollyEngine = "standard"
)

// PollyConfig holds configuration for the Polly adapter
type PollyConfig struct {
	VoiceID      string
	Engine       string
	LanguageCode string
}

// PollySynthesizer is the subset of the Polly client the adapter uses
type PollySynthesizer interface {
	SynthesizeSpeech(ctx context.Context, params *polly.SynthesizeSpeechInput, optFns ...func(*polly.Options)) (*polly.SynthesizeSpeechOutput, error)
}

// PollyTTS implements TextToSpeech with Amazon Polly's raw PCM output
type PollyTTS struct {
	client       PollySynthesizer
	voiceID      string
	engine       string
	languageCode string
	logger       *zap.Logger
}

var _ repositories.TextToSpeech = (*PollyTTS)(nil)

// NewPollyTTS creates a new Polly TTS instance
func NewPollyTTS(client PollySynthesizer, config PollyConfig, logger *zap.Logger) *PollyTTS {
	if config.VoiceID == "" {
		config.VoiceID = defaultPollyVoice
		logger.Info("Using default voice ID", zap.String("voiceID", config.VoiceID))
	}
	if config.Engine == "" {
		config.Engine = defaultPollyEngine
		logger.Info("Using default engine", zap.String("engine", config.Engine))
	}
	return &PollyTTS{
		client:       client,
		voiceID:      config.VoiceID,
		engine:       config.Engine,
		languageCode: config.LanguageCode,
		logger:       logger,
	}
}

// Synthesize implements repositories.TextToSpeech. Polly supports 8000 and 16000 Hz PCM.
func (p *PollyTTS) Synthesize(ctx context.Context, text string, voice repositories.VoiceConfig) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := voice.Voice
	if voiceID == "" {
		voiceID = p.voiceID
	}
	sampleRate := voice.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	if sampleRate != 8000 && sampleRate != 16000 {
		return nil, fmt.Errorf("polly pcm output supports 8000 or 16000 Hz, got %d", sampleRate)
	}

	input := &polly.SynthesizeSpeechInput{
		Text:         aws.String(text),
		OutputFormat: types.OutputFormatPcm,
		SampleRate:   aws.String(strconv.Itoa(sampleRate)),
		VoiceId:      types.VoiceId(voiceID),
		Engine:       types.Engine(p.engine),
	}
	if p.languageCode != "" {
		input.LanguageCode = types.LanguageCode(p.languageCode)
	}

	p.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", voiceID),
		zap.String("engine", p.engine),
		zap.Int("sampleRate", sampleRate))

	out, err := p.client.SynthesizeSpeech(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("polly synthesize speech: %w", err)
	}
	return &loggedStream{ReadCloser: out.AudioStream, provider: "polly", started: time.Now(), logger: p.logger}, nil
}
