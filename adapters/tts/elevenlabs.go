package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/repositories"
)

const (
	defaultAPIBaseURL = "https://api.elevenlabs.io/v1"
	defaultVoiceID    = "21m00Tcm4TlvDq8ikWAM"   // Rachel voice
	defaultModelID    = "eleven_multilingual_v2" // Default model ID
	defaultStability  = 0.5                      // Default voice stability
	defaultClarity    = 0.75                     // Default voice clarity/similarity_boost
	defaultSampleRate = 16000
	defaultTimeout    = 60 * time.Second
)

// ElevenLabsConfig holds configuration for the ElevenLabsTTS adapter
// Required fields:
// - APIKey: Your Eleven Labs API key
// Optional fields with defaults:
// - APIBaseURL: The base URL for the Eleven Labs API (default: "https://api.elevenlabs.io/v1")
// - VoiceID: The voice ID to use when a request names none (default: Rachel)
// - ModelID: The model ID to use (default: "eleven_multilingual_v2")
// - Stability: Voice stability value between 0 and 1 (default: 0.5)
// - Clarity: Voice clarity/similarity boost value between 0 and 1 (default: 0.75)
// - Timeout: Upper bound for the whole request including the body (default: 60s)
type ElevenLabsConfig struct {
	APIKey     string
	APIBaseURL string
	VoiceID    string
	ModelID    string
	Stability  float64
	Clarity    float64
	Timeout    time.Duration
}

// ElevenLabsTTS implements TextToSpeech interface using Eleven Labs API
type ElevenLabsTTS struct {
	apiKey     string
	apiBaseURL string
	voiceID    string
	modelID    string
	stability  float64
	clarity    float64
	httpClient *http.Client
	logger     *zap.Logger
}

// Ensure ElevenLabsTTS implements the TextToSpeech interface
var _ repositories.TextToSpeech = (*ElevenLabsTTS)(nil)

// ElevenLabsVoiceSettings represents voice settings for Eleven Labs API
type ElevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style,omitempty"`
	UseSpeakerBoost bool    `json:"use_speaker_boost,omitempty"`
}

// ElevenLabsRequest represents the request payload for Eleven Labs TTS API
type ElevenLabsRequest struct {
	Text                   string                  `json:"text"`
	ModelID                string                  `json:"model_id"`
	LanguageCode           string                  `json:"language_code,omitempty"`
	VoiceSettings          ElevenLabsVoiceSettings `json:"voice_settings"`
	ApplyTextNormalization string                  `json:"apply_text_normalization,omitempty"`
}

// ValidateElevenLabsConfig validates the ElevenLabsConfig
func ValidateElevenLabsConfig(config ElevenLabsConfig) error {
	if config.APIKey == "" {
		return fmt.Errorf("eleven labs API key is required")
	}

	// Validate stability is in the valid range
	if config.Stability < 0 || config.Stability > 1 {
		return fmt.Errorf("stability must be between 0 and 1, got %f", config.Stability)
	}

	// Validate clarity is in the valid range
	if config.Clarity < 0 || config.Clarity > 1 {
		return fmt.Errorf("clarity must be between 0 and 1, got %f", config.Clarity)
	}

	if config.Timeout < 0 {
		return fmt.Errorf("timeout must be positive, got %v", config.Timeout)
	}

	return nil
}

// withDefaults fills every optional field left at its zero value
func (c ElevenLabsConfig) withDefaults(logger *zap.Logger) ElevenLabsConfig {
	c.APIBaseURL = strings.TrimRight(c.APIBaseURL, "/")
	defaults := []struct {
		name  string
		unset bool
		apply func()
	}{
		{"apiBaseURL", c.APIBaseURL == "", func() { c.APIBaseURL = defaultAPIBaseURL }},
		{"voiceID", c.VoiceID == "", func() { c.VoiceID = defaultVoiceID }},
		{"modelID", c.ModelID == "", func() { c.ModelID = defaultModelID }},
		{"stability", c.Stability == 0, func() { c.Stability = defaultStability }},
		{"clarity", c.Clarity == 0, func() { c.Clarity = defaultClarity }},
		{"timeout", c.Timeout == 0, func() { c.Timeout = defaultTimeout }},
	}

	var applied []string
	for _, d := range defaults {
		if d.unset {
			d.apply()
			applied = append(applied, d.name)
		}
	}
	if len(applied) > 0 {
		logger.Info("Using ElevenLabs defaults", zap.Strings("fields", applied))
	}
	return c
}

// NewElevenLabsTTS creates a new Eleven Labs TTS instance
func NewElevenLabsTTS(config ElevenLabsConfig, logger *zap.Logger) (*ElevenLabsTTS, error) {
	if err := ValidateElevenLabsConfig(config); err != nil {
		return nil, err
	}
	config = config.withDefaults(logger)

	return &ElevenLabsTTS{
		apiKey:     config.APIKey,
		apiBaseURL: config.APIBaseURL,
		voiceID:    config.VoiceID,
		modelID:    config.ModelID,
		stability:  config.Stability,
		clarity:    config.Clarity,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}, nil
}

// Synthesize streams raw PCM from the Eleven Labs streaming endpoint. The HTTP status
// is checked before returning, so a rejected request never yields a stream.
func (e *ElevenLabsTTS) Synthesize(ctx context.Context, text string, voice repositories.VoiceConfig) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	voiceID := voice.Voice
	if voiceID == "" {
		voiceID = e.voiceID
	}
	sampleRate := voice.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
	}
	outputFormat := fmt.Sprintf("pcm_%d", sampleRate)

	e.logger.Info("Converting text to speech",
		zap.Int("textLength", len(text)),
		zap.String("voiceID", voiceID),
		zap.String("modelID", e.modelID),
		zap.String("outputFormat", outputFormat))

	// Create request payload
	request := ElevenLabsRequest{
		Text:                   text,
		ModelID:                e.modelID,
		ApplyTextNormalization: "auto",
		VoiceSettings: ElevenLabsVoiceSettings{
			Stability:       e.stability,
			SimilarityBoost: e.clarity,
			UseSpeakerBoost: true,
		},
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/text-to-speech/%s/stream?output_format=%s&enable_logging=false",
		e.apiBaseURL, voiceID, outputFormat)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "audio/pcm")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		e.logger.Error("Eleven Labs API returned error",
			zap.Int("statusCode", resp.StatusCode),
			zap.String("response", string(errorBody)))
		return nil, fmt.Errorf("eleven labs API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(errorBody)))
	}

	return &loggedStream{ReadCloser: resp.Body, provider: "elevenlabs", started: time.Now(), logger: e.logger}, nil
}

// loggedStream logs the size of a synthesized stream once it is closed
type loggedStream struct {
	io.ReadCloser
	provider string
	total    int
	started  time.Time
	logger   *zap.Logger
}

func (s *loggedStream) Read(p []byte) (int, error) {
	n, err := s.ReadCloser.Read(p)
	s.total += n
	return n, err
}

func (s *loggedStream) Close() error {
	s.logger.Debug("Finished streaming audio data",
		zap.String("provider", s.provider),
		zap.Int("totalBytes", s.total),
		zap.Duration("elapsed", time.Since(s.started)))
	return s.ReadCloser.Close()
}
