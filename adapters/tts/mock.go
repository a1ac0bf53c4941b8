package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/satriahrh/robozinho/domain/repositories"
)

// MockTTS produces a short sine tone per character so clients can exercise
// playback without a provider account.
type MockTTS struct{}

var _ repositories.TextToSpeech = MockTTS{}

// NewMockTTS creates a mock text to speech
func NewMockTTS() MockTTS {
	return MockTTS{}
}

// Synthesize returns 50 samples of 16-bit PCM per input byte.
func (MockTTS) Synthesize(ctx context.Context, text string, voice repositories.VoiceConfig) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rate := voice.SampleRate
	if rate == 0 {
		rate = defaultSampleRate
	}
	samples := len(text) * 50
	buf := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := int16(8000 * math.Sin(2*math.Pi*440*float64(i)/float64(rate)))
		buf[2*i] = byte(v)
		buf[2*i+1] = byte(v >> 8)
	}
	return io.NopCloser(bytes.NewReader(buf)), nil
}
