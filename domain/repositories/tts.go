package repositories

import (
	"context"
	"io"
)

// VoiceConfig selects the voice and raw output format of a synthesis
type VoiceConfig struct {
	Voice      string `json:"voice" yaml:"voice"`
	Format     string `json:"format" yaml:"format"`
	SampleRate int    `json:"sample_rate" yaml:"sample_rate"`
}

// TextToSpeech abstracts speech synthesis services
type TextToSpeech interface {
	// Synthesize returns the raw audio stream for text. The caller must close it.
	// An error is returned when the service rejects the request before any audio;
	// failures while reading surface as read errors on the stream.
	Synthesize(ctx context.Context, text string, voice VoiceConfig) (io.ReadCloser, error)
}
