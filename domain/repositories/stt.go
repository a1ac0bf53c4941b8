package repositories

import (
	"context"

	"github.com/satriahrh/robozinho/domain/entities"
)

// SpeechToText abstracts speech recognition services
type SpeechToText interface {
	// InitTranscribeStreaming opens a streaming transcription session bound to ctx.
	// Cancelling ctx aborts the session and closes its event channel.
	InitTranscribeStreaming(ctx context.Context, config AudioConfig) (SpeechToTextStreaming, error)
}

// AudioConfig represents audio configuration for speech recognition
type AudioConfig struct {
	SampleRate int    `json:"sample_rate"`
	Encoding   string `json:"encoding"`
	Language   string `json:"language"`
}

// SpeechToTextStreaming is one open transcription session.
// Stream and CloseSend must be called from a single goroutine.
type SpeechToTextStreaming interface {
	// Stream sends one chunk of PCM16 audio
	Stream(data []byte) error
	// CloseSend signals that no more audio will be sent
	CloseSend() error
	// Events delivers transcript events in arrival order and is closed when the
	// service finishes or the session fails
	Events() <-chan entities.TranscriptEvent
	// Err reports the failure that closed Events, if any
	Err() error
}
