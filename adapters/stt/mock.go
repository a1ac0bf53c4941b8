package stt

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

// MockSpeechToText answers with canned phrases picked by the amount of audio
// received, emitting a partial before each final.
type MockSpeechToText struct {
	logger *zap.Logger
}

// NewMockSpeechToText creates a new mock speech-to-text service
func NewMockSpeechToText(logger *zap.Logger) *MockSpeechToText {
	return &MockSpeechToText{logger: logger}
}

func (s *MockSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	s.logger.Info("Initializing mock streaming transcription",
		zap.Int("sampleRate", config.SampleRate),
		zap.String("encoding", config.Encoding),
		zap.String("language", config.Language))

	m := &mockStream{
		ctx:    ctx,
		events: make(chan entities.TranscriptEvent, 2),
		done:   make(chan struct{}),
	}
	go m.watch()
	return m, nil
}

type mockStream struct {
	ctx      context.Context
	events   chan entities.TranscriptEvent
	done     chan struct{}
	received int

	mu     sync.Mutex
	closed bool
	err    error
}

func (m *mockStream) watch() {
	select {
	case <-m.ctx.Done():
		m.finish(m.ctx.Err())
	case <-m.done:
	}
}

// finish closes Events once, after queueing any final events.
func (m *mockStream) finish(err error, events ...entities.TranscriptEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.err = err
	for _, e := range events {
		m.events <- e
	}
	close(m.events)
	close(m.done)
}

func (m *mockStream) Stream(data []byte) error {
	m.received += len(data)
	return m.ctx.Err()
}

func (m *mockStream) CloseSend() error {
	if err := m.ctx.Err(); err != nil {
		m.finish(err)
		return err
	}

	var text string
	switch {
	case m.received == 0:
		m.finish(nil)
		return nil
	case m.received > 64000:
		text = "Olá robô, tudo bem? Me conta uma história."
	case m.received > 16000:
		text = "Qual é o seu nome?"
	default:
		text = "Olá"
	}
	m.finish(nil, entities.TranscriptEvent{IsPartial: true, Text: text}, entities.TranscriptEvent{Text: text})
	return nil
}

func (m *mockStream) Events() <-chan entities.TranscriptEvent {
	return m.events
}

func (m *mockStream) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}
