package capture

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/satriahrh/robozinho/domain"
	"go.uber.org/zap"
)

// DefaultPollInterval is how often the capture loop checks for a stop request
const DefaultPollInterval = 50 * time.Millisecond

// Microphone delivers mono PCM16 samples to a callback until stopped.
// The callback may reuse its buffer after returning.
type Microphone interface {
	Start(onSamples func([]int16)) error
	Stop() error
}

// Transcriber converts captured little-endian PCM16 audio into text
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// Session records one utterance and turns it into finalized text.
//
// The microphone callback only hands copies of its samples to an owner goroutine,
// which is the only writer of the buffer. RequestStop sets an atomic flag that the
// capture loop polls.
type Session struct {
	mic          Microphone
	transcriber  Transcriber
	pollInterval time.Duration
	logger       *zap.Logger

	stopRequested atomic.Bool
	cancelled     atomic.Bool

	mu      sync.Mutex
	closed  bool
	samples chan []int16

	ownerDone chan struct{}
	buffer    []int16

	startedAt time.Time
	stoppedAt time.Time
}

// Option configures a Session
type Option func(*Session)

// WithPollInterval overrides DefaultPollInterval
func WithPollInterval(d time.Duration) Option {
	return func(s *Session) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// NewSession creates a new capture session
func NewSession(mic Microphone, transcriber Transcriber, logger *zap.Logger, opts ...Option) *Session {
	s := &Session{
		mic:          mic,
		transcriber:  transcriber,
		pollInterval: DefaultPollInterval,
		logger:       logger,
		samples:      make(chan []int16, 64),
		ownerDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start opens the microphone and begins collecting samples
func (s *Session) Start() error {
	go s.collect()

	s.startedAt = time.Now()
	if err := s.mic.Start(s.onSamples); err != nil {
		s.closeSamples()
		<-s.ownerDone
		return fmt.Errorf("%w: %v", domain.ErrDeviceUnavailable, err)
	}

	s.logger.Debug("Capture started", zap.Duration("pollInterval", s.pollInterval))
	return nil
}

// RequestStop asks the session to stop capturing. Safe to call from any goroutine.
func (s *Session) RequestStop() {
	s.stopRequested.Store(true)
}

// Cancel stops capturing and discards the audio
func (s *Session) Cancel() {
	s.cancelled.Store(true)
	s.stopRequested.Store(true)
}

// AwaitFinalizedText blocks until capture has stopped and the audio has been
// transcribed. It returns domain.ErrNoAudio when nothing was captured.
func (s *Session) AwaitFinalizedText(ctx context.Context) (string, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for !s.stopRequested.Load() {
		select {
		case <-ctx.Done():
			s.halt()
			return "", ctx.Err()
		case <-ticker.C:
		}
	}

	s.halt()

	if s.cancelled.Load() {
		return "", domain.ErrCaptureCancelled
	}
	if len(s.buffer) == 0 {
		return "", domain.ErrNoAudio
	}

	s.logger.Info("Capture finished",
		zap.Int("samples", len(s.buffer)),
		zap.Duration("duration", s.stoppedAt.Sub(s.startedAt)))

	return s.transcriber.Transcribe(ctx, PCM16Bytes(s.buffer))
}

// Samples returns the captured samples once AwaitFinalizedText has returned
func (s *Session) Samples() []int16 {
	return s.buffer
}

// halt stops the microphone and waits for the owner goroutine to drain
func (s *Session) halt() {
	if err := s.mic.Stop(); err != nil {
		s.logger.Warn("Failed to stop microphone", zap.Error(err))
	}
	s.stoppedAt = time.Now()
	s.closeSamples()
	<-s.ownerDone
}

func (s *Session) onSamples(in []int16) {
	if len(in) == 0 {
		return
	}
	chunk := make([]int16, len(in))
	copy(chunk, in)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.samples <- chunk
}

func (s *Session) closeSamples() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.samples)
	}
}

func (s *Session) collect() {
	defer close(s.ownerDone)
	for chunk := range s.samples {
		s.buffer = append(s.buffer, chunk...)
	}
}

// PCM16Bytes encodes samples as little-endian PCM16
func PCM16Bytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(sample))
	}
	return out
}

// PCM16Samples decodes little-endian PCM16. A trailing odd byte is ignored.
func PCM16Samples(data []byte) []int16 {
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}
