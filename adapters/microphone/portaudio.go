package microphone

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

const framesPerBuffer = 1024

// PortAudioMicrophone records mono PCM16 from the default input device
type PortAudioMicrophone struct {
	sampleRate int
	logger     *zap.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
}

// NewPortAudioMicrophone initializes PortAudio. Call Close when done.
func NewPortAudioMicrophone(sampleRate int, logger *zap.Logger) (*PortAudioMicrophone, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioMicrophone{sampleRate: sampleRate, logger: logger}, nil
}

// Start opens the default input stream. onSamples runs on the audio thread and
// must not retain the slice.
func (m *PortAudioMicrophone) Start(onSamples func([]int16)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream != nil {
		return fmt.Errorf("microphone already started")
	}

	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, func(in []int16) {
		onSamples(in)
	})
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	m.stream = stream
	m.logger.Debug("Microphone started", zap.Int("sampleRate", m.sampleRate))
	return nil
}

// Stop stops and closes the input stream
func (m *PortAudioMicrophone) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stream == nil {
		return nil
	}
	stream := m.stream
	m.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return stream.Close()
}

// Close stops any open stream and terminates PortAudio
func (m *PortAudioMicrophone) Close() error {
	if err := m.Stop(); err != nil {
		m.logger.Warn("Failed to stop microphone", zap.Error(err))
	}
	return portaudio.Terminate()
}
