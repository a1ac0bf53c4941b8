package speaker

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"
)

const framesPerBuffer = 1024

// PortAudioPlayer plays mono PCM16 on the default output device
type PortAudioPlayer struct {
	logger *zap.Logger
}

// NewPortAudioPlayer initializes PortAudio. Call Close when done.
func NewPortAudioPlayer(logger *zap.Logger) (*PortAudioPlayer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	return &PortAudioPlayer{logger: logger}, nil
}

// Play blocks until pcm has been played or ctx is done
func (p *PortAudioPlayer) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	buffer := make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(0, 1, float64(sampleRate), len(buffer), &buffer)
	if err != nil {
		return fmt.Errorf("failed to open output stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return fmt.Errorf("failed to start output stream: %w", err)
	}

	samples := len(pcm) / 2
	p.logger.Debug("Playing audio", zap.Int("samples", samples), zap.Int("sampleRate", sampleRate))

	for offset := 0; offset < samples; offset += len(buffer) {
		if err := ctx.Err(); err != nil {
			stream.Abort()
			return err
		}
		for i := range buffer {
			if offset+i < samples {
				buffer[i] = int16(binary.LittleEndian.Uint16(pcm[(offset+i)*2:]))
			} else {
				buffer[i] = 0
			}
		}
		if err := stream.Write(); err != nil {
			stream.Abort()
			return fmt.Errorf("failed to write audio: %w", err)
		}
	}

	return stream.Stop()
}

// Close terminates PortAudio
func (p *PortAudioPlayer) Close() error {
	return portaudio.Terminate()
}
