package speaker

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/youpy/go-wav"
	"go.uber.org/zap"
)

// Player plays PCM16 audio
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// WriteWAV encodes mono little-endian PCM16 as a WAV stream
func WriteWAV(w io.Writer, pcm []byte, sampleRate int) error {
	numSamples := len(pcm) / 2
	writer := wav.NewWriter(w, uint32(numSamples), 1, uint32(sampleRate), 16)

	samples := make([]wav.Sample, numSamples)
	for i := range samples {
		samples[i].Values[0] = int(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	if err := writer.WriteSamples(samples); err != nil {
		return fmt.Errorf("failed to write wav samples: %w", err)
	}
	return nil
}

// Recorder saves every response it plays to a WAV file in dir, then hands it
// to the wrapped player when there is one.
type Recorder struct {
	next   Player
	dir    string
	count  atomic.Int64
	logger *zap.Logger
}

// NewRecorder creates dir if needed. next may be nil to only record.
func NewRecorder(next Player, dir string, logger *zap.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create wav directory: %w", err)
	}
	return &Recorder{next: next, dir: dir, logger: logger}, nil
}

// Play implements Player
func (r *Recorder) Play(ctx context.Context, pcm []byte, sampleRate int) error {
	n := r.count.Add(1)
	path := filepath.Join(r.dir, fmt.Sprintf("response-%s-%03d.wav", time.Now().Format("20060102-150405"), n))

	if err := r.save(path, pcm, sampleRate); err != nil {
		r.logger.Warn("Failed to save response audio", zap.String("path", path), zap.Error(err))
	} else {
		r.logger.Info("Saved response audio", zap.String("path", path), zap.Int("bytes", len(pcm)))
	}

	if r.next == nil {
		return nil
	}
	return r.next.Play(ctx, pcm, sampleRate)
}

func (r *Recorder) save(path string, pcm []byte, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteWAV(f, pcm, sampleRate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
