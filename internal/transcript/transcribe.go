package transcript

import (
	"context"
	"fmt"
	"time"

	"github.com/satriahrh/robozinho/domain/repositories"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultChunkDuration is the amount of audio sent per request to the transcriber
const DefaultChunkDuration = 100 * time.Millisecond

// Config controls how captured audio is uploaded for transcription
type Config struct {
	Audio         repositories.AudioConfig
	ChunkDuration time.Duration
	// RealTime paces uploads at the audio's own rate, as a live microphone would
	RealTime bool
}

// StreamingTranscriber turns a captured PCM16 buffer into finalized text using a
// streaming transcription service.
type StreamingTranscriber struct {
	stt    repositories.SpeechToText
	config Config
	logger *zap.Logger
}

// NewStreamingTranscriber creates a new transcriber
func NewStreamingTranscriber(stt repositories.SpeechToText, config Config, logger *zap.Logger) *StreamingTranscriber {
	if config.ChunkDuration <= 0 {
		config.ChunkDuration = DefaultChunkDuration
	}
	return &StreamingTranscriber{stt: stt, config: config, logger: logger}
}

// Transcribe uploads pcm in chunks while reading events concurrently. The
// accumulated text is read only after both sides have finished.
func (t *StreamingTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	g, gctx := errgroup.WithContext(ctx)

	stream, err := t.stt.InitTranscribeStreaming(gctx, t.config.Audio)
	if err != nil {
		return "", fmt.Errorf("failed to start transcription: %w", err)
	}

	acc := &Accumulator{}
	chunkSize := t.chunkSize()
	started := time.Now()

	g.Go(func() error {
		var sent time.Duration
		for offset := 0; offset < len(pcm); offset += chunkSize {
			end := min(offset+chunkSize, len(pcm))
			if err := stream.Stream(pcm[offset:end]); err != nil {
				return fmt.Errorf("failed to send audio: %w", err)
			}
			if t.config.RealTime {
				sent += t.config.ChunkDuration
				if err := sleepUntil(gctx, started.Add(sent)); err != nil {
					return err
				}
			}
		}
		if err := stream.CloseSend(); err != nil {
			return fmt.Errorf("failed to close audio stream: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		for event := range stream.Events() {
			acc.OnEvent(event)
		}
		if err := stream.Err(); err != nil {
			return fmt.Errorf("transcription failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", err
	}

	t.logger.Debug("Transcription finished",
		zap.Int("audioBytes", len(pcm)),
		zap.Int("finalSegments", acc.Segments()),
		zap.Int("partialSegments", acc.Partials()),
		zap.Duration("elapsed", time.Since(started)))

	return acc.FinalizedText(), nil
}

func (t *StreamingTranscriber) chunkSize() int {
	rate := t.config.Audio.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	// two bytes per mono PCM16 sample
	size := int(int64(rate) * int64(t.config.ChunkDuration) / int64(time.Second) * 2)
	if size <= 0 {
		size = 2
	}
	return size
}

func sleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
