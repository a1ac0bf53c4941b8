package audiostream

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
)

// DefaultMaxFramePayload keeps every frame under the push channel's message size ceiling
// once base64 and JSON overhead are added.
const DefaultMaxFramePayload = 32000

// Emitter delivers one frame to the client
type Emitter func(ctx context.Context, frame entities.AudioFrame) error

// StreamStats summarizes an emitted stream
type StreamStats struct {
	DataFrames int
	Bytes      int
}

// Chunker splits synthesized audio into bounded frames followed by one terminator
type Chunker struct {
	maxPayload int
}

// NewChunker creates a chunker emitting at most maxPayload bytes per frame
func NewChunker(maxPayload int) (*Chunker, error) {
	if maxPayload <= 0 {
		return nil, fmt.Errorf("max frame payload must be positive, got %d", maxPayload)
	}
	return &Chunker{maxPayload: maxPayload}, nil
}

// MaxPayload returns the frame payload cap
func (c *Chunker) MaxPayload() int {
	return c.maxPayload
}

// Split returns ceil(len(audio)/max) data frames followed by the terminator.
// Payloads alias audio.
func (c *Chunker) Split(audio []byte) []entities.AudioFrame {
	count := (len(audio) + c.maxPayload - 1) / c.maxPayload
	frames := make([]entities.AudioFrame, 0, count+1)
	for offset := 0; offset < len(audio); offset += c.maxPayload {
		end := min(offset+c.maxPayload, len(audio))
		frames = append(frames, entities.AudioFrame{Seq: len(frames), Payload: audio[offset:end]})
	}
	return append(frames, entities.AudioFrame{Seq: len(frames), EndOfStream: true})
}

// Stream reads r to the end, emitting a data frame each time max bytes are available
// (the last one may be shorter) and then the terminator.
//
// A read failure returns a domain.UpstreamError after the frames read so far have been
// emitted; the terminator is not sent. An emit failure returns a domain.ErrTransport
// error and stops immediately.
func (c *Chunker) Stream(ctx context.Context, r io.Reader, emit Emitter) (StreamStats, error) {
	var stats StreamStats
	buf := make([]byte, c.maxPayload)

	for {
		if err := ctx.Err(); err != nil {
			return stats, domain.NewUpstreamError(domain.ServiceSpeechSynthesis, err)
		}

		n, readErr := io.ReadFull(r, buf)
		if n > 0 {
			payload := make([]byte, n)
			copy(payload, buf[:n])
			frame := entities.AudioFrame{Seq: stats.DataFrames, Payload: payload}
			if err := emit(ctx, frame); err != nil {
				return stats, fmt.Errorf("%w: frame %d: %v", domain.ErrTransport, frame.Seq, err)
			}
			stats.DataFrames++
			stats.Bytes += n
		}

		if errors.Is(readErr, io.EOF) || errors.Is(readErr, io.ErrUnexpectedEOF) {
			break
		}
		if readErr != nil {
			return stats, domain.NewUpstreamError(domain.ServiceSpeechSynthesis, readErr)
		}
	}

	terminator := entities.AudioFrame{Seq: stats.DataFrames, EndOfStream: true}
	if err := emit(ctx, terminator); err != nil {
		return stats, fmt.Errorf("%w: terminator: %v", domain.ErrTransport, err)
	}
	return stats, nil
}
