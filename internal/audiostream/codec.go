package audiostream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
)

// EncodeFrame renders a frame as its wire message. The terminator carries no chunk field.
func EncodeFrame(frame entities.AudioFrame) ([]byte, error) {
	seq := frame.Seq
	msg := domain.AudioChunkFrame{
		Type: domain.FrameTypeAudioChunk,
		EOF:  frame.EndOfStream,
		Seq:  &seq,
	}
	if !frame.EndOfStream {
		msg.Chunk = base64.StdEncoding.EncodeToString(frame.Payload)
	}
	return json.Marshal(msg)
}

// DecodeFrame converts a wire message back into a frame. HasSeq is false when the
// sender did not number its frames.
func DecodeFrame(msg domain.AudioChunkFrame) (frame entities.AudioFrame, hasSeq bool, err error) {
	if msg.Type != domain.FrameTypeAudioChunk {
		return frame, false, fmt.Errorf("unexpected frame type %q", msg.Type)
	}
	frame.EndOfStream = msg.EOF
	if msg.Seq != nil {
		frame.Seq = *msg.Seq
		hasSeq = true
	}
	if msg.EOF || msg.Chunk == "" {
		return frame, hasSeq, nil
	}
	frame.Payload, err = base64.StdEncoding.DecodeString(msg.Chunk)
	if err != nil {
		return frame, hasSeq, fmt.Errorf("decode chunk: %w", err)
	}
	return frame, hasSeq, nil
}

// EncodeError renders the error frame that replaces the terminator on failure
func EncodeError(message string) ([]byte, error) {
	return json.Marshal(domain.ErrorResponse{Error: message})
}

// EncodeFinal renders the trailing frame of a successful turn
func EncodeFinal(response string, history entities.History) ([]byte, error) {
	return json.Marshal(domain.NewFinalFrame(response, history))
}
