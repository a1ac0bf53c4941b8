package domain

import (
	"encoding/json"

	"github.com/satriahrh/robozinho/domain/entities"
)

// Actions accepted by the turn gateway by default
const (
	ActionInvokeBedrock = "invokeBedrock"
	ActionResposta      = "resposta"
)

// Frame types pushed over the streaming channel
const (
	FrameTypeAudioChunk = "audio_chunk"
	FrameTypeFinal      = "final"
)

// AudioFormatPCM is the only audio format the server produces
const AudioFormatPCM = "pcm"

// InvokeRequest is one conversational turn sent by the client
type InvokeRequest struct {
	Action    string           `json:"action"`
	Prompt    string           `json:"prompt"`
	History   entities.History `json:"history"`
	RobotCode string           `json:"codigo_robo,omitempty"`
}

// InvokeResponse is the synchronous turn response
type InvokeResponse struct {
	Response       string           `json:"response"`
	UpdatedHistory entities.History `json:"updated_history"`
	AudioBase64    string           `json:"audio_base64"`
	AudioFormat    string           `json:"audio_format"`
	SampleRate     int              `json:"sample_rate"`
}

// IgnoredResponse acknowledges a request whose action is not handled
type IgnoredResponse struct {
	Message      string          `json:"message"`
	ReceivedBody json.RawMessage `json:"received_body,omitempty"`
}

// ErrorResponse is the error body of the sync mode and the error frame of the streaming mode
type ErrorResponse struct {
	Error string `json:"error"`
}

// AudioChunkFrame carries one base64 audio slice, or the terminator when EOF is set
type AudioChunkFrame struct {
	Type  string `json:"type"`
	Chunk string `json:"chunk,omitempty"`
	EOF   bool   `json:"eof"`
	Seq   *int   `json:"seq,omitempty"`
}

// FinalFrame closes a successful streamed turn
type FinalFrame struct {
	Type           string           `json:"type"`
	Response       string           `json:"response"`
	UpdatedHistory entities.History `json:"updated_history"`
}

// StreamMessage is the union of every message a streaming client may receive
type StreamMessage struct {
	Type           string           `json:"type,omitempty"`
	Chunk          string           `json:"chunk,omitempty"`
	EOF            bool             `json:"eof,omitempty"`
	Seq            *int             `json:"seq,omitempty"`
	Response       string           `json:"response,omitempty"`
	UpdatedHistory entities.History `json:"updated_history,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// IsError reports whether the message is an error frame
func (m StreamMessage) IsError() bool {
	return m.Error != "" && m.Type == ""
}

// AudioChunk returns the message as an audio chunk frame
func (m StreamMessage) AudioChunk() AudioChunkFrame {
	return AudioChunkFrame{Type: m.Type, Chunk: m.Chunk, EOF: m.EOF, Seq: m.Seq}
}

// NewFinalFrame builds the trailing frame of a successful streamed turn
func NewFinalFrame(response string, history entities.History) FinalFrame {
	return FinalFrame{Type: FrameTypeFinal, Response: response, UpdatedHistory: history}
}
