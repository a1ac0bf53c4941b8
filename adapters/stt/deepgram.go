package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
)

const (
	defaultDeepgramURL   = "wss://api.deepgram.com/v1/listen"
	defaultDeepgramModel = "nova-2"
)

// DeepgramConfig holds configuration for the Deepgram live transcription adapter
type DeepgramConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

// DeepgramSpeechToText implements SpeechToText over Deepgram's live websocket API
type DeepgramSpeechToText struct {
	apiKey  string
	model   string
	baseURL string
	dialer  *websocket.Dialer
	logger  *zap.Logger
}

var _ repositories.SpeechToText = (*DeepgramSpeechToText)(nil)

// NewDeepgramSpeechToText creates a new Deepgram transcriber
func NewDeepgramSpeechToText(config DeepgramConfig, logger *zap.Logger) (*DeepgramSpeechToText, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("deepgram API key is required")
	}
	if config.Model == "" {
		config.Model = defaultDeepgramModel
	}
	if config.BaseURL == "" {
		config.BaseURL = defaultDeepgramURL
	}
	return &DeepgramSpeechToText{
		apiKey:  config.APIKey,
		model:   config.Model,
		baseURL: config.BaseURL,
		dialer:  websocket.DefaultDialer,
		logger:  logger,
	}, nil
}

func (d *DeepgramSpeechToText) InitTranscribeStreaming(ctx context.Context, config repositories.AudioConfig) (repositories.SpeechToTextStreaming, error) {
	if config.Encoding != "" && config.Encoding != "LINEAR16" && config.Encoding != "PCM16" {
		return nil, fmt.Errorf("unsupported encoding: %s", config.Encoding)
	}

	endpoint, err := url.Parse(d.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid deepgram url: %w", err)
	}
	query := endpoint.Query()
	query.Set("model", d.model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", strconv.Itoa(config.SampleRate))
	query.Set("channels", "1")
	query.Set("interim_results", "true")
	query.Set("punctuate", "true")
	if config.Language != "" {
		query.Set("language", config.Language)
	}
	endpoint.RawQuery = query.Encode()

	header := http.Header{}
	header.Set("Authorization", "Token "+d.apiKey)

	conn, resp, err := d.dialer.DialContext(ctx, endpoint.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("deepgram dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("deepgram dial failed: %w", err)
	}

	d.logger.Debug("Deepgram live transcription started",
		zap.String("model", d.model),
		zap.Int("sampleRate", config.SampleRate),
		zap.String("language", config.Language))

	s := &deepgramStream{
		conn:   conn,
		events: make(chan entities.TranscriptEvent, 16),
		done:   make(chan struct{}),
		logger: d.logger,
	}
	go s.receive(ctx)
	go s.watch(ctx)
	return s, nil
}

// deepgramMessage is the subset of a live transcription message the stream reads
type deepgramMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

type deepgramStream struct {
	conn   *websocket.Conn
	events chan entities.TranscriptEvent
	done   chan struct{}
	logger *zap.Logger

	writeMu sync.Mutex

	mu  sync.Mutex
	err error
}

func (s *deepgramStream) Stream(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// CloseSend asks Deepgram to flush pending results and close the socket.
func (s *deepgramStream) CloseSend() error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("failed to close audio stream: %w", err)
	}
	return nil
}

func (s *deepgramStream) Events() <-chan entities.TranscriptEvent {
	return s.events
}

func (s *deepgramStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *deepgramStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
}

// watch closes the socket when ctx ends so a blocked read returns.
func (s *deepgramStream) watch(ctx context.Context) {
	select {
	case <-ctx.Done():
		s.conn.Close()
	case <-s.done:
	}
}

func (s *deepgramStream) receive(ctx context.Context) {
	defer close(s.events)
	defer close(s.done)
	defer s.conn.Close()

	for {
		_, payload, err := s.conn.ReadMessage()
		if err != nil {
			switch {
			case ctx.Err() != nil:
				s.fail(ctx.Err())
			case websocket.IsCloseError(err, websocket.CloseNormalClosure):
			default:
				s.fail(fmt.Errorf("deepgram read failed: %w", err))
			}
			return
		}

		var msg deepgramMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.logger.Warn("Ignoring malformed Deepgram message", zap.Error(err))
			continue
		}
		if msg.Type != "Results" || len(msg.Channel.Alternatives) == 0 {
			continue
		}
		text := msg.Channel.Alternatives[0].Transcript
		if text == "" {
			continue
		}

		select {
		case s.events <- entities.TranscriptEvent{IsPartial: !msg.IsFinal, Text: text}:
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		}
	}
}
