package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/internal/audiostream"
)

// ErrProtocol is returned when the server's frames violate the stream protocol
var ErrProtocol = errors.New("stream protocol violation")

// StreamInvoker sends turns over a websocket and reassembles the audio frames
// pushed back. The connection is reused across turns and dropped after a failure.
type StreamInvoker struct {
	url        string
	sampleRate int
	timeout    time.Duration
	dialer     *websocket.Dialer
	logger     *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

var _ Invoker = (*StreamInvoker)(nil)

// NewStreamInvoker creates an invoker for the websocket at url. Audio frames do
// not carry a rate, so sampleRate is the one the server is configured with.
func NewStreamInvoker(url string, sampleRate int, timeout time.Duration, logger *zap.Logger) *StreamInvoker {
	return &StreamInvoker{
		url:        url,
		sampleRate: sampleRate,
		timeout:    timeout,
		dialer:     websocket.DefaultDialer,
		logger:     logger,
	}
}

// Invoke implements Invoker
func (s *StreamInvoker) Invoke(ctx context.Context, req domain.InvokeRequest) (*Reply, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	conn, err := s.connect(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := s.exchange(ctx, conn, req)
	if err != nil {
		s.drop()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	return reply, nil
}

// Close closes the websocket, if open
func (s *StreamInvoker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.drop()
}

func (s *StreamInvoker) connect(ctx context.Context) (*websocket.Conn, error) {
	if s.conn != nil {
		return s.conn, nil
	}
	conn, resp, err := s.dialer.DialContext(ctx, s.url, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket dial failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	s.logger.Info("Connected to stream endpoint", zap.String("url", s.url))
	s.conn = conn
	return conn, nil
}

func (s *StreamInvoker) drop() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *StreamInvoker) exchange(ctx context.Context, conn *websocket.Conn, req domain.InvokeRequest) (*Reply, error) {
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
	}
	if err := conn.WriteJSON(req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	started := time.Now()
	reassembler := audiostream.NewReassembler()
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read frame: %w", err)
		}

		var msg domain.StreamMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			return nil, fmt.Errorf("%w: undecodable frame: %v", ErrProtocol, err)
		}

		switch {
		case msg.IsError():
			return nil, reassembler.Abort(msg.Error)

		case msg.Type == domain.FrameTypeAudioChunk:
			if _, err := reassembler.Add(msg.AudioChunk()); err != nil {
				return nil, err
			}

		case msg.Type == domain.FrameTypeFinal:
			audio, err := reassembler.Audio()
			if err != nil {
				return nil, fmt.Errorf("%w: final frame before terminator", ErrProtocol)
			}
			conn.SetReadDeadline(time.Time{})
			s.logger.Debug("Stream turn completed",
				zap.Int("frames", reassembler.Frames()),
				zap.Int("audioBytes", len(audio)),
				zap.Duration("elapsed", time.Since(started)))
			return &Reply{
				Response:   msg.Response,
				History:    msg.UpdatedHistory,
				Audio:      audio,
				SampleRate: s.sampleRate,
			}, nil

		default:
			s.logger.Warn("Ignoring unknown frame", zap.String("type", msg.Type))
		}
	}
}
