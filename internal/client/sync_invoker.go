package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
)

const maxResponseSize = 64 << 20

// SyncInvoker posts turns to the synchronous endpoint
type SyncInvoker struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Invoker = (*SyncInvoker)(nil)

// NewSyncInvoker creates an invoker for url. timeout bounds each turn.
func NewSyncInvoker(url string, timeout time.Duration, logger *zap.Logger) *SyncInvoker {
	return &SyncInvoker{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// proxyEnvelope is the shape of a Lambda proxy response passed through verbatim
type proxyEnvelope struct {
	StatusCode int             `json:"statusCode"`
	Body       json.RawMessage `json:"body"`
}

// syncReply covers success, ignored and error bodies
type syncReply struct {
	domain.InvokeResponse
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Invoke implements Invoker
func (s *SyncInvoker) Invoke(ctx context.Context, req domain.InvokeRequest) (*Reply, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	status, body := unwrapEnvelope(resp.StatusCode, body)

	var decoded syncReply
	if err := json.Unmarshal(body, &decoded); err != nil {
		if status/100 != 2 {
			return nil, &RemoteError{StatusCode: status, Message: string(bytes.TrimSpace(body))}
		}
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if status/100 != 2 {
		return nil, &RemoteError{StatusCode: status, Message: decoded.Error}
	}
	if decoded.UpdatedHistory == nil {
		if decoded.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrIgnored, decoded.Message)
		}
		return nil, fmt.Errorf("response carries no history")
	}

	audio, err := base64.StdEncoding.DecodeString(decoded.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio: %w", err)
	}

	s.logger.Debug("Sync turn completed",
		zap.Int("audioBytes", len(audio)),
		zap.Duration("elapsed", time.Since(started)))

	return &Reply{
		Response:   decoded.Response,
		History:    decoded.UpdatedHistory,
		Audio:      audio,
		SampleRate: decoded.SampleRate,
	}, nil
}

// unwrapEnvelope returns the inner status and body of a proxy envelope whose body
// is a JSON string, or the outer ones otherwise.
func unwrapEnvelope(status int, body []byte) (int, []byte) {
	var envelope proxyEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Body) == 0 {
		return status, body
	}
	var inner string
	if err := json.Unmarshal(envelope.Body, &inner); err != nil {
		return status, body
	}
	if envelope.StatusCode != 0 {
		status = envelope.StatusCode
	}
	return status, []byte(inner)
}
