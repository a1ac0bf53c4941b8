package gateway

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
	"github.com/satriahrh/robozinho/domain/entities"
	"github.com/satriahrh/robozinho/domain/repositories"
	"github.com/satriahrh/robozinho/internal/audiostream"
	"github.com/satriahrh/robozinho/internal/metrics"
	"github.com/satriahrh/robozinho/usecase"
)

// Modes label metrics and logs
const (
	ModeSync   = "sync"
	ModeStream = "stream"
)

// Result is a transport-neutral response: the HTTP status and the JSON body
type Result struct {
	StatusCode int
	Body       any
}

// Turns is the part of the turn service the gateway drives
type Turns interface {
	Converse(ctx context.Context, req usecase.TurnRequest) (*usecase.TurnResult, error)
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
	Voice() repositories.VoiceConfig
}

// Handler decodes turn requests and delivers their results, either as one
// synchronous payload or as a sequence of frames pushed to a connection.
type Handler struct {
	turns   Turns
	chunker *audiostream.Chunker
	actions map[string]struct{}
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewHandler creates a new gateway handler accepting the given actions
func NewHandler(turns Turns, chunker *audiostream.Chunker, acceptedActions []string, m *metrics.Metrics, logger *zap.Logger) *Handler {
	actions := make(map[string]struct{}, len(acceptedActions))
	for _, action := range acceptedActions {
		actions[action] = struct{}{}
	}
	return &Handler{
		turns:   turns,
		chunker: chunker,
		actions: actions,
		metrics: m,
		logger:  logger,
	}
}

// HandleSync runs one turn and returns the full response with base64 audio
func (h *Handler) HandleSync(ctx context.Context, body []byte) Result {
	started := time.Now()

	req, ignored, err := h.decode(body)
	if err != nil {
		h.metrics.ObserveTurn(ModeSync, metrics.OutcomeInvalid, time.Since(started))
		return errorResult(err)
	}
	if ignored != nil {
		h.metrics.ObserveTurn(ModeSync, metrics.OutcomeIgnored, time.Since(started))
		return Result{StatusCode: http.StatusOK, Body: ignored}
	}

	result, err := h.turns.Converse(ctx, toTurnRequest(req))
	if err != nil {
		h.metrics.ObserveTurn(ModeSync, outcomeFor(err), time.Since(started))
		return errorResult(err)
	}

	audio, err := h.synthesizeAll(ctx, result.Response)
	if err != nil {
		h.metrics.ObserveTurn(ModeSync, outcomeFor(err), time.Since(started))
		return errorResult(err)
	}
	h.metrics.AudioDelivered(len(audio))
	h.metrics.ObserveTurn(ModeSync, metrics.OutcomeSuccess, time.Since(started))

	h.logger.Info("Turn completed",
		zap.String("mode", ModeSync),
		zap.String("robotCode", req.RobotCode),
		zap.Int("historyLength", len(result.UpdatedHistory)),
		zap.Int("audioBytes", len(audio)),
		zap.Duration("elapsed", time.Since(started)))

	voice := h.turns.Voice()
	return Result{
		StatusCode: http.StatusOK,
		Body: domain.InvokeResponse{
			Response:       result.Response,
			UpdatedHistory: result.UpdatedHistory,
			AudioBase64:    base64.StdEncoding.EncodeToString(audio),
			AudioFormat:    domain.AudioFormatPCM,
			SampleRate:     voice.SampleRate,
		},
	}
}

// HandleStream runs one turn and pushes its audio frames, then the final frame, to
// connectionID. Every failure after decoding is reported to the connection as an
// error frame; the returned status is what the transport should acknowledge with.
func (h *Handler) HandleStream(ctx context.Context, connectionID string, body []byte, pusher repositories.Pusher) int {
	started := time.Now()
	logger := h.logger.With(zap.String("connectionID", connectionID))

	req, ignored, err := h.decode(body)
	if err != nil {
		h.metrics.ObserveTurn(ModeStream, metrics.OutcomeInvalid, time.Since(started))
		h.pushError(ctx, logger, connectionID, pusher, err)
		return statusFor(err)
	}
	if ignored != nil {
		h.metrics.ObserveTurn(ModeStream, metrics.OutcomeIgnored, time.Since(started))
		logger.Debug("Ignoring request", zap.String("message", ignored.Message))
		return http.StatusOK
	}

	result, err := h.turns.Converse(ctx, toTurnRequest(req))
	if err != nil {
		h.metrics.ObserveTurn(ModeStream, outcomeFor(err), time.Since(started))
		h.pushError(ctx, logger, connectionID, pusher, err)
		return statusFor(err)
	}

	stream, err := h.turns.Synthesize(ctx, result.Response)
	if err != nil {
		h.metrics.ObserveTurn(ModeStream, outcomeFor(err), time.Since(started))
		h.pushError(ctx, logger, connectionID, pusher, err)
		return statusFor(err)
	}
	defer stream.Close()

	emit := func(ctx context.Context, frame entities.AudioFrame) error {
		payload, err := audiostream.EncodeFrame(frame)
		if err != nil {
			return err
		}
		if err := pusher.PostToConnection(ctx, connectionID, payload); err != nil {
			return err
		}
		h.metrics.FramePushed(len(frame.Payload))
		return nil
	}

	stats, err := h.chunker.Stream(ctx, stream, emit)
	if err != nil {
		h.metrics.ObserveTurn(ModeStream, outcomeFor(err), time.Since(started))
		if domain.IsUpstream(err) {
			h.metrics.UpstreamFailure(domain.ServiceSpeechSynthesis)
		}
		logger.Error("Audio stream failed", zap.Int("framesSent", stats.DataFrames), zap.Error(err))
		h.pushError(ctx, logger, connectionID, pusher, err)
		return statusFor(err)
	}

	final, err := audiostream.EncodeFinal(result.Response, result.UpdatedHistory)
	if err == nil {
		err = pusher.PostToConnection(ctx, connectionID, final)
	}
	if err != nil {
		h.metrics.ObserveTurn(ModeStream, metrics.OutcomeTransport, time.Since(started))
		logger.Error("Failed to push final frame", zap.Error(err))
		return http.StatusInternalServerError
	}

	h.metrics.ObserveTurn(ModeStream, metrics.OutcomeSuccess, time.Since(started))
	logger.Info("Turn completed",
		zap.String("mode", ModeStream),
		zap.String("robotCode", req.RobotCode),
		zap.Int("historyLength", len(result.UpdatedHistory)),
		zap.Int("frames", stats.DataFrames),
		zap.Int("audioBytes", stats.Bytes),
		zap.Duration("elapsed", time.Since(started)))
	return http.StatusOK
}

// decode parses the body. It returns a non-nil IgnoredResponse when the action is
// not one this gateway answers.
func (h *Handler) decode(body []byte) (*domain.InvokeRequest, *domain.IgnoredResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return nil, nil, fmt.Errorf("%w: body is not valid JSON", domain.ErrInvalidBody)
	}

	var req domain.InvokeRequest
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrInvalidBody, err)
	}

	if _, ok := h.actions[req.Action]; !ok {
		return nil, &domain.IgnoredResponse{
			Message:      "action ignored",
			ReceivedBody: json.RawMessage(trimmed),
		}, nil
	}
	if req.Prompt == "" {
		return nil, nil, domain.ErrMissingPrompt
	}
	return &req, nil, nil
}

func (h *Handler) synthesizeAll(ctx context.Context, text string) ([]byte, error) {
	stream, err := h.turns.Synthesize(ctx, text)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	audio, err := io.ReadAll(stream)
	if err != nil {
		h.metrics.UpstreamFailure(domain.ServiceSpeechSynthesis)
		return nil, domain.NewUpstreamError(domain.ServiceSpeechSynthesis, err)
	}
	return audio, nil
}

func (h *Handler) pushError(ctx context.Context, logger *zap.Logger, connectionID string, pusher repositories.Pusher, cause error) {
	payload, err := audiostream.EncodeError(messageFor(cause))
	if err != nil {
		logger.Error("Failed to encode error frame", zap.Error(err))
		return
	}
	if err := pusher.PostToConnection(ctx, connectionID, payload); err != nil {
		logger.Error("Failed to push error frame", zap.NamedError("cause", cause), zap.Error(err))
	}
}

func toTurnRequest(req *domain.InvokeRequest) usecase.TurnRequest {
	return usecase.TurnRequest{
		Prompt:    req.Prompt,
		History:   req.History,
		RobotCode: req.RobotCode,
	}
}
