package gateway

import (
	"errors"
	"net/http"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/internal/metrics"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingPrompt), errors.Is(err, domain.ErrInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrDeviceNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingPrompt), errors.Is(err, domain.ErrInvalidBody):
		return metrics.OutcomeInvalid
	case errors.Is(err, domain.ErrDeviceNotFound):
		return metrics.OutcomeNotFound
	case errors.Is(err, domain.ErrTransport):
		return metrics.OutcomeTransport
	default:
		return metrics.OutcomeUpstreamFail
	}
}

// messageFor returns the client-facing error text. Upstream details stay in the logs.
func messageFor(err error) string {
	var upstream *domain.UpstreamError
	switch {
	case errors.Is(err, domain.ErrMissingPrompt):
		return "prompt is required"
	case errors.Is(err, domain.ErrInvalidBody):
		return err.Error()
	case errors.Is(err, domain.ErrDeviceNotFound):
		return "device configuration not found"
	case errors.As(err, &upstream):
		switch upstream.Service {
		case domain.ServiceLanguageModel:
			return "failed to generate a response"
		case domain.ServiceSpeechSynthesis:
			return "failed to synthesize audio"
		default:
			return "failed to load device configuration"
		}
	case errors.Is(err, domain.ErrTransport):
		return "failed to deliver audio"
	default:
		return "internal error"
	}
}

func errorResult(err error) Result {
	return Result{
		StatusCode: statusFor(err),
		Body:       domain.ErrorResponse{Error: messageFor(err)},
	}
}
