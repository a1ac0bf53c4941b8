package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingPrompt is returned when a turn request carries no prompt
	ErrMissingPrompt = errors.New("missing prompt")
	// ErrInvalidBody is returned for request bodies that cannot be decoded
	ErrInvalidBody = errors.New("invalid body")
	// ErrDeviceNotFound is returned when no configuration exists for a device code
	ErrDeviceNotFound = errors.New("device not found")
	// ErrRobotExists is returned when registering a robot code that is already taken
	ErrRobotExists = errors.New("robot already exists")
	// ErrRobotNotFound is returned when a robot does not exist or belongs to someone else
	ErrRobotNotFound = errors.New("robot not found")
	// ErrNoAudio is returned by a capture session that was stopped before any sample arrived
	ErrNoAudio = errors.New("no audio captured")
	// ErrDeviceUnavailable is returned when the audio device cannot be opened
	ErrDeviceUnavailable = errors.New("audio device unavailable")
	// ErrCaptureCancelled is returned when a capture session is abandoned
	ErrCaptureCancelled = errors.New("capture cancelled")
	// ErrStreamAborted is returned when an audio stream ends with an error frame
	ErrStreamAborted = errors.New("audio stream aborted")
	// ErrSequenceGap is returned when audio frames arrive out of sequence
	ErrSequenceGap = errors.New("audio frame sequence gap")
	// ErrUpstream matches every UpstreamError under errors.Is
	ErrUpstream = errors.New("upstream service failed")
	// ErrTransport is returned when a frame cannot be pushed to the client
	ErrTransport = errors.New("transport error")
	// ErrConnectionGone is returned when the client connection no longer exists
	ErrConnectionGone = errors.New("connection gone")
)

// UpstreamError wraps a failure of an external service (language model, speech synthesis)
type UpstreamError struct {
	Service string
	Err     error
}

// NewUpstreamError wraps err as a failure of the named service
func NewUpstreamError(service string, err error) *UpstreamError {
	return &UpstreamError{Service: service, Err: err}
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Service, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// IsUpstream reports whether err is (or wraps) an UpstreamError
func IsUpstream(err error) bool {
	var upstream *UpstreamError
	return errors.As(err, &upstream)
}

// Upstream service names used in UpstreamError and metrics
const (
	ServiceLanguageModel   = "language_model"
	ServiceSpeechSynthesis = "speech_synthesis"
	ServiceDeviceConfig    = "device_config"
)
