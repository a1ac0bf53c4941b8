package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/satriahrh/robozinho/domain"
	"github.com/satriahrh/robozinho/domain/entities"
)

var (
	// ErrEmptyPrompt is returned when there is nothing to send for a turn
	ErrEmptyPrompt = errors.New("empty prompt")
	// ErrIgnored is returned when the server acknowledged the request without answering it
	ErrIgnored = errors.New("request ignored by server")
	// ErrHistoryDiverged is returned when the server's history does not extend the one sent
	ErrHistoryDiverged = errors.New("returned history does not extend the history sent")
)

// RemoteError is a non-success status reported by the server
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Reply is the server's answer to one turn
type Reply struct {
	Response   string
	History    entities.History
	Audio      []byte
	SampleRate int
}

// Invoker sends one turn to the server
type Invoker interface {
	Invoke(ctx context.Context, req domain.InvokeRequest) (*Reply, error)
}

// Player plays PCM16 audio
type Player interface {
	Play(ctx context.Context, pcm []byte, sampleRate int) error
}

// Conversation owns the client-held history of one conversation. Send is its
// only writer; a failed turn leaves the history as it was.
type Conversation struct {
	invoker   Invoker
	action    string
	robotCode string
	logger    *zap.Logger

	mu      sync.Mutex
	history entities.History
}

// NewConversation starts an empty conversation with the robot identified by robotCode
func NewConversation(invoker Invoker, action, robotCode string, logger *zap.Logger) *Conversation {
	return &Conversation{
		invoker:   invoker,
		action:    action,
		robotCode: robotCode,
		logger:    logger,
		history:   entities.History{},
	}
}

// Send runs one turn and adopts the returned history. Turns are serialized.
func (c *Conversation) Send(ctx context.Context, prompt string) (*Reply, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, ErrEmptyPrompt
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sent := c.history.Clone()
	reply, err := c.invoker.Invoke(ctx, domain.InvokeRequest{
		Action:    c.action,
		Prompt:    prompt,
		History:   sent,
		RobotCode: c.robotCode,
	})
	if err != nil {
		return nil, err
	}

	if len(reply.History) != len(sent)+2 || !reply.History.HasPrefix(sent) {
		c.logger.Warn("Discarding returned history",
			zap.Int("sentLength", len(sent)),
			zap.Int("returnedLength", len(reply.History)))
		return nil, ErrHistoryDiverged
	}

	c.history = reply.History
	c.logger.Debug("Turn completed", zap.Int("historyLength", len(c.history)))
	return reply, nil
}

// Respond sends prompt and plays the reply's audio
func (c *Conversation) Respond(ctx context.Context, prompt string, player Player) (*Reply, error) {
	reply, err := c.Send(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if len(reply.Audio) == 0 || player == nil {
		return reply, nil
	}
	if err := player.Play(ctx, reply.Audio, reply.SampleRate); err != nil {
		return reply, fmt.Errorf("failed to play reply: %w", err)
	}
	return reply, nil
}

// History returns a copy of the conversation so far
func (c *Conversation) History() entities.History {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Clone()
}

// Reset forgets every turn
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = entities.History{}
}
