package entities

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role represents the role of a turn author
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentTypeText is the only content block type the conversation carries
const ContentTypeText = "text"

// ContentBlock is one piece of a turn's content
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Turn is one message of the conversation, either from the user or the assistant
type Turn struct {
	Role    Role           `json:"role"`
	Content []ContentBlock `json:"content"`
}

// NewTextTurn creates a turn holding a single text block
func NewTextTurn(role Role, text string) Turn {
	return Turn{
		Role:    role,
		Content: []ContentBlock{{Type: ContentTypeText, Text: text}},
	}
}

// Text returns the text blocks of the turn joined by newlines
func (t Turn) Text() string {
	parts := make([]string, 0, len(t.Content))
	for _, block := range t.Content {
		if block.Type == ContentTypeText {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Equal reports whether two turns carry the same role and content
func (t Turn) Equal(other Turn) bool {
	if t.Role != other.Role || len(t.Content) != len(other.Content) {
		return false
	}
	for i := range t.Content {
		if t.Content[i] != other.Content[i] {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts both the block form and a plain string as content.
func (t *Turn) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    Role            `json:"role"`
		Content json.RawMessage `json:"content"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.Role = raw.Role
	t.Content = nil

	content := strings.TrimSpace(string(raw.Content))
	switch {
	case content == "" || content == "null":
		return nil
	case strings.HasPrefix(content, `"`):
		var text string
		if err := json.Unmarshal(raw.Content, &text); err != nil {
			return err
		}
		t.Content = []ContentBlock{{Type: ContentTypeText, Text: text}}
		return nil
	default:
		return json.Unmarshal(raw.Content, &t.Content)
	}
}

// History is the ordered, client-owned conversation. The server never stores it;
// each turn maps (history, prompt) to a new history.
type History []Turn

// AppendUser returns a new history with the prompt appended as a user turn.
// The receiver is never modified.
func (h History) AppendUser(prompt string) History {
	return h.append(NewTextTurn(RoleUser, prompt))
}

// AppendAssistant returns a new history with the text appended as an assistant turn.
// The receiver is never modified.
func (h History) AppendAssistant(text string) History {
	return h.append(NewTextTurn(RoleAssistant, text))
}

func (h History) append(turn Turn) History {
	out := make(History, len(h), len(h)+1)
	copy(out, h)
	return append(out, turn)
}

// Clone returns a copy that shares no backing array with h
func (h History) Clone() History {
	if h == nil {
		return History{}
	}
	out := make(History, len(h))
	for i, turn := range h {
		out[i] = Turn{Role: turn.Role, Content: append([]ContentBlock(nil), turn.Content...)}
	}
	return out
}

// HasPrefix reports whether prefix is an exact leading subsequence of h
func (h History) HasPrefix(prefix History) bool {
	if len(prefix) > len(h) {
		return false
	}
	for i := range prefix {
		if !h[i].Equal(prefix[i]) {
			return false
		}
	}
	return true
}

// Roles lists the role of every turn in order
func (h History) Roles() []Role {
	roles := make([]Role, len(h))
	for i, turn := range h {
		roles[i] = turn.Role
	}
	return roles
}

// ErrInvalidTurn is returned by Validate for a malformed history entry
var ErrInvalidTurn = errors.New("invalid turn")

// Validate checks every turn has a known role and text content blocks
func (h History) Validate() error {
	for i, turn := range h {
		if turn.Role != RoleUser && turn.Role != RoleAssistant {
			return fmt.Errorf("%w: history[%d] has role %q", ErrInvalidTurn, i, turn.Role)
		}
		for j, block := range turn.Content {
			if block.Type != ContentTypeText {
				return fmt.Errorf("%w: history[%d].content[%d] has type %q", ErrInvalidTurn, i, j, block.Type)
			}
		}
	}
	return nil
}
