package message

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// HistoryWindow is the number of most recent turns any stage may read.
const HistoryWindow = 4

// Message represents a single conversation turn. Callers own the history slice;
// the pipeline only reads it.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at,omitzero"`
}

// NewMessage creates a new message with the given role and content
func NewMessage(role Role, content string) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// Validate checks that a caller supplied turn has a conversational role.
func (m Message) Validate() error {
	switch m.Role {
	case RoleUser, RoleAssistant:
		return nil
	default:
		return fmt.Errorf("unsupported role %q", m.Role)
	}
}

// Window returns a copy of the last n turns of history.
func Window(history []Message, n int) []Message {
	if n <= 0 || len(history) == 0 {
		return nil
	}
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(history)-start)
	copy(out, history[start:])
	return out
}

// Format renders turns as "role: content" lines for prompt embedding.
func Format(history []Message) string {
	var b strings.Builder
	for _, turn := range history {
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", turn.Role, content)
	}
	return strings.TrimRight(b.String(), "\n")
}
