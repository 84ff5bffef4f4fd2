package conversation

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleAssistant Role = "assistant"
	RoleUser      Role = "user"
)

// Message is a single role-tagged chat message sent to an inference engine.
type Message struct {
	ID      uuid.UUID `json:"id" yaml:"id"`
	Time    time.Time `json:"time" yaml:"time"`
	Role    Role      `json:"role" yaml:"role"`
	Content string    `json:"content" yaml:"content"`
}

type MessageOption func(*Message)

func WithTime(t time.Time) MessageOption {
	return func(m *Message) {
		m.Time = t
	}
}

func WithID(id uuid.UUID) MessageOption {
	return func(m *Message) {
		m.ID = id
	}
}

func NewChatMessage(role Role, content string, options ...MessageOption) *Message {
	ret := &Message{
		ID:      uuid.New(),
		Time:    time.Now(),
		Role:    role,
		Content: content,
	}
	for _, option := range options {
		option(ret)
	}
	return ret
}

func (m *Message) String() string {
	return fmt.Sprintf("[%s]: %s", m.Role, strings.TrimRight(m.Content, "\n"))
}

type Conversation []*Message

func NewConversation(messages ...*Message) Conversation {
	return append(Conversation{}, messages...)
}

// SystemPrompt returns the content of the first system message, if any.
func (c Conversation) SystemPrompt() string {
	for _, m := range c {
		if m.Role == RoleSystem {
			return m.Content
		}
	}
	return ""
}

// LastUserMessage returns the content of the last user message, if any.
func (c Conversation) LastUserMessage() string {
	for i := len(c) - 1; i >= 0; i-- {
		if c[i].Role == RoleUser {
			return c[i].Content
		}
	}
	return ""
}

// GetSinglePrompt renders all messages as one prompt, one "[role]: text" line each.
func (c Conversation) GetSinglePrompt() string {
	if len(c) == 1 {
		return c[0].Content
	}
	var sb strings.Builder
	for _, m := range c {
		sb.WriteString(m.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
