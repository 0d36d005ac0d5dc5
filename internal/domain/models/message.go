package models

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a simulation conversation, in the order the
// caller supplied it.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// IsSystem reports whether the message is a local system prompt. System
// messages are used for prompt construction only and are never persisted
// to a remote thread.
func (m Message) IsSystem() bool {
	return m.Role == RoleSystem
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}
