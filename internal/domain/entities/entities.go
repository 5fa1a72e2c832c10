// Package entities contains core business entities.
// These are pure domain objects with no knowledge of storage, transport or the LLM vendor.
package entities

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage represents a conversation turn.
// Timestamp is an RFC 3339 string and may be empty.
type ChatMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp,omitempty"`
}

// NewChatMessage stamps a message with the given time.
func NewChatMessage(role Role, content string, at time.Time) ChatMessage {
	return ChatMessage{
		Role:      role,
		Content:   content,
		Timestamp: at.UTC().Format(time.RFC3339),
	}
}

// Usage reports token accounting returned by the LLM endpoint.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Completion is a single chat-completion result.
type Completion struct {
	Content string
	Usage   *Usage
}

// AssistantRequest is one invocation of the assistant endpoint.
type AssistantRequest struct {
	Message             string        `json:"message"`
	History             []ChatMessage `json:"history"`
	UserID              string        `json:"userId"`
	ForceRefreshContext bool          `json:"forceRefreshContext"`
}

// AssistantReply is the assistant's answer for one turn.
type AssistantReply struct {
	Message string `json:"message"`
	Usage   *Usage `json:"usage,omitempty"`
}
