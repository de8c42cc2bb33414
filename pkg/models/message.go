package models

import "time"

// Role identifies the author side of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a session's transcript. Messages are immutable
// once created; the store only ever appends them.
type Message struct {
	ID      string `json:"id"`
	Session string `json:"session,omitempty"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
	// Timestamp is serialized as RFC 3339 (ISO-8601).
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}
