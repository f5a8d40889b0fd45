package model

import "time"

// Role labels who produced a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Session is one chat conversation.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is a single turn in a session. Sources are kept only for
// assistant turns that cited retrieved passages.
type Message struct {
	ID        string      `json:"id"`
	SessionID string      `json:"session_id"`
	Role      Role        `json:"role"`
	Content   string      `json:"content"`
	Sources   []Candidate `json:"sources,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
