package domain

import "time"

// Role tags a conversation turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMessage is one message in the advice conversation.
type ChatMessage struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Turn is the history element sent to the advice service.
type Turn struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Turn drops the timestamp.
func (m ChatMessage) Turn() Turn {
	return Turn{Role: m.Role, Text: m.Text}
}
