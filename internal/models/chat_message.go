package models

import (
	"time"

	"gorm.io/datatypes"
)

type Origin string

const (
	OriginUser Origin = "user"
	OriginBot  Origin = "bot"
)

const (
	MessageTypeText  = "text"
	MessageTypeVoice = "voice"
)

// ChatMessage is one entry of a conversation log. Rows are append-only.
// UserID is empty for messages exchanged without an authenticated user;
// those are never persisted.
type ChatMessage struct {
	ID          string         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID      string         `gorm:"column:user_id;type:uuid;index:idx_chat_user_created,priority:1" json:"-"`
	Message     string         `gorm:"column:message;type:text" json:"text"`
	IsBot       bool           `gorm:"column:is_bot" json:"-"`
	MessageType string         `gorm:"column:message_type;type:text" json:"message_type"`
	Metadata    datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"column:created_at;type:timestamptz;index:idx_chat_user_created,priority:2" json:"created_at"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

func (m ChatMessage) Origin() Origin {
	if m.IsBot {
		return OriginBot
	}
	return OriginUser
}

// ChatMessageView is the wire shape of a message.
type ChatMessageView struct {
	ID          string         `json:"id"`
	Text        string         `json:"text"`
	Origin      Origin         `json:"origin"`
	MessageType string         `json:"message_type"`
	Metadata    datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (m ChatMessage) View() ChatMessageView {
	return ChatMessageView{
		ID:          m.ID,
		Text:        m.Message,
		Origin:      m.Origin(),
		MessageType: m.MessageType,
		Metadata:    m.Metadata,
		CreatedAt:   m.CreatedAt,
	}
}
