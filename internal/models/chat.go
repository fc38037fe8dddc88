package models

import "time"

// ChatMessage represents the chat_messages table
// ID grows with arrival order and is the ordering key for the log.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Author    string    `gorm:"size:50;not null;index" json:"author"`
	Text      string    `gorm:"type:text;not null" json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for ChatMessage model
func (ChatMessage) TableName() string {
	return "chat_messages"
}
