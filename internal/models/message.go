package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is a single chat message. Immutable once created; ordering is by
// CreatedAt ascending.
type Message struct {
	ID string `gorm:"primaryKey" json:"id"`
	// RoomID is the room the message belongs to.
	RoomID string `gorm:"type:text;not null;index:idx_room_created" json:"room_id"`
	// UserID is the sender.
	UserID string `gorm:"type:text;not null" json:"user_id"`
	// Content is the message text. Never empty.
	Content string `gorm:"type:text;not null" json:"content"`

	CreatedAt time.Time `gorm:"index:idx_room_created" json:"created_at"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
