package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WaitingTicket is a timestamped marker meaning "this user wants a partner
// now". At most one active ticket exists per user; the registry enforces
// this with delete-then-insert on top of the unique index.
type WaitingTicket struct {
	ID string `gorm:"primaryKey" json:"id"`
	// UserID identifies who is waiting.
	UserID string `gorm:"type:text;not null;uniqueIndex" json:"user_id"`
	// CreatedAt is the FIFO tie-break for pairing order.
	CreatedAt time.Time `json:"created_at"`
}

func (t *WaitingTicket) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	return
}
