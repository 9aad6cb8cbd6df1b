package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the identity record behind an anonymous session. The core only
// needs a stable ID; everything else about identity lives with the caller.
type User struct {
	ID        string    `gorm:"primaryKey" json:"id"` // anonymous UUID
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate generates a new UUID when the ID is not set yet.
func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}
