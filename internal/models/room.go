package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

// MaxParticipants is the hard cap on room occupancy, enforced at the
// application layer (the store schema does not constrain the array length).
const MaxParticipants = 2

// Room represents a rendezvous slot for a 1-on-1 chat session.
// Participants holds 0, 1 or 2 user identifiers, unique, in join order.
type Room struct {
	// ID is the unique identifier for the room (UUID unless pre-assigned).
	ID string `gorm:"primaryKey" json:"id"`
	// SubjectCategory tags the room with a conversation topic. Immutable.
	SubjectCategory string `gorm:"type:text;not null;index" json:"subject_category"`
	// HostID is the creating user, when the room is host-tracked. A room
	// whose host left is considered ended for everyone else.
	HostID *string `gorm:"type:text" json:"host_id,omitempty"`
	// Participants is the ordered set of user IDs currently in the room.
	Participants pq.StringArray `gorm:"type:text[]" json:"participants"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate generates a room ID when the caller did not pre-assign one.
func (r *Room) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// HasParticipant reports whether userID is currently in the room.
func (r *Room) HasParticipant(userID string) bool {
	return lo.Contains(r.Participants, userID)
}

// IsFull reports whether the room reached its two-participant cap.
func (r *Room) IsFull() bool {
	return len(r.Participants) >= MaxParticipants
}

// HostLeft reports whether a host-tracked room lost its host.
// Rooms without a host are never considered host-abandoned.
func (r *Room) HostLeft() bool {
	return r.HostID != nil && *r.HostID != "" && !r.HasParticipant(*r.HostID)
}
