package models

// RoomEvent is the change-feed notification for a single room row.
// Delivery is at-least-once and possibly out of order; the row image is a
// hint only, consumers re-read authoritative state before acting on it.
type RoomEvent struct {
	RoomID  string `json:"room_id"`
	Deleted bool   `json:"deleted"`
	// Room is the new row image. Nil for deletions.
	Room *Room `json:"room,omitempty"`
}
