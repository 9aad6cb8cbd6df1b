package registry

import (
	"context"
	"errors"
	"fmt"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// RoomRegistry manages Room lifecycle. None of its mutations are atomic
// against concurrent writers beyond the single-row write itself; callers
// that need certainty re-read after writing.
type RoomRegistry struct {
	store storage.Store
	log   *logrus.Entry
}

func NewRoomRegistry(store storage.Store) *RoomRegistry {
	return &RoomRegistry{
		store: store,
		log:   logrus.WithField("component", "room_registry"),
	}
}

// Create inserts a new room. ErrConflict when the caller pre-assigned an ID
// that already exists.
func (r *RoomRegistry) Create(ctx context.Context, room *models.Room) error {
	if err := validateParticipants(room.Participants); err != nil {
		return err
	}
	err := r.store.InsertRoom(ctx, room)
	if errors.Is(err, storage.ErrDuplicate) {
		return fmt.Errorf("room %s already exists: %w", room.ID, ErrConflict)
	}
	return err
}

// Get returns the room or ErrNotFound.
func (r *RoomRegistry) Get(ctx context.Context, roomID string) (*models.Room, error) {
	return r.store.GetRoomByID(ctx, roomID)
}

// AddParticipant appends userID to the room. Already a member is a no-op
// success; a full room without the caller is ErrRoomFull. The read-decide-
// write here is not isolated, so the matchmaker re-reads afterwards before
// declaring the join successful.
func (r *RoomRegistry) AddParticipant(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := r.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if room.HasParticipant(userID) {
		return room, nil
	}
	if room.IsFull() {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrRoomFull)
	}

	updated := append(append([]string{}, room.Participants...), userID)
	if err := r.store.UpdateRoomParticipants(ctx, roomID, updated); err != nil {
		return nil, err
	}
	return r.store.GetRoomByID(ctx, roomID)
}

// SetParticipants overwrites the participant list. Used by a matchmaker
// that owns both sides of a fresh pairing. The invariant is checked before
// the write ever leaves the process.
func (r *RoomRegistry) SetParticipants(ctx context.Context, roomID string, participants []string) error {
	if err := validateParticipants(participants); err != nil {
		return err
	}
	return r.store.UpdateRoomParticipants(ctx, roomID, participants)
}

// RemoveParticipant filters userID out of the room. Delete-on-empty: a
// room nobody occupies is removed rather than kept as a reusable slot, so
// rooms do not accumulate without bound.
func (r *RoomRegistry) RemoveParticipant(ctx context.Context, roomID, userID string) error {
	room, err := r.store.GetRoomByID(ctx, roomID)
	if err != nil {
		return err
	}
	remaining := lo.Filter(room.Participants, func(id string, _ int) bool {
		return id != userID
	})
	if len(remaining) == len(room.Participants) {
		return nil
	}
	if len(remaining) == 0 {
		r.log.WithField("room_id", roomID).Info("room emptied, deleting")
		return r.store.DeleteRoom(ctx, roomID)
	}
	return r.store.UpdateRoomParticipants(ctx, roomID, remaining)
}

// ListJoinable returns rooms in a category holding exactly one participant.
func (r *RoomRegistry) ListJoinable(ctx context.Context, category string) ([]models.Room, error) {
	rooms, err := r.store.ListRoomsByCategory(ctx, category)
	if err != nil {
		return nil, err
	}
	return lo.Filter(rooms, func(room models.Room, _ int) bool {
		return len(room.Participants) == 1
	}), nil
}

func validateParticipants(participants []string) error {
	if len(participants) > models.MaxParticipants {
		return fmt.Errorf("%d participants exceeds cap: %w", len(participants), ErrInvalidParticipants)
	}
	if len(lo.Uniq(participants)) != len(participants) {
		return fmt.Errorf("duplicate participants: %w", ErrInvalidParticipants)
	}
	return nil
}
