package registry

import (
	"errors"

	"pairchat/backend/internal/storage"
)

var (
	// ErrNotFound mirrors the store sentinel so callers only need one
	// package to match against.
	ErrNotFound = storage.ErrNotFound
	// ErrRoomFull is returned when a third user tries to enter a room that
	// already holds two participants. Not retried.
	ErrRoomFull = errors.New("registry: room is full")
	// ErrConflict signals that a re-verification step observed a state the
	// caller's write did not produce. Recovered by falling back into the
	// search loop, never surfaced as success.
	ErrConflict = errors.New("registry: concurrent modification")
	// ErrInvalidParticipants rejects writes that would violate the
	// two-unique-participants invariant before they reach the store.
	ErrInvalidParticipants = errors.New("registry: invalid participant list")
)
