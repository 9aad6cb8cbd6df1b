package match

import (
	"context"
	"errors"
	"sync"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/registry"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Role distinguishes the room creator from the joined guest in host-tracked
// rooms.
type Role string

const (
	RoleNone  Role = ""
	RoleHost  Role = "host"
	RoleGuest Role = "guest"
)

// RoomStatus is the derived, client-facing view of a room. Comparable so
// duplicate feed deliveries collapse into no observable change.
type RoomStatus struct {
	// Matched: self is in the room and the room holds two participants.
	Matched bool `json:"matched"`
	// Ended: the room is gone or its host left. Distinct from full/empty.
	Ended bool `json:"ended"`
	// HostLeft: the specific ended cause where a host-tracked room lost
	// its host.
	HostLeft bool `json:"host_left"`
	// Other is the other participant's ID, "" while alone.
	Other string `json:"other,omitempty"`
	Role  Role   `json:"role,omitempty"`
}

// Watcher subscribes to a single room's change feed and recomputes the
// status from an authoritative re-read on every notification. The payload
// of an event is never trusted for correctness: the feed is at-least-once
// and possibly reordered, the re-read is what decides.
type Watcher struct {
	rooms  *registry.RoomRegistry
	feed   Feed
	roomID string
	userID string

	mu     sync.Mutex
	status RoomStatus
	known  bool

	onChange func(RoomStatus)
	log      *logrus.Entry
}

// NewWatcher builds a watcher. onChange fires only on actual transitions;
// it may be nil.
func NewWatcher(rooms *registry.RoomRegistry, feed Feed, roomID, userID string, onChange func(RoomStatus)) *Watcher {
	return &Watcher{
		rooms:    rooms,
		feed:     feed,
		roomID:   roomID,
		userID:   userID,
		onChange: onChange,
		log: logrus.WithFields(logrus.Fields{
			"component": "room_watcher",
			"room_id":   roomID,
		}),
	}
}

// Run refreshes once eagerly, then once per feed notification, until the
// context ends or the feed closes.
func (w *Watcher) Run(ctx context.Context) {
	events, cancel := w.feed.SubscribeRoom(ctx, w.roomID)
	defer cancel()

	w.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			w.Refresh(ctx)
		}
	}
}

// Refresh re-reads the room and recomputes the status. Idempotent:
// identical state produces no callback.
func (w *Watcher) Refresh(ctx context.Context) RoomStatus {
	room, err := w.rooms.Get(ctx, w.roomID)

	var next RoomStatus
	switch {
	case errors.Is(err, registry.ErrNotFound):
		next = RoomStatus{Ended: true}
	case err != nil:
		// Transient read failure: keep the last known status rather than
		// flapping the client view.
		w.log.WithError(err).Warn("status refresh failed")
		return w.Status()
	default:
		next = w.derive(room)
	}

	w.mu.Lock()
	changed := !w.known || next != w.status
	w.status = next
	w.known = true
	cb := w.onChange
	w.mu.Unlock()

	if changed && cb != nil {
		cb(next)
	}
	return next
}

// Status returns the last derived status.
func (w *Watcher) Status() RoomStatus {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *Watcher) derive(room *models.Room) RoomStatus {
	st := RoomStatus{
		Matched: room.HasParticipant(w.userID) && room.IsFull(),
	}
	if room.HostLeft() {
		// Losing the host ends the room for everyone regardless of count.
		st.Matched = false
		st.HostLeft = true
		st.Ended = true
	}
	if room.HostID != nil && *room.HostID != "" {
		if *room.HostID == w.userID {
			st.Role = RoleHost
		} else {
			st.Role = RoleGuest
		}
	}
	others := lo.Filter(room.Participants, func(id string, _ int) bool {
		return id != w.userID
	})
	if len(others) == 1 {
		st.Other = others[0]
	}
	return st
}
