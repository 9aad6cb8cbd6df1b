package match_test

import (
	"context"
	"sync"
	"time"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// fakeStore is an in-memory implementation of storage.Store plus the room
// and message feeds. It mimics the real store's semantics: single-row
// writes are atomic (guarded by the mutex), nothing spans rows, and every
// mutation broadcasts a change-feed event to subscribers.
type fakeStore struct {
	mu       sync.Mutex
	rooms    map[string]models.Room
	tickets  map[string]models.WaitingTicket // keyed by user_id
	messages map[string][]models.Message
	seq      int64

	roomSubs map[string][]chan models.RoomEvent
	msgSubs  map[string][]chan models.Message

	// updateHook, when set, can reject a participant write before it lands.
	updateHook func(roomID string, participants []string) error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rooms:    make(map[string]models.Room),
		tickets:  make(map[string]models.WaitingTicket),
		messages: make(map[string][]models.Message),
		roomSubs: make(map[string][]chan models.RoomEvent),
		msgSubs:  make(map[string][]chan models.Message),
	}
}

// --- rooms ---

func (f *fakeStore) InsertRoom(ctx context.Context, room *models.Room) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room.ID == "" {
		room.ID = uuid.New().String()
	}
	if _, exists := f.rooms[room.ID]; exists {
		return storage.ErrDuplicate
	}
	f.rooms[room.ID] = *room
	f.broadcastRoomLocked(models.RoomEvent{RoomID: room.ID, Room: room})
	return nil
}

func (f *fakeStore) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := room
	cp.Participants = append(pq.StringArray{}, room.Participants...)
	return &cp, nil
}

func (f *fakeStore) UpdateRoomParticipants(ctx context.Context, roomID string, participants []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	room, ok := f.rooms[roomID]
	if !ok {
		return storage.ErrNotFound
	}
	if f.updateHook != nil {
		if err := f.updateHook(roomID, participants); err != nil {
			return err
		}
	}
	room.Participants = append(pq.StringArray{}, participants...)
	f.rooms[roomID] = room
	cp := room
	f.broadcastRoomLocked(models.RoomEvent{RoomID: roomID, Room: &cp})
	return nil
}

func (f *fakeStore) DeleteRoom(ctx context.Context, roomID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rooms, roomID)
	f.broadcastRoomLocked(models.RoomEvent{RoomID: roomID, Deleted: true})
	return nil
}

func (f *fakeStore) ListRoomsByCategory(ctx context.Context, category string) ([]models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Room
	for _, room := range f.rooms {
		if room.SubjectCategory == category {
			out = append(out, room)
		}
	}
	return out, nil
}

// --- tickets ---

func (f *fakeStore) InsertTicket(ctx context.Context, ticket *models.WaitingTicket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.tickets[ticket.UserID]; exists {
		return storage.ErrDuplicate
	}
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	f.seq++
	ticket.CreatedAt = time.Unix(0, f.seq)
	f.tickets[ticket.UserID] = *ticket
	return nil
}

func (f *fakeStore) DeleteTicketsForUsers(ctx context.Context, userIDs []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range userIDs {
		delete(f.tickets, id)
	}
	return nil
}

func (f *fakeStore) EarliestTicketExcluding(ctx context.Context, userID string) (*models.WaitingTicket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *models.WaitingTicket
	for uid, t := range f.tickets {
		if uid == userID {
			continue
		}
		t := t
		if best == nil || t.CreatedAt.Before(best.CreatedAt) {
			best = &t
		}
	}
	return best, nil
}

// --- messages ---

func (f *fakeStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	f.messages[msg.RoomID] = append(f.messages[msg.RoomID], *msg)
	for _, ch := range f.msgSubs[msg.RoomID] {
		select {
		case ch <- *msg:
		default:
		}
	}
	return nil
}

func (f *fakeStore) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Message{}, f.messages[roomID]...), nil
}

// --- feeds ---

func (f *fakeStore) SubscribeRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func()) {
	ch := make(chan models.RoomEvent, 64)
	f.mu.Lock()
	f.roomSubs[roomID] = append(f.roomSubs[roomID], ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeStore) SubscribeMessages(ctx context.Context, roomID string) (<-chan models.Message, func()) {
	ch := make(chan models.Message, 64)
	f.mu.Lock()
	f.msgSubs[roomID] = append(f.msgSubs[roomID], ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeStore) broadcastRoomLocked(ev models.RoomEvent) {
	for _, ch := range f.roomSubs[ev.RoomID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// --- test helpers ---

func (f *fakeStore) setRoom(room models.Room) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rooms[room.ID] = room
}

func (f *fakeStore) ticketCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tickets)
}

func (f *fakeStore) hasTicket(userID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.tickets[userID]
	return ok
}

// fakeHints records active-room hint calls.
type fakeHints struct {
	mu     sync.Mutex
	active map[string]string
}

func newFakeHints() *fakeHints {
	return &fakeHints{active: make(map[string]string)}
}

func (h *fakeHints) SetActiveRoom(ctx context.Context, userID, roomID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[userID] = roomID
	return nil
}

func (h *fakeHints) ClearActiveRoom(ctx context.Context, userID string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, userID)
	return nil
}

func (h *fakeHints) activeRoom(userID string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[userID]
}
