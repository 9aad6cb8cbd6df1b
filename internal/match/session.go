package match

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"pairchat/backend/internal/chat"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/registry"

	"github.com/sirupsen/logrus"
)

// EventType tags the events a session pushes toward its client.
type EventType string

const (
	// EventStatus carries a RoomStatus transition.
	EventStatus EventType = "status"
	// EventHistory carries the initial message log.
	EventHistory EventType = "history"
	// EventMessage carries one newly arrived message.
	EventMessage EventType = "message"
	// EventNoMatch reports that the search exhausted its attempt budget.
	EventNoMatch EventType = "no_match"
	// EventRoomFull reports the room was taken by two other users.
	EventRoomFull EventType = "room_full"
	// EventError carries a non-fatal, user-visible failure.
	EventError EventType = "error"
)

// Event is one unit of the session's outbound stream.
type Event struct {
	Type     EventType        `json:"type"`
	Status   *RoomStatus      `json:"status,omitempty"`
	Message  *models.Message  `json:"message,omitempty"`
	Messages []models.Message `json:"messages,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// HintStore is the external active-room cache. A hint, never an input to
// matching decisions.
type HintStore interface {
	SetActiveRoom(ctx context.Context, userID, roomID string) error
	ClearActiveRoom(ctx context.Context, userID string) error
}

// SessionDeps bundles the collaborators a session wires together.
type SessionDeps struct {
	Rooms       *registry.RoomRegistry
	Waiting     *registry.WaitingRegistry
	Store       chat.Store
	RoomFeed    Feed
	MessageFeed chat.Feed
	Hints       HintStore
	Config      Config
}

// Session is the per-room caller contract: matched/searching flags, the
// other participant hint, the ordered message log, send and leave. It
// stitches the matchmaker, the status watcher and the message channel
// together and multiplexes their effects into one event stream.
type Session struct {
	rooms      *registry.RoomRegistry
	waiting    *registry.WaitingRegistry
	matchmaker *Matchmaker
	watcher    *Watcher
	channel    *chat.Channel
	hints      HintStore

	roomID string
	userID string

	searching atomic.Bool
	events    chan Event
	cancel    context.CancelFunc

	log *logrus.Entry
}

func NewSession(deps SessionDeps, roomID, userID string) *Session {
	s := &Session{
		rooms:   deps.Rooms,
		waiting: deps.Waiting,
		hints:   deps.Hints,
		roomID:  roomID,
		userID:  userID,
		events:  make(chan Event, 32),
		log: logrus.WithFields(logrus.Fields{
			"component": "session",
			"room_id":   roomID,
			"user_id":   userID,
		}),
	}
	s.watcher = NewWatcher(deps.Rooms, deps.RoomFeed, roomID, userID, s.onStatus)
	s.channel = chat.NewChannel(deps.Store, deps.MessageFeed, roomID, s.IsMatched, s.onMessage)
	s.matchmaker = NewMatchmaker(deps.Rooms, deps.Waiting, deps.RoomFeed, deps.Config)
	return s
}

// Start opens the message channel, launches the status watcher and kicks
// off matchmaking. All spawned work stops when the session's context ends.
func (s *Session) Start(ctx context.Context) error {
	ctx, s.cancel = context.WithCancel(ctx)

	if s.hints != nil {
		if err := s.hints.SetActiveRoom(ctx, s.userID, s.roomID); err != nil {
			s.log.WithError(err).Warn("set active room hint")
		}
	}

	if err := s.channel.Open(ctx); err != nil {
		return err
	}
	s.emit(Event{Type: EventHistory, Messages: s.channel.Messages()})

	go s.watcher.Run(ctx)

	s.searching.Store(true)
	go s.runMatch(ctx)
	return nil
}

func (s *Session) runMatch(ctx context.Context) {
	defer s.searching.Store(false)

	out, err := s.matchmaker.Run(ctx, s.roomID, s.userID)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Session teardown; nothing to report.
	case errors.Is(err, registry.ErrRoomFull):
		s.emit(Event{Type: EventRoomFull})
	case errors.Is(err, registry.ErrNotFound):
		s.emit(Event{Type: EventError, Error: "room not found"})
	case err != nil:
		s.log.WithError(err).Error("matchmaking failed")
		s.emit(Event{Type: EventError, Error: "matchmaking failed"})
	case out.State == StateGivingUp:
		s.emit(Event{Type: EventNoMatch})
	case out.State == StateMatched:
		// The watcher usually learns this from the feed on its own; the
		// eager refresh covers a missed notification.
		s.watcher.Refresh(ctx)
	}
}

// IsMatched reports whether the room currently holds self plus a partner.
func (s *Session) IsMatched() bool { return s.watcher.Status().Matched }

// IsSearching reports whether the matchmaking run is still in flight.
func (s *Session) IsSearching() bool { return s.searching.Load() }

// OtherParticipant returns the partner's user ID, "" while alone.
func (s *Session) OtherParticipant() string { return s.watcher.Status().Other }

// Messages returns the ordered message log.
func (s *Session) Messages() []models.Message { return s.channel.Messages() }

// Events is the outbound stream consumed by the transport.
func (s *Session) Events() <-chan Event { return s.events }

// Send publishes a message to the room. Failures are both returned and
// surfaced on the event stream, so transports may ignore the return value.
func (s *Session) Send(ctx context.Context, content string) error {
	err := s.channel.Send(ctx, s.userID, content)
	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		// Refused locally, nothing user-visible to report.
	case errors.Is(err, chat.ErrNotMatched):
		s.emit(Event{Type: EventError, Error: "no partner yet"})
	case err != nil:
		s.log.WithError(err).Warn("message send failed")
		s.emit(Event{Type: EventError, Error: "failed to send message"})
	}
	return err
}

// Leave tears the session down and removes self from the room. Every
// cleanup step is best-effort: failures are logged and never block the
// caller's navigation away.
func (s *Session) Leave(ctx context.Context) {
	if s.cancel != nil {
		s.cancel()
	}

	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := s.rooms.RemoveParticipant(cleanupCtx, s.roomID, s.userID); err != nil &&
		!errors.Is(err, registry.ErrNotFound) {
		s.log.WithError(err).Warn("leave: participant removal failed")
	}
	s.waiting.Remove(cleanupCtx, s.userID)
	if s.hints != nil {
		if err := s.hints.ClearActiveRoom(cleanupCtx, s.userID); err != nil {
			s.log.WithError(err).Warn("leave: hint cleanup failed")
		}
	}
	s.log.Info("left room")
}

func (s *Session) onStatus(st RoomStatus) {
	s.emit(Event{Type: EventStatus, Status: &st})
}

func (s *Session) onMessage(m models.Message) {
	s.emit(Event{Type: EventMessage, Message: &m})
}

func (s *Session) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		// A stalled transport loses events, not correctness: the client
		// re-derives state from the next status it does receive.
		s.log.WithField("event", ev.Type).Warn("event dropped, slow consumer")
	}
}
