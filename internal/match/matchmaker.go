package match

import (
	"context"
	"errors"
	"time"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/registry"

	"github.com/sirupsen/logrus"
)

// State names the phases of the pairing protocol.
type State string

const (
	StateIdle            State = "idle"
	StateCheckingRoom    State = "checking_room"
	StateJoiningAsSecond State = "joining_as_second"
	StateBecomingFirst   State = "becoming_first"
	StateSearching       State = "searching"
	StateMatched         State = "matched"
	StateGivingUp        State = "giving_up"
)

// Feed is the room change-feed subscription consumed by the matchmaker and
// the status watcher. Implemented by storage.Service over Redis Pub/Sub.
type Feed interface {
	SubscribeRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func())
}

// Config tunes the search loop.
type Config struct {
	// Attempts bounds the candidate polls before giving up.
	Attempts int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

func (c Config) withDefaults() Config {
	if c.Attempts <= 0 {
		c.Attempts = 10
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 2 * time.Second
	}
	return c
}

// Outcome is the terminal result of a matchmaking run. State is either
// StateMatched (Room set) or StateGivingUp.
type Outcome struct {
	State State
	Room  *models.Room
}

// Matchmaker converts two independent "I want a partner" intents into one
// shared room assignment. There is no central broker: pairing is discovered
// by polling the waiting registry plus listening to the room change feed,
// and every read-decide-write step is followed by a re-read before success
// is declared, because nothing isolates concurrent matchmakers from each
// other.
type Matchmaker struct {
	rooms   *registry.RoomRegistry
	waiting *registry.WaitingRegistry
	feed    Feed
	cfg     Config
	log     *logrus.Entry
}

func NewMatchmaker(rooms *registry.RoomRegistry, waiting *registry.WaitingRegistry, feed Feed, cfg Config) *Matchmaker {
	return &Matchmaker{
		rooms:   rooms,
		waiting: waiting,
		feed:    feed,
		cfg:     cfg.withDefaults(),
		log:     logrus.WithField("component", "matchmaker"),
	}
}

// Run executes the pairing protocol for one user entering one room.
// Terminal results: a Matched or GivingUp outcome, registry.ErrRoomFull,
// registry.ErrNotFound, or the context error on cancellation.
func (m *Matchmaker) Run(ctx context.Context, roomID, userID string) (*Outcome, error) {
	log := m.log.WithFields(logrus.Fields{"room_id": roomID, "user_id": userID})

	room, err := m.rooms.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	if room.IsFull() {
		if room.HasParticipant(userID) {
			// Already matched here, nothing to do but clear any stale ticket.
			m.waiting.Remove(ctx, userID)
			return &Outcome{State: StateMatched, Room: room}, nil
		}
		return nil, registry.ErrRoomFull
	}

	if len(room.Participants) == 1 && !room.HasParticipant(userID) {
		if out := m.joinAsSecond(ctx, roomID, userID); out != nil {
			log.Info("joined as second participant")
			return out, nil
		}
		// Lost the race for the second slot. Search instead of failing.
		log.Info("second-slot join did not verify, entering search")
	}

	if err := m.becomeFirst(ctx, roomID, userID); err != nil {
		return nil, err
	}
	if err := m.waiting.Enqueue(ctx, userID); err != nil {
		return nil, err
	}
	log.Info("searching for a partner")
	return m.search(ctx, roomID, userID, log)
}

// joinAsSecond attempts the second slot and re-reads to confirm the write
// held. A nil return means the join cannot be trusted and the caller should
// fall through to searching.
func (m *Matchmaker) joinAsSecond(ctx context.Context, roomID, userID string) *Outcome {
	if _, err := m.rooms.AddParticipant(ctx, roomID, userID); err != nil {
		return nil
	}
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil || !room.HasParticipant(userID) || len(room.Participants) != models.MaxParticipants {
		return nil
	}
	// Pairing is complete; both sides' tickets are now stale.
	m.waiting.Remove(ctx, room.Participants...)
	return &Outcome{State: StateMatched, Room: room}
}

// becomeFirst makes the caller the sole participant of an empty room.
// A one-occupant room is left alone: the search loop resolves it.
func (m *Matchmaker) becomeFirst(ctx context.Context, roomID, userID string) error {
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil {
		return err
	}
	if len(room.Participants) > 0 {
		return nil
	}
	return m.rooms.SetParticipants(ctx, roomID, []string{userID})
}

// search is the retry loop: poll for a candidate, pair optimistically,
// re-verify, and in parallel watch the change feed for a pairing completed
// by the other side.
func (m *Matchmaker) search(ctx context.Context, roomID, userID string, log *logrus.Entry) (*Outcome, error) {
	events, cancel := m.feed.SubscribeRoom(ctx, roomID)
	defer cancel()

	for attempt := 1; attempt <= m.cfg.Attempts; attempt++ {
		if out, done, err := m.settle(ctx, roomID, userID); done {
			return out, err
		}

		candidate, err := m.waiting.FindCandidate(ctx, userID)
		if err != nil {
			// Transient read failure. It spends an attempt, nothing more.
			log.WithError(err).Warn("candidate lookup failed")
		} else if candidate != nil {
			if out := m.pair(ctx, roomID, userID, candidate.UserID, log); out != nil {
				return out, nil
			}
		}

		if attempt == m.cfg.Attempts {
			break
		}

		timer := time.NewTimer(m.cfg.RetryDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.waiting.Remove(context.WithoutCancel(ctx), userID)
			return nil, ctx.Err()
		case <-events:
			// The room changed under us. Skip the rest of the delay and
			// re-derive state from an authoritative read.
			timer.Stop()
		case <-timer.C:
		}
	}

	log.Info("no match found, giving up")
	m.waiting.Remove(ctx, userID)
	return &Outcome{State: StateGivingUp}, nil
}

// settle re-reads the room and reports whether matchmaking already reached
// a terminal state: matched, completed without us, or the room vanished.
func (m *Matchmaker) settle(ctx context.Context, roomID, userID string) (*Outcome, bool, error) {
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			m.waiting.Remove(ctx, userID)
			return nil, true, err
		}
		// Transient read failure: keep searching.
		return nil, false, nil
	}
	if !room.IsFull() {
		return nil, false, nil
	}
	m.waiting.Remove(ctx, userID)
	if room.HasParticipant(userID) {
		return &Outcome{State: StateMatched, Room: room}, true, nil
	}
	// Someone else's pairing filled this room without us.
	return nil, true, registry.ErrRoomFull
}

// pair writes [self, candidate] into the room after confirming there is
// still space, then re-reads to confirm the write survived. A nil return
// sends the caller back into the search loop; success is never assumed
// from the write alone.
func (m *Matchmaker) pair(ctx context.Context, roomID, userID, candidateID string, log *logrus.Entry) *Outcome {
	room, err := m.rooms.Get(ctx, roomID)
	if err != nil || room.IsFull() {
		return nil
	}

	if err := m.rooms.SetParticipants(ctx, roomID, []string{userID, candidateID}); err != nil {
		log.WithError(err).Warn("pairing write failed, back to searching")
		return nil
	}

	// Tickets are cleared only after the pairing write succeeded, so a
	// failed write leaves the candidate discoverable by others.
	m.waiting.Remove(ctx, userID, candidateID)

	room, err = m.rooms.Get(ctx, roomID)
	if err != nil || !room.HasParticipant(userID) || !room.IsFull() {
		log.Warn("pairing did not verify, back to searching")
		return nil
	}
	log.WithField("partner_id", candidateID).Info("match found")
	return &Outcome{State: StateMatched, Room: room}
}
