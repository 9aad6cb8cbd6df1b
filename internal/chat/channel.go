package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"pairchat/backend/internal/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEmptyMessage rejects blank content locally, before any store call.
	ErrEmptyMessage = errors.New("chat: empty message")
	// ErrNotMatched gates sending until the room is matched.
	ErrNotMatched = errors.New("chat: room is not matched yet")
)

// Store is the slice of persistence the channel needs.
type Store interface {
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

// Feed delivers newly inserted messages for a room.
type Feed interface {
	SubscribeMessages(ctx context.Context, roomID string) (<-chan models.Message, func())
}

// Channel is the append-only message log of one room: optimistic send with
// rollback, push subscription merged with the initial bulk load, and
// de-duplication by message ID since the feed may redeliver.
type Channel struct {
	store  Store
	feed   Feed
	roomID string

	// gate reports whether sending is allowed (the matched predicate).
	gate func() bool
	// onMessage fires exactly once per message: for a feed delivery when it
	// first appends, for an own send when the store confirms it.
	onMessage func(models.Message)

	mu       sync.Mutex
	seen     map[string]struct{}
	messages []models.Message

	log *logrus.Entry
}

func NewChannel(store Store, feed Feed, roomID string, gate func() bool, onMessage func(models.Message)) *Channel {
	return &Channel{
		store:     store,
		feed:      feed,
		roomID:    roomID,
		gate:      gate,
		onMessage: onMessage,
		seen:      make(map[string]struct{}),
		log: logrus.WithFields(logrus.Fields{
			"component": "message_channel",
			"room_id":   roomID,
		}),
	}
}

// Open subscribes first, then bulk-loads history, so no message can fall
// between the snapshot and the first live event. Overlap between the two
// sources resolves by ID, not by ordering.
func (c *Channel) Open(ctx context.Context) error {
	events, cancel := c.feed.SubscribeMessages(ctx, c.roomID)

	history, err := c.store.ListMessages(ctx, c.roomID)
	if err != nil {
		cancel()
		return fmt.Errorf("load history: %w", err)
	}
	for _, msg := range history {
		c.append(msg, false)
	}

	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-events:
				if !ok {
					return
				}
				c.append(msg, true)
			}
		}
	}()
	return nil
}

// Send validates locally, appends optimistically, then persists. A store
// failure rolls the optimistic entry back and surfaces the error.
func (c *Channel) Send(ctx context.Context, userID, content string) error {
	if strings.TrimSpace(content) == "" {
		return ErrEmptyMessage
	}
	if c.gate != nil && !c.gate() {
		return ErrNotMatched
	}

	msg := models.Message{
		ID:        uuid.New().String(),
		RoomID:    c.roomID,
		UserID:    userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	c.append(msg, false)

	if err := c.store.InsertMessage(ctx, &msg); err != nil {
		c.rollback(msg.ID)
		return fmt.Errorf("send message: %w", err)
	}

	// The feed echo of this insert is a duplicate by ID and stays silent, so
	// this is the one notification an own message ever produces.
	if c.onMessage != nil {
		c.onMessage(msg)
	}
	return nil
}

// Messages returns the log ordered by CreatedAt ascending.
func (c *Channel) Messages() []models.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// append merges one message into the ordered log, dropping duplicates by
// ID. The feed may deliver out of order, so insertion keeps CreatedAt
// ascending rather than trusting arrival order.
func (c *Channel) append(msg models.Message, notify bool) {
	c.mu.Lock()
	if _, dup := c.seen[msg.ID]; dup {
		c.mu.Unlock()
		return
	}
	c.seen[msg.ID] = struct{}{}

	i := len(c.messages)
	for i > 0 && c.messages[i-1].CreatedAt.After(msg.CreatedAt) {
		i--
	}
	c.messages = append(c.messages, models.Message{})
	copy(c.messages[i+1:], c.messages[i:])
	c.messages[i] = msg

	cb := c.onMessage
	c.mu.Unlock()

	if notify && cb != nil {
		cb(msg)
	}
}

func (c *Channel) rollback(msgID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.seen, msgID)
	for i, m := range c.messages {
		if m.ID == msgID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return
		}
	}
}
