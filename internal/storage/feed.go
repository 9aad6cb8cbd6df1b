package storage

import (
	"context"
	"encoding/json"

	"pairchat/backend/internal/models"
)

// Change-feed channel names. One channel per room row keeps subscribers
// scoped to the single room they care about.
const (
	roomChannelPrefix    = "feed:room:"
	messageChannelPrefix = "feed:messages:"
)

// The feed is advisory: at-least-once, possibly duplicated, possibly out of
// order. Subscribers re-read authoritative state before acting, so a slow
// consumer may drop notifications without losing correctness.

func (s *Service) publishRoomEvent(ctx context.Context, ev models.RoomEvent) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.WithError(err).Error("marshal room event")
		return
	}
	if err := s.Redis.Publish(ctx, roomChannelPrefix+ev.RoomID, payload).Err(); err != nil {
		s.log.WithError(err).WithField("room_id", ev.RoomID).Warn("publish room event")
	}
}

func (s *Service) publishMessage(ctx context.Context, msg *models.Message) {
	if s.Redis == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.WithError(err).Error("marshal message event")
		return
	}
	if err := s.Redis.Publish(ctx, messageChannelPrefix+msg.RoomID, payload).Err(); err != nil {
		s.log.WithError(err).WithField("room_id", msg.RoomID).Warn("publish message event")
	}
}

// SubscribeRoom delivers change notifications for a single room. The
// returned cancel func tears down the underlying subscription and closes
// the channel.
func (s *Service) SubscribeRoom(ctx context.Context, roomID string) (<-chan models.RoomEvent, func()) {
	// Without Redis there is no feed; a closed channel says so immediately.
	if s.Redis == nil {
		out := make(chan models.RoomEvent)
		close(out)
		return out, func() {}
	}

	pubsub := s.Redis.Subscribe(ctx, roomChannelPrefix+roomID)
	out := make(chan models.RoomEvent, 16)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev models.RoomEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.WithError(err).Warn("unmarshal room event")
				continue
			}
			select {
			case out <- ev:
			default:
				// Slow consumer. Dropping is safe: the consumer re-reads
				// the room on its next trigger anyway.
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }
}

// SubscribeMessages delivers newly inserted messages for a room.
func (s *Service) SubscribeMessages(ctx context.Context, roomID string) (<-chan models.Message, func()) {
	if s.Redis == nil {
		out := make(chan models.Message)
		close(out)
		return out, func() {}
	}

	pubsub := s.Redis.Subscribe(ctx, messageChannelPrefix+roomID)
	out := make(chan models.Message, 64)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var m models.Message
			if err := json.Unmarshal([]byte(msg.Payload), &m); err != nil {
				s.log.WithError(err).Warn("unmarshal message event")
				continue
			}
			select {
			case out <- m:
			default:
			}
		}
	}()

	return out, func() { _ = pubsub.Close() }
}
