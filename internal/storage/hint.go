package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// The active-room hint backs the "return to your chat" affordance. It is a
// cache, never an input to matching decisions; a stale or missing hint only
// costs the user a click.

const activeRoomKeyPrefix = "active_room:"

// ActiveRoomHintTTL bounds how long a hint outlives the session that set it.
const ActiveRoomHintTTL = 24 * time.Hour

// SetActiveRoom records which room the user is currently attached to.
func (s *Service) SetActiveRoom(ctx context.Context, userID, roomID string) error {
	err := s.Redis.Set(ctx, activeRoomKeyPrefix+userID, roomID, ActiveRoomHintTTL).Err()
	if err != nil {
		return fmt.Errorf("set active room hint for %s: %w", userID, err)
	}
	return nil
}

// ActiveRoom returns the hinted room for a user, or "" when none is set.
func (s *Service) ActiveRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := s.Redis.Get(ctx, activeRoomKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get active room hint for %s: %w", userID, err)
	}
	return roomID, nil
}

// ClearActiveRoom drops the hint. Best-effort at call sites.
func (s *Service) ClearActiveRoom(ctx context.Context, userID string) error {
	if err := s.Redis.Del(ctx, activeRoomKeyPrefix+userID).Err(); err != nil {
		return fmt.Errorf("clear active room hint for %s: %w", userID, err)
	}
	return nil
}
