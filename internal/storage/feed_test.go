package storage_test

import (
	"context"
	"testing"

	"pairchat/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSubscribe_WithoutRedisReturnsClosedFeed: the maintenance CLI builds the
// service without Redis. Subscriptions must degrade into an immediately
// closed feed instead of panicking.
func TestSubscribe_WithoutRedisReturnsClosedFeed(t *testing.T) {
	s := storage.NewService(nil, nil)

	rooms, cancelRooms := s.SubscribeRoom(context.Background(), "r1")
	require.NotNil(t, rooms)
	_, ok := <-rooms
	assert.False(t, ok, "the room feed must be closed when there is no Redis")
	cancelRooms()

	msgs, cancelMsgs := s.SubscribeMessages(context.Background(), "r1")
	require.NotNil(t, msgs)
	_, ok = <-msgs
	assert.False(t, ok, "the message feed must be closed when there is no Redis")
	cancelMsgs()
}
