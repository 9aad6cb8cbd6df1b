package registry_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// TestEnqueue_DeleteThenInsert verifies idempotent re-entry: any stale
// ticket is cleared before the fresh one is written.
func TestEnqueue_DeleteThenInsert(t *testing.T) {
	// Arrange
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	store.On("DeleteTicketsForUsers", mock.Anything, []string{"user_A"}).Return(nil).Once()
	store.On("InsertTicket", mock.Anything, mock.AnythingOfType("*models.WaitingTicket")).Return(nil).Once()

	// Act
	err := w.Enqueue(context.Background(), "user_A")

	// Assert
	assert.NoError(t, err)
	store.AssertExpectations(t)

	inserted := store.Calls[1].Arguments.Get(1).(*models.WaitingTicket)
	assert.Equal(t, "user_A", inserted.UserID)
}

func TestEnqueue_InsertFailurePropagates(t *testing.T) {
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	backendErr := errors.New("connection reset")
	store.On("DeleteTicketsForUsers", mock.Anything, []string{"user_A"}).Return(nil)
	store.On("InsertTicket", mock.Anything, mock.Anything).Return(backendErr)

	err := w.Enqueue(context.Background(), "user_A")

	assert.ErrorIs(t, err, backendErr)
}

// TestFindCandidate_ReturnsEarliestOtherUser checks that the registry
// never hands a caller their own ticket.
func TestFindCandidate_ReturnsEarliestOtherUser(t *testing.T) {
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	ticket := &models.WaitingTicket{ID: "t1", UserID: "user_B", CreatedAt: time.Now()}
	store.On("EarliestTicketExcluding", mock.Anything, "user_A").Return(ticket, nil)

	got, err := w.FindCandidate(context.Background(), "user_A")

	assert.NoError(t, err)
	assert.Equal(t, "user_B", got.UserID)
}

func TestFindCandidate_NoneWaiting(t *testing.T) {
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	store.On("EarliestTicketExcluding", mock.Anything, "user_A").Return(nil, nil)

	got, err := w.FindCandidate(context.Background(), "user_A")

	assert.NoError(t, err)
	assert.Nil(t, got)
}

// TestRemove_SwallowsFailure verifies cleanup never escalates: the store
// error is logged and the caller proceeds.
func TestRemove_SwallowsFailure(t *testing.T) {
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	store.On("DeleteTicketsForUsers", mock.Anything, []string{"user_A", "user_B"}).
		Return(errors.New("backend down"))

	// Must not panic or surface the error in any way.
	w.Remove(context.Background(), "user_A", "user_B")

	store.AssertExpectations(t)
}

func TestRemove_NoUsersIsNoop(t *testing.T) {
	store := new(MockStore)
	w := registry.NewWaitingRegistry(store)

	w.Remove(context.Background())

	store.AssertNotCalled(t, "DeleteTicketsForUsers", mock.Anything, mock.Anything)
}
