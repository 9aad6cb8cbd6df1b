package registry_test

import (
	"context"

	"pairchat/backend/internal/models"

	"github.com/stretchr/testify/mock"
)

// MockStore is a testify mock of the storage.Store interface.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertRoom(ctx context.Context, room *models.Room) error {
	args := m.Called(ctx, room)
	return args.Error(0)
}

func (m *MockStore) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Room), args.Error(1)
}

func (m *MockStore) UpdateRoomParticipants(ctx context.Context, roomID string, participants []string) error {
	args := m.Called(ctx, roomID, participants)
	return args.Error(0)
}

func (m *MockStore) DeleteRoom(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *MockStore) ListRoomsByCategory(ctx context.Context, category string) ([]models.Room, error) {
	args := m.Called(ctx, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Room), args.Error(1)
}

func (m *MockStore) InsertTicket(ctx context.Context, ticket *models.WaitingTicket) error {
	args := m.Called(ctx, ticket)
	return args.Error(0)
}

func (m *MockStore) DeleteTicketsForUsers(ctx context.Context, userIDs []string) error {
	args := m.Called(ctx, userIDs)
	return args.Error(0)
}

func (m *MockStore) EarliestTicketExcluding(ctx context.Context, userID string) (*models.WaitingTicket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WaitingTicket), args.Error(1)
}

func (m *MockStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockStore) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}
