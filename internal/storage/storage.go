package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pairchat/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Sentinel errors for the store contract. Callers match with errors.Is;
// anything else is a backend failure wrapped with context.
var (
	ErrNotFound  = errors.New("storage: record not found")
	ErrDuplicate = errors.New("storage: duplicate record")
)

// Store is the narrow persistence contract consumed by the registries and
// the message channel. Every method is a single-row read or write; there
// are no cross-row transactions, which is why callers re-verify after
// every mutation instead of relying on isolation.
type Store interface {
	// Rooms
	InsertRoom(ctx context.Context, room *models.Room) error
	GetRoomByID(ctx context.Context, roomID string) (*models.Room, error)
	UpdateRoomParticipants(ctx context.Context, roomID string, participants []string) error
	DeleteRoom(ctx context.Context, roomID string) error
	ListRoomsByCategory(ctx context.Context, category string) ([]models.Room, error)

	// Waiting tickets
	InsertTicket(ctx context.Context, ticket *models.WaitingTicket) error
	DeleteTicketsForUsers(ctx context.Context, userIDs []string) error
	EarliestTicketExcluding(ctx context.Context, userID string) (*models.WaitingTicket, error)

	// Messages
	InsertMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, roomID string) ([]models.Message, error)
}

// Service implements Store on PostgreSQL via GORM and publishes a row-level
// change feed over Redis Pub/Sub after each successful mutation.
type Service struct {
	DB    *gorm.DB
	Redis *redis.Client

	log *logrus.Entry
}

// NewService constructs the storage service.
func NewService(db *gorm.DB, rdb *redis.Client) *Service {
	return &Service{
		DB:    db,
		Redis: rdb,
		log:   logrus.WithField("component", "storage"),
	}
}

// --- Rooms ---

func (s *Service) InsertRoom(ctx context.Context, room *models.Room) error {
	err := s.DB.WithContext(ctx).Create(room).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("insert room %s: %w", room.ID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert room %s: %w", room.ID, err)
	}
	s.publishRoomEvent(ctx, models.RoomEvent{RoomID: room.ID, Room: room})
	return nil
}

func (s *Service) GetRoomByID(ctx context.Context, roomID string) (*models.Room, error) {
	var room models.Room
	err := s.DB.WithContext(ctx).Where("id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get room %s: %w", roomID, err)
	}
	return &room, nil
}

// UpdateRoomParticipants overwrites the participant list of a single room
// row. The write itself is atomic per row; deciding what to write is not,
// so callers re-read after writing before declaring success.
func (s *Service) UpdateRoomParticipants(ctx context.Context, roomID string, participants []string) error {
	res := s.DB.WithContext(ctx).Model(&models.Room{}).
		Where("id = ?", roomID).
		Update("participants", pq.StringArray(participants))
	if res.Error != nil {
		return fmt.Errorf("update room %s participants: %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("room %s: %w", roomID, ErrNotFound)
	}

	// Publish the new row image. Re-reading rather than echoing the input
	// keeps the feed close to what the row actually holds now.
	if room, err := s.GetRoomByID(ctx, roomID); err == nil {
		s.publishRoomEvent(ctx, models.RoomEvent{RoomID: roomID, Room: room})
	} else {
		s.publishRoomEvent(ctx, models.RoomEvent{RoomID: roomID})
	}
	return nil
}

func (s *Service) DeleteRoom(ctx context.Context, roomID string) error {
	if err := s.DB.WithContext(ctx).Where("id = ?", roomID).Delete(&models.Room{}).Error; err != nil {
		return fmt.Errorf("delete room %s: %w", roomID, err)
	}
	s.publishRoomEvent(ctx, models.RoomEvent{RoomID: roomID, Deleted: true})
	return nil
}

func (s *Service) ListRoomsByCategory(ctx context.Context, category string) ([]models.Room, error) {
	var rooms []models.Room
	err := s.DB.WithContext(ctx).
		Where("subject_category = ?", category).
		Order("created_at asc").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("list rooms in %q: %w", category, err)
	}
	return rooms, nil
}

// --- Waiting tickets ---

func (s *Service) InsertTicket(ctx context.Context, ticket *models.WaitingTicket) error {
	err := s.DB.WithContext(ctx).Create(ticket).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("ticket for %s: %w", ticket.UserID, ErrDuplicate)
	}
	if err != nil {
		return fmt.Errorf("insert ticket for %s: %w", ticket.UserID, err)
	}
	return nil
}

func (s *Service) DeleteTicketsForUsers(ctx context.Context, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	err := s.DB.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Delete(&models.WaitingTicket{}).Error
	if err != nil {
		return fmt.Errorf("delete tickets %v: %w", userIDs, err)
	}
	return nil
}

// EarliestTicketExcluding returns the oldest ticket not owned by userID,
// or nil when nobody else is waiting. Earliest-first keeps pairing fair.
func (s *Service) EarliestTicketExcluding(ctx context.Context, userID string) (*models.WaitingTicket, error) {
	var ticket models.WaitingTicket
	err := s.DB.WithContext(ctx).
		Where("user_id <> ?", userID).
		Order("created_at asc").
		First(&ticket).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find candidate for %s: %w", userID, err)
	}
	return &ticket, nil
}

// --- Messages ---

func (s *Service) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	if err := s.DB.WithContext(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("insert message in room %s: %w", msg.RoomID, err)
	}
	s.publishMessage(ctx, msg)
	return nil
}

func (s *Service) ListMessages(ctx context.Context, roomID string) ([]models.Message, error) {
	var messages []models.Message
	err := s.DB.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("created_at asc").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages for room %s: %w", roomID, err)
	}
	return messages, nil
}

// --- Users ---

// SaveUserIfNotExists upserts the identity row on first contact.
func (s *Service) SaveUserIfNotExists(ctx context.Context, userID string) (*models.User, error) {
	user := models.User{ID: userID}
	result := s.DB.WithContext(ctx).FirstOrCreate(&user, models.User{ID: userID})
	if result.Error != nil {
		return nil, fmt.Errorf("save user %s: %w", userID, result.Error)
	}
	if result.RowsAffected > 0 {
		s.log.WithField("user_id", userID).Info("new user saved")
	}
	return &user, nil
}

// --- Maintenance (admin CLI) ---

// PurgeStaleTickets removes waiting tickets older than the cutoff. Tickets
// normally disappear on pairing or cancel; this sweeps the ones orphaned by
// crashed clients.
func (s *Service) PurgeStaleTickets(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.DB.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&models.WaitingTicket{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge stale tickets: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// PurgeEmptyRooms removes rooms with no participants left. Leave already
// deletes on empty; this catches rooms abandoned before anyone joined.
func (s *Service) PurgeEmptyRooms(ctx context.Context) (int64, error) {
	res := s.DB.WithContext(ctx).
		Where("participants IS NULL OR array_length(participants, 1) IS NULL").
		Delete(&models.Room{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge empty rooms: %w", res.Error)
	}
	return res.RowsAffected, nil
}
