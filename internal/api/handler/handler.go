package handler

import (
	"pairchat/backend/internal/config"
	"pairchat/backend/internal/match"
	"pairchat/backend/internal/registry"
	"pairchat/backend/internal/storage"

	"github.com/sirupsen/logrus"
)

// Handler carries the HTTP and WebSocket surface's dependencies.
type Handler struct {
	cfg     *config.Config
	store   *storage.Service
	rooms   *registry.RoomRegistry
	waiting *registry.WaitingRegistry
	log     *logrus.Entry
}

func NewHandler(cfg *config.Config, store *storage.Service) *Handler {
	return &Handler{
		cfg:     cfg,
		store:   store,
		rooms:   registry.NewRoomRegistry(store),
		waiting: registry.NewWaitingRegistry(store),
		log:     logrus.WithField("component", "handler"),
	}
}

// newSession builds the per-connection session for one user in one room.
func (h *Handler) newSession(roomID, userID string) *match.Session {
	deps := match.SessionDeps{
		Rooms:       h.rooms,
		Waiting:     h.waiting,
		Store:       h.store,
		RoomFeed:    h.store,
		MessageFeed: h.store,
		Hints:       h.store,
		Config: match.Config{
			Attempts:   config.MatchAttempts,
			RetryDelay: config.MatchRetryDelay,
		},
	}
	return match.NewSession(deps, roomID, userID)
}
