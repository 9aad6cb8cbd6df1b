package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"pairchat/backend/internal/models"
	"pairchat/backend/internal/registry"

	"github.com/gin-gonic/gin"
	"github.com/lib/pq"
)

type createRoomRequest struct {
	SubjectCategory string `json:"subject_category" binding:"required"`
}

// CreateRoom opens a new room with the caller as host and sole occupant.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_category is required"})
		return
	}
	anonID := anonIDFrom(c)

	room := &models.Room{
		SubjectCategory: req.SubjectCategory,
		HostID:          &anonID,
		Participants:    pq.StringArray{anonID},
	}
	if err := h.rooms.Create(c.Request.Context(), room); err != nil {
		h.log.WithError(err).Error("room creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	c.JSON(http.StatusCreated, room)
}

// ListRooms returns the joinable rooms of a category, for a room browser.
func (h *Handler) ListRooms(c *gin.Context) {
	category := c.Query("category")
	if category == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "category is required"})
		return
	}

	rooms, err := h.rooms.ListJoinable(c.Request.Context(), category)
	if err != nil {
		h.log.WithError(err).Error("room listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"rooms": rooms})
}

// QuickMatch drops the caller into the first joinable room of the category,
// or opens a fresh one when nobody is waiting. Join attempts race other
// quick-matchers, so a full or vanished room just means trying the next.
func (h *Handler) QuickMatch(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "subject_category is required"})
		return
	}
	anonID := anonIDFrom(c)
	ctx := c.Request.Context()

	candidates, err := h.rooms.ListJoinable(ctx, req.SubjectCategory)
	if err != nil {
		h.log.WithError(err).Error("quick match listing failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Quick match failed"})
		return
	}
	for _, candidate := range candidates {
		room, err := h.rooms.AddParticipant(ctx, candidate.ID, anonID)
		if errors.Is(err, registry.ErrRoomFull) || errors.Is(err, registry.ErrNotFound) {
			continue
		}
		if err != nil {
			h.log.WithError(err).Error("quick match join failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Quick match failed"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"room": room, "created": false})
		return
	}

	room := &models.Room{
		ID:              fmt.Sprintf("quick-%d", time.Now().UnixMilli()),
		SubjectCategory: req.SubjectCategory,
		HostID:          &anonID,
		Participants:    pq.StringArray{anonID},
	}
	if err := h.rooms.Create(ctx, room); err != nil {
		h.log.WithError(err).Error("quick match creation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Quick match failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room, "created": true})
}

// ActiveRoom returns the caller's hinted room, if any. The hint may be
// stale; the client still has to attach and see what the room says.
func (h *Handler) ActiveRoom(c *gin.Context) {
	roomID, err := h.store.ActiveRoom(c.Request.Context(), anonIDFrom(c))
	if err != nil {
		h.log.WithError(err).Warn("active room lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read active room"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"room_id": roomID})
}
