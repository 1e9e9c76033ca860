package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lectern-app/lectern/internal/domain"
)

type createRoomRequest struct {
	Name     string `json:"name" binding:"required"`
	Admin    string `json:"admin" binding:"required"`
	Password string `json:"password"`
}

// roomSummary is the listing shape; it never carries the password.
type roomSummary struct {
	ID         domain.RoomID `json:"id"`
	Name       string        `json:"name"`
	Admin      string        `json:"admin"`
	Users      int           `json:"users"`
	IsArchived bool          `json:"isArchived"`
	Timestamp  time.Time     `json:"timestamp"`
}

func summarize(r domain.Room) roomSummary {
	return roomSummary{
		ID:         r.ID,
		Name:       r.Name,
		Admin:      r.Admin,
		Users:      len(r.Users),
		IsArchived: r.IsArchived,
		Timestamp:  r.Timestamp,
	}
}

// CreateRoom registers a new session document with the caller as admin.
func (ct *Controller) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(req.Name) > domain.MaxNameLen || len(req.Admin) > domain.MaxNameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrNameTooLong.Error()})
		return
	}

	adminID := domain.UserID(c.GetString("user_id"))
	if adminID == "" {
		adminID = domain.UserID(uuid.NewString())
	}

	room := &domain.Room{
		ID:        domain.RoomID(uuid.NewString()),
		Name:      req.Name,
		AdminID:   adminID,
		Admin:     req.Admin,
		Password:  req.Password,
		Users:     []domain.UserRef{},
		Timestamp: time.Now(),
	}
	if err := ct.store.CreateRoom(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create room failed"})
		return
	}

	log.Info().Str("module", "gateway").Str("room", string(room.ID)).
		Str("admin", string(adminID)).Msg("room created")
	c.JSON(http.StatusCreated, gin.H{"roomId": room.ID})
}

// ListRooms returns summaries of every known room, archived included.
func (ct *Controller) ListRooms(c *gin.Context) {
	rooms, err := ct.store.ListRooms(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "gateway").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list rooms failed"})
		return
	}
	out := make([]roomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, summarize(r))
	}
	c.JSON(http.StatusOK, gin.H{"rooms": out})
}

// GetRoom returns a single room summary.
func (ct *Controller) GetRoom(c *gin.Context) {
	id := domain.RoomID(c.Param("rid"))
	room, err := ct.store.GetRoom(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": domain.ErrRoomNotFound.Error()})
			return
		}
		log.Error().Err(err).Str("module", "gateway").Str("room", string(id)).Msg("get room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get room failed"})
		return
	}
	c.JSON(http.StatusOK, summarize(*room))
}
