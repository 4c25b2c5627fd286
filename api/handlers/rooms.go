package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/room-relay/backend/internal/event"
	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/presence"
)

const maxHistoryLimit = 500

// HistoryStore lists the stored messages of a room.
type HistoryStore interface {
	ListMessages(ctx context.Context, room string, limit int) ([]*model.Message, error)
}

// RoomHandler serves room history and presence.
type RoomHandler struct {
	history      HistoryStore
	presence     presence.Registry
	defaultLimit int
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(history HistoryStore, registry presence.Registry, defaultLimit int) *RoomHandler {
	if defaultLimit <= 0 {
		defaultLimit = 50
	}
	return &RoomHandler{
		history:      history,
		presence:     registry,
		defaultLimit: defaultLimit,
	}
}

// HistoryResponse lists the latest messages of a room, oldest first.
type HistoryResponse struct {
	Room     string           `json:"room"`
	Messages []*model.Message `json:"messages"`
}

// Messages handles GET /api/rooms/:room/messages.
func (h *RoomHandler) Messages(c *gin.Context) {
	room := c.Param("room")

	limit := h.defaultLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		if n > maxHistoryLimit {
			n = maxHistoryLimit
		}
		limit = n
	}

	messages, err := h.history.ListMessages(c.Request.Context(), room, limit)
	if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list messages: "+err.Error())
		return
	}
	if messages == nil {
		messages = []*model.Message{}
	}

	c.JSON(http.StatusOK, HistoryResponse{Room: room, Messages: messages})
}

// Online handles GET /api/rooms/:room/online.
func (h *RoomHandler) Online(c *gin.Context) {
	users, err := h.presence.List(c.Request.Context(), c.Param("room"))
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list presence: "+err.Error())
		return
	}
	data, _ := event.Render(event.OnlineList(users), "")
	c.Data(http.StatusOK, "application/json; charset=utf-8", data)
}

// RegisterRoutes registers the room routes on a Gin router group.
func (h *RoomHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rooms := rg.Group("/rooms")
	{
		rooms.GET("/:room/messages", h.Messages)
		rooms.GET("/:room/online", h.Online)
	}
}
