package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/room-relay/backend/internal/auth"
	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/session"
	"github.com/room-relay/backend/internal/ws"
)

// ChatHandler handles WebSocket connections to chat rooms.
type ChatHandler struct {
	sessions       *session.Manager
	upgrader       websocket.Upgrader
	maxMessageSize int64
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(sessions *session.Manager, origins *ws.OriginChecker, maxMessageSize int64) *ChatHandler {
	return &ChatHandler{
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     origins.CheckOrigin,
		},
		maxMessageSize: maxMessageSize,
	}
}

// Connect handles WS /ws/chat/:room. Anonymous requests are refused before
// the upgrade. The handler blocks for the lifetime of the connection.
func (h *ChatHandler) Connect(c *gin.Context) {
	room := c.Param("room")
	if room == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Room name is required")
		return
	}

	identity := auth.Identity(c)
	if identity == "" {
		sendError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		log.Printf("WebSocket upgrade failed for room %s: %v", room, err)
		return
	}

	client := ws.NewClient(conn)
	go client.WritePump()

	// cleanup must still run after the peer is gone
	ctx := context.WithoutCancel(c.Request.Context())

	sess, err := h.sessions.Open(ctx, room, identity, client)
	if err != nil {
		if !errors.Is(err, model.ErrUnauthorized) {
			log.Printf("Failed to open session for %s in room %s: %v", identity, room, err)
		}
		client.Close()
		return
	}
	defer h.sessions.Release(ctx, sess)

	client.ReadPump(h.maxMessageSize, func(raw []byte) {
		sess.HandleFrame(ctx, raw)
	})
}

// RegisterRoutes registers the chat routes on a Gin router group.
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/chat/:room", h.Connect)
}
