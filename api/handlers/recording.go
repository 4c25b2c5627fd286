package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/storage"
)

// RecordingStore persists call recordings.
type RecordingStore interface {
	Create(ctx context.Context, rec *model.CallRecording) error
	GetByID(ctx context.Context, id int64) (*model.CallRecording, error)
}

// RecordingHandler handles call recording uploads.
type RecordingHandler struct {
	store storage.BlobStore
	repo  RecordingStore
}

// NewRecordingHandler creates a new RecordingHandler.
func NewRecordingHandler(store storage.BlobStore, repo RecordingStore) *RecordingHandler {
	return &RecordingHandler{store: store, repo: repo}
}

// RecordingResponse is returned for a stored recording.
type RecordingResponse struct {
	Success      bool   `json:"success"`
	RecordingURL string `json:"recording_url"`
	ID           int64  `json:"id"`
}

// Save handles POST /api/call/record.
func (h *RecordingHandler) Save(c *gin.Context) {
	caller := c.PostForm("caller")
	receiver := c.PostForm("receiver")

	header, err := c.FormFile("recording")
	if err != nil {
		sendError(c, http.StatusBadRequest, "RECORDING_REQUIRED", model.ErrRecordingRequired.Error())
		return
	}
	if caller == "" || receiver == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Caller and receiver are required")
		return
	}

	rec := &model.CallRecording{Caller: caller, Receiver: receiver}
	if room := c.PostForm("room_name"); room != "" {
		rec.RoomName = &room
	}
	if d, err := strconv.Atoi(c.PostForm("duration")); err == nil && d >= 0 {
		rec.Duration = &d
	}
	now := time.Now().UTC()
	rec.EndedAt = &now
	rec.StartedAt = now.Add(-rec.Elapsed())

	file, err := header.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded recording")
		return
	}
	defer file.Close()

	ctx := c.Request.Context()
	name := "recordings/" + uuid.New().String() + ".webm"
	info, err := h.store.Put(ctx, name, file, "audio/webm")
	if err != nil {
		log.Printf("Failed to store call recording: %v", err)
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}
	rec.URL = info.URL

	if err := h.repo.Create(ctx, rec); err != nil {
		log.Printf("Failed to save call recording: %v", err)
		h.store.Delete(ctx, info.Name)
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
		return
	}

	log.Printf("Saved call recording id=%d caller=%s receiver=%s duration=%s", rec.ID, caller, receiver, rec.Elapsed())
	c.JSON(http.StatusOK, RecordingResponse{
		Success:      true,
		RecordingURL: rec.URL,
		ID:           rec.ID,
	})
}

// Get handles GET /api/call/recordings/:id.
func (h *RecordingHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid recording id")
		return
	}

	rec, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, model.ErrRecordingNotFound) {
			sendError(c, http.StatusNotFound, "RECORDING_NOT_FOUND", "Recording not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get recording: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RegisterRoutes registers the call recording routes on a Gin router group.
func (h *RecordingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/call/record", h.Save)
	rg.GET("/call/recordings/:id", h.Get)
}
