package handlers

import (
	"context"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"

	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/storage"
)

// RoomEnsurer creates rooms on first reference.
type RoomEnsurer interface {
	EnsureRoom(ctx context.Context, name string) (*model.Room, error)
}

// MediaHandler handles media uploads shared in chat rooms.
type MediaHandler struct {
	store storage.BlobStore
	rooms RoomEnsurer
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store storage.BlobStore, rooms RoomEnsurer) *MediaHandler {
	return &MediaHandler{store: store, rooms: rooms}
}

// UploadResponse is returned for a stored media file.
type UploadResponse struct {
	Success   bool   `json:"success"`
	URL       string `json:"url"`
	MediaType string `json:"media_type"`
}

// Upload handles POST /api/media/upload.
func (h *MediaHandler) Upload(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}
	room := c.PostForm("room")
	if room == "" {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Room name is required")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.rooms.EnsureRoom(ctx, room); err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to create room: "+err.Error())
		return
	}

	file, err := header.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file")
		return
	}
	defer file.Close()

	contentType, err := detectContentType(header.Filename, file)
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded file")
		return
	}

	filename := storage.SafeName(header.Filename)
	if filename == "" {
		filename = "upload"
	}
	name := fmt.Sprintf("chat/%s_%s_%s", storage.SafeName(room), time.Now().Format("20060102_150405"), filename)

	info, err := h.store.Put(ctx, name, file, contentType)
	if err != nil {
		log.Printf("Failed to store media %s: %v", name, err)
		sendError(c, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to store file")
		return
	}

	c.JSON(http.StatusOK, UploadResponse{
		Success:   true,
		URL:       info.URL,
		MediaType: string(model.KindFromMIME(contentType)),
	})
}

// detectContentType guesses the MIME type from the file extension, sniffing
// the content when the extension is unknown. r is rewound afterwards.
func detectContentType(filename string, r io.ReadSeeker) (string, error) {
	if ct := mime.TypeByExtension(filepath.Ext(filename)); ct != "" {
		return ct, nil
	}
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return "", err
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return mt.String(), nil
}

// RegisterRoutes registers the media routes on a Gin router group.
func (h *MediaHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/media/upload", h.Upload)
}
