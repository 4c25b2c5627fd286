package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/room-relay/backend/internal/model"
	"github.com/room-relay/backend/internal/storage"
)

// UploadHandler handles chunked uploads of large files.
type UploadHandler struct {
	assembler *storage.ChunkAssembler
}

// NewUploadHandler creates a new UploadHandler.
func NewUploadHandler(assembler *storage.ChunkAssembler) *UploadHandler {
	return &UploadHandler{assembler: assembler}
}

// Chunk handles POST /api/upload/chunk.
func (h *UploadHandler) Chunk(c *gin.Context) {
	header, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "NO_FILE", "No file uploaded")
		return
	}
	index, err := strconv.Atoi(c.PostForm("chunk_index"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_CHUNK", "chunk_index must be an integer")
		return
	}
	total, err := strconv.Atoi(c.PostForm("total_chunks"))
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_CHUNK", "total_chunks must be an integer")
		return
	}

	file, err := header.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "INVALID_FILE", "Failed to read uploaded chunk")
		return
	}
	defer file.Close()

	res, err := h.assembler.Append(c.Request.Context(), c.PostForm("filename"), index, total, file)
	if err != nil {
		if errors.Is(err, model.ErrInvalidChunk) || errors.Is(err, storage.ErrInvalidName) {
			sendError(c, http.StatusBadRequest, "INVALID_CHUNK", "Invalid filename or chunk index")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to store chunk: "+err.Error())
		return
	}

	if res.Completed {
		c.JSON(http.StatusOK, gin.H{"completed": true, "file_url": res.URL})
		return
	}
	c.JSON(http.StatusOK, gin.H{"chunk_received": res.Received})
}

// RegisterRoutes registers the chunked upload routes on a Gin router group.
func (h *UploadHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/upload/chunk", h.Chunk)
}
