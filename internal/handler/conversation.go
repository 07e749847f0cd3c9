package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmemz/agentmemz/internal/types"
	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// ConversationHandler serves conversation lifecycle and message ingestion.
type ConversationHandler struct {
	ingest interfaces.IngestService
	blobs  interfaces.BlobStore
}

// NewConversationHandler creates the conversation handler.
func NewConversationHandler(ingest interfaces.IngestService, blobs interfaces.BlobStore) *ConversationHandler {
	return &ConversationHandler{ingest: ingest, blobs: blobs}
}

type createConversationRequest struct {
	UserID    string         `json:"user_id" binding:"required"`
	SessionID string         `json:"session_id" binding:"required"`
	Metadata  map[string]any `json:"metadata"`
}

// Create handles POST /api/v1/conversations.
func (h *ConversationHandler) Create(c *gin.Context) {
	var req createConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "user_id and session_id are required")
		return
	}
	conv, err := h.ingest.CreateConversation(c.Request.Context(), req.UserID, req.SessionID, req.Metadata)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, conv)
}

// Close handles POST /api/v1/conversations/:id/close.
func (h *ConversationHandler) Close(c *gin.Context) {
	if err := h.ingest.CloseConversation(c.Request.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type ingestMessageRequest struct {
	Role     string `json:"role" binding:"required"`
	Content  string `json:"content" binding:"required"`
	AudioRef string `json:"audio_ref"`
}

// IngestMessage handles POST /api/v1/conversations/:id/messages.
func (h *ConversationHandler) IngestMessage(c *gin.Context) {
	var req ingestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "role and content are required")
		return
	}
	role := types.Role(req.Role)
	if !role.Valid() {
		badRequest(c, "unknown role: "+req.Role)
		return
	}
	msg, err := h.ingest.Ingest(c.Request.Context(), c.Param("id"), role, req.Content, req.AudioRef)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadAudio handles POST /api/v1/conversations/:id/audio. The returned
// reference can be attached to a subsequent message ingest.
func (h *ConversationHandler) UploadAudio(c *gin.Context) {
	userID := c.Query("user_id")
	sessionID := c.Query("session_id")
	if userID == "" || sessionID == "" {
		badRequest(c, "user_id and session_id query parameters are required")
		return
	}

	fileHeader, err := c.FormFile("audio")
	if err != nil {
		badRequest(c, "audio file is required")
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		fail(c, err)
		return
	}
	defer src.Close()

	contentType := fileHeader.Header.Get("Content-Type")
	ref, err := h.blobs.Store(c.Request.Context(), userID, sessionID, fileHeader.Filename, src, fileHeader.Size, contentType)
	if err != nil {
		fail(c, err)
		return
	}

	url, err := h.blobs.PresignedURL(c.Request.Context(), ref)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"audio_ref": ref, "url": url})
}
