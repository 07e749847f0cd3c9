package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// SessionHandler serves short-lived session context.
type SessionHandler struct {
	sessions interfaces.SessionService
}

// NewSessionHandler creates the session handler.
func NewSessionHandler(sessions interfaces.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// GetContext handles GET /api/v1/sessions/:session_id/context.
func (h *SessionHandler) GetContext(c *gin.Context) {
	ctxMap, err := h.sessions.GetContext(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"context": ctxMap})
}

// UpdateContext handles PUT /api/v1/sessions/:session_id/context.
func (h *SessionHandler) UpdateContext(c *gin.Context) {
	var updates map[string]string
	if err := c.ShouldBindJSON(&updates); err != nil {
		badRequest(c, "context updates must be a string map")
		return
	}
	if len(updates) == 0 {
		badRequest(c, "context updates must not be empty")
		return
	}
	if err := h.sessions.UpdateContext(c.Request.Context(), c.Param("session_id"), updates); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
