package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agentmemz/agentmemz/internal/types/interfaces"
)

// MemoryHandler serves recall queries and fact maintenance.
type MemoryHandler struct {
	recall interfaces.RecallService
	facts  interfaces.FactService
}

// NewMemoryHandler creates the memory handler.
func NewMemoryHandler(recall interfaces.RecallService, facts interfaces.FactService) *MemoryHandler {
	return &MemoryHandler{recall: recall, facts: facts}
}

type recallRequest struct {
	Query     string  `json:"query" binding:"required"`
	UserID    string  `json:"user_id" binding:"required"`
	K         int     `json:"k"`
	Threshold float64 `json:"threshold"`
}

// Recall handles POST /api/v1/recall.
func (h *MemoryHandler) Recall(c *gin.Context) {
	var req recallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "query and user_id are required")
		return
	}
	results, err := h.recall.Recall(c.Request.Context(), req.Query, req.UserID, req.K, req.Threshold)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

type supersedeRequest struct {
	At *time.Time `json:"at"`
}

// Supersede handles POST /api/v1/facts/:id/supersede.
func (h *MemoryHandler) Supersede(c *gin.Context) {
	var req supersedeRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		badRequest(c, "invalid request body")
		return
	}
	at := time.Now().UTC()
	if req.At != nil {
		at = req.At.UTC()
	}
	if err := h.facts.Supersede(c.Request.Context(), c.Param("id"), at); err != nil {
		fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Summary handles GET /api/v1/users/:user_id/memory/summary.
func (h *MemoryHandler) Summary(c *gin.Context) {
	summary, err := h.facts.Summary(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
