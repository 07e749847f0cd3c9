package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the HTTP surface of the memory backend.
func NewRouter(
	conversations *ConversationHandler,
	memory *MemoryHandler,
	sessions *SessionHandler,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), RequestLogger())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	{
		v1.POST("/conversations", conversations.Create)
		v1.POST("/conversations/:id/close", conversations.Close)
		v1.POST("/conversations/:id/messages", conversations.IngestMessage)
		v1.POST("/conversations/:id/audio", conversations.UploadAudio)

		v1.POST("/recall", memory.Recall)
		v1.POST("/facts/:id/supersede", memory.Supersede)
		v1.GET("/users/:user_id/memory/summary", memory.Summary)

		v1.GET("/sessions/:session_id/context", sessions.GetContext)
		v1.PUT("/sessions/:session_id/context", sessions.UpdateContext)
	}

	return r
}
