package routes

import (
	"net/http"

	"transcript-rag-backend/internal/ai"
	"transcript-rag-backend/internal/config"
	"transcript-rag-backend/internal/logger"
	"transcript-rag-backend/services"
	"transcript-rag-backend/utils"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK"`
}

// HandleChat answers a question grounded in retrieved transcript chunks.
// chatClient may be nil when no model key is configured; the endpoint then
// reports itself unavailable instead of failing at startup.
func HandleChat(cfg *config.Config, retriever *services.Retriever, chatClient *ai.ChatClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		if chatClient == nil {
			utils.RespondWithServiceUnavailable(c, "Chat model is not configured")
			return
		}

		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request body", err.Error())
			return
		}
		if req.Question == "" {
			utils.RespondWithBadRequest(c, "Question is required", nil)
			return
		}
		topK := req.TopK
		if topK <= 0 {
			topK = cfg.DefaultTopK
		}

		result, err := retriever.Query(c.Request.Context(), req.Question, topK)
		if err != nil {
			logger.Error("Context retrieval failed", "error", err.Error())
			utils.RespondWithInternalError(c, "Failed to retrieve context", nil)
			return
		}

		answer, err := chatClient.Answer(c.Request.Context(), req.Question, result.Context)
		if err != nil {
			logger.Error("Chat generation failed", "error", err.Error())
			utils.RespondWithServiceUnavailable(c, "Chat model is unavailable")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"answer":     answer,
			"sources":    result.RawMatches,
			"contextLen": len(result.Context),
		})
	}
}
