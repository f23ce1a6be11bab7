package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/model"
	"github.com/tradescribe/ai-service/internal/service"
)

// AIHandler exposes the four AI operations. Every route returns 200 with a
// documented fallback when the upstream model misbehaves; the only error
// statuses here are 400 for a malformed request body. Raw upstream errors
// never reach the caller.
type AIHandler struct {
	ai     *service.AIService
	logger *zap.Logger
}

// NewAIHandler creates an AIHandler backed by the orchestration service.
func NewAIHandler(ai *service.AIService, logger *zap.Logger) *AIHandler {
	return &AIHandler{ai: ai, logger: logger}
}

// ProcessChat handles POST /api/v1/chat/process.
// Reply generation and trade extraction run concurrently inside the service.
func (h *AIHandler) ProcessChat(c *gin.Context) {
	var req model.ChatProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	resp := h.ai.ProcessChat(c.Request.Context(), req)
	h.logger.Info("chat processed",
		zap.Bool("grounded", resp.IsGrounded),
		zap.Bool("trade_extracted", resp.TradeExtracted != nil),
	)
	c.JSON(http.StatusOK, resp)
}

// ExtractTrade handles POST /api/v1/trades/extract.
// A null trade in the response means no loggable trade was found — that is a
// success, not an error.
func (h *AIHandler) ExtractTrade(c *gin.Context) {
	var req model.TradeExtractionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	trade := h.ai.ExtractTrade(c.Request.Context(), req.Text)
	c.JSON(http.StatusOK, model.TradeExtractionResponse{Trade: trade})
}

// AnalyzeTrades handles POST /api/v1/trades/analyze.
func (h *AIHandler) AnalyzeTrades(c *gin.Context) {
	var req model.TradeAnalysisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, h.ai.AnalyzeTrades(c.Request.Context(), req.Trades))
}

// GenerateTitle handles POST /api/v1/chats/title.
func (h *AIHandler) GenerateTitle(c *gin.Context) {
	var req model.TitleGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, model.TitleResponse{Title: h.ai.GenerateTitle(c.Request.Context(), req.Messages)})
}
