package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/storage"
)

// AdminHandler serves operational endpoints behind the admin key.
type AdminHandler struct {
	calls  storage.CallRepository
	logger *zap.Logger
}

// NewAdminHandler creates an AdminHandler over the call-log repository.
func NewAdminHandler(calls storage.CallRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{calls: calls, logger: logger}
}

// Stats handles GET /api/v1/admin/stats with aggregate provider-call counts.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.calls.Stats(c.Request.Context())
	if err != nil {
		h.logger.Error("fetching call stats", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}
