// Package handler contains the Gin HTTP request handlers.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler reports service status and the active provider. When the
// configured provider selection was unrecognized, the service boots anyway
// with a stub backend and reports degraded here — a health probe can tell
// "up but useless" apart from "down".
type HealthHandler struct {
	provider   string
	configured bool
}

// NewHealthHandler creates a HealthHandler for the selected provider.
func NewHealthHandler(provider string, configured bool) *HealthHandler {
	return &HealthHandler{provider: provider, configured: configured}
}

// Healthz responds with service status and the selected provider.
func (h *HealthHandler) Healthz(c *gin.Context) {
	status := "ok"
	if !h.configured {
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"provider": h.provider,
	})
}
