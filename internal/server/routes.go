// Package server configures the HTTP server and routes.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tradescribe/ai-service/internal/config"
	"github.com/tradescribe/ai-service/internal/handler"
	"github.com/tradescribe/ai-service/internal/middleware"
	"github.com/tradescribe/ai-service/internal/service"
	"github.com/tradescribe/ai-service/internal/storage"
)

// Deps carries the constructed dependencies into route registration.
// Dependencies are passed explicitly — no container, no globals.
type Deps struct {
	AI    *service.AIService
	Calls storage.CallRepository
}

// RegisterRoutes sets up all HTTP routes on the Gin engine.
func RegisterRoutes(r *gin.Engine, cfg *config.Config, deps Deps, logger *zap.Logger) {
	healthHandler := handler.NewHealthHandler(deps.AI.Provider(), deps.AI.Configured())
	aiHandler := handler.NewAIHandler(deps.AI, logger)
	adminHandler := handler.NewAdminHandler(deps.Calls, logger)

	// Health stays public and unauthenticated so probes work even when the
	// provider selection is broken.
	r.GET("/healthz", healthHandler.Healthz)

	api := r.Group("/api/v1")
	api.Use(middleware.CORS(cfg.CORS.AllowedOrigins))

	authed := api.Group("")
	authed.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	authed.Use(middleware.RateLimit(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst))
	{
		authed.POST("/chat/process", aiHandler.ProcessChat)
		authed.POST("/trades/extract", aiHandler.ExtractTrade)
		authed.POST("/trades/analyze", aiHandler.AnalyzeTrades)
		authed.POST("/chats/title", aiHandler.GenerateTitle)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminKeyAuth(cfg.Auth.AdminKeys))
	{
		admin.GET("/stats", adminHandler.Stats)
	}
}
