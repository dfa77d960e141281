package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/crivus/quiziq/internal/api/middleware"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler, authCfg middleware.AuthConfig) {
	// Health check endpoint (no auth, no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Event ingestion (open, origin and rate checks happen in the pipeline)
		v1.POST("/collect", handler.Collect)

		// Everything below requires an authenticated principal
		auth := v1.Group("", middleware.Auth(authCfg))

		// Aggregated statistics
		auth.GET("/stats/overview", handler.GetOverview)
		auth.GET("/stats/top-pages", handler.GetTopPages)
		auth.GET("/stats/dropoff", handler.GetDropoff)
		auth.GET("/stats/utm", handler.GetUTM)

		// Tracker lifecycle
		auth.GET("/trackers", handler.ListTrackers)
		auth.POST("/trackers", handler.CreateTracker)
		auth.GET("/trackers/:id", handler.GetTracker)
		auth.PATCH("/trackers/:id", handler.UpdateTracker)
		auth.DELETE("/trackers/:id", handler.DeleteTracker)
		auth.POST("/trackers/:id/revoke", handler.RevokeTracker)

		// Captured leads
		auth.GET("/leads/list", handler.ListLeads)
		auth.GET("/leads/export", handler.ExportLeadsCSV)

		// Report exports
		auth.POST("/export/pdf", handler.ExportPDF)
		auth.POST("/export/txt", handler.ExportTXT)

		// Platform policy (admin only, enforced in the handler)
		auth.GET("/policies", handler.GetPolicy)
		auth.PATCH("/policies", handler.UpdatePolicy)
	}
}
