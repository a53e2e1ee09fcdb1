package http

import (
	"github.com/gin-gonic/gin"
	"github.com/motospec/backend/config"
	"github.com/rs/zerolog"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler, logger zerolog.Logger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(RequestIDMiddleware())
	router.Use(LoggerMiddleware(logger))
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	if cfg.RateLimit.PerIP > 0 {
		v1.Use(RateLimitMiddleware(cfg.RateLimit.PerIP))
	}
	{
		models := v1.Group("/models")
		{
			models.GET("/similar", handler.SimilarModels)
			models.POST("/fetch", handler.FetchModel)
		}

		similarity := v1.Group("/similarity")
		{
			similarity.POST("/compare", handler.CompareRecord)
			similarity.GET("/matrix", handler.SimilarityMatrix)
		}

		catalog := v1.Group("/catalog")
		{
			catalog.POST("/records", handler.AppendRecord)
		}
	}

	return router
}
