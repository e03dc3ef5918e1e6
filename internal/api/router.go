package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/content-lifecycle-api/internal/autosave"
	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// NewRouter creates and configures the Gin router
func NewRouter(services *service.Services, sessions *autosave.Manager, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware())

	// Handlers
	articleHandler := NewArticleHandler(services, sessions, log)
	exportHandler := NewExportHandler(services, log)
	importHandler := NewImportHandler(services, cfg, log)
	auditHandler := NewAuditHandler(services, log)

	// Health check
	router.GET("/health", healthCheck)
	router.GET("/metrics", metricsHandler(services, sessions))

	// API v1
	v1 := router.Group("/v1")
	{
		articles := v1.Group("/articles")
		{
			articles.POST("", articleHandler.Create)
			articles.GET("", articleHandler.List)
			articles.GET("/:id", articleHandler.Get)
			articles.PUT("/:id", articleHandler.Save)
			articles.DELETE("/:id", articleHandler.Delete)

			articles.POST("/:id/autosave", articleHandler.AutosaveEdit)
			articles.DELETE("/:id/autosave", articleHandler.AutosaveClose)

			articles.GET("/:id/versions", articleHandler.ListVersions)
			articles.POST("/:id/versions/:version_id/restore", articleHandler.Restore)
		}

		exports := v1.Group("/exports")
		{
			exports.GET("", exportHandler.StreamExport)
		}

		imports := v1.Group("/imports")
		{
			imports.POST("", importHandler.CreateImport)
		}

		audit := v1.Group("/audit")
		{
			audit.GET("", auditHandler.Query)
			audit.GET("/stats", auditHandler.Stats)
		}
	}

	return router
}

// healthCheck returns the health status
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"service":   "content-lifecycle-api",
	})
}

// metricsHandler returns store and session counters
func metricsHandler(services *service.Services, sessions *autosave.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		_, articleCount, _ := services.Article.List(ctx, 1, 1)
		stats, _ := services.Audit.Stats(ctx, 0)

		payload := gin.H{
			"articles":          articleCount,
			"autosave_sessions": sessions.OpenSessions(),
			"timestamp":         time.Now().Format(time.RFC3339),
		}
		if stats != nil {
			payload["audit_entries"] = stats.Total
		}
		c.JSON(http.StatusOK, payload)
	}
}

// actorID extracts the authenticated actor identity supplied by the
// upstream auth layer. Mutating endpoints refuse requests without one.
func actorID(c *gin.Context) (string, bool) {
	actor := c.GetHeader("X-Actor-Id")
	if actor == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Actor-Id header is required"})
		return "", false
	}
	return actor, true
}

// handleServiceError translates the service error taxonomy to HTTP
func handleServiceError(c *gin.Context, err error) {
	var validationErrs models.ValidationErrors
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":  "validation failed",
			"fields": validationErrs,
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().Interface("error", err).Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Actor-Id, X-Actor-Role")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
