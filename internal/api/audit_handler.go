package api

import (
	"net/http"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuditHandler handles audit trail endpoints
type AuditHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(services *service.Services, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		services: services,
		log:      log.With().Str("handler", "audit").Logger(),
	}
}

// Query handles GET /v1/audit?action=...&entity_type=...&from=...&to=...
// Filters are conjunctive; results are newest first with offset pagination.
func (h *AuditHandler) Query(c *gin.Context) {
	filter := models.AuditFilter{
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be RFC 3339"})
			return
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be RFC 3339"})
			return
		}
		filter.To = &t
	}

	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	entries, total, err := h.services.Audit.Query(c.Request.Context(), filter, page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"total":   total,
		"page":    page,
	})
}

// Stats handles GET /v1/audit/stats?window=24h
func (h *AuditHandler) Stats(c *gin.Context) {
	var window time.Duration
	if raw := c.Query("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "window must be a duration like 24h"})
			return
		}
		window = parsed
	}

	stats, err := h.services.Audit.Stats(c.Request.Context(), window)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
