package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ExportHandler handles export endpoints
type ExportHandler struct {
	services *service.Services
	log      zerolog.Logger
}

// NewExportHandler creates a new ExportHandler
func NewExportHandler(services *service.Services, log zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		services: services,
		log:      log.With().Str("handler", "export").Logger(),
	}
}

// StreamExport handles GET /v1/exports?format=...&ids=...
// Streams the export directly to the response
func (h *ExportHandler) StreamExport(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	format := c.DefaultQuery("format", service.FormatNDJSON)
	switch format {
	case service.FormatNDJSON:
		c.Header("Content-Type", "application/x-ndjson")
		c.Header("Content-Disposition", "attachment; filename=articles.ndjson")
	case service.FormatMarkdown:
		c.Header("Content-Type", "text/markdown; charset=utf-8")
		c.Header("Content-Disposition", "attachment; filename=articles.md")
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be one of: ndjson, markdown"})
		return
	}

	var ids []string
	if raw := c.Query("ids"); raw != "" {
		ids = strings.Split(raw, ",")
	}

	count, err := h.services.Export.Export(c.Request.Context(), c.Writer, format, ids, actor)
	if err != nil {
		h.log.Error().Err(err).Str("format", format).Msg("Export failed")
		// Can't return error JSON after streaming has started
		return
	}
	h.log.Info().Str("format", format).Int("count", count).Msg("Export streamed")
}

// intQuery parses an integer query parameter with a default
func intQuery(c *gin.Context, key string, defaultValue int) int {
	if raw := c.Query(key); raw != "" {
		if val, err := strconv.Atoi(raw); err == nil {
			return val
		}
	}
	return defaultValue
}
