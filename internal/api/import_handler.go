package api

import (
	"net/http"
	"strings"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ImportHandler handles import endpoints
type ImportHandler struct {
	services *service.Services
	cfg      *config.Config
	log      zerolog.Logger
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(services *service.Services, cfg *config.Config, log zerolog.Logger) *ImportHandler {
	return &ImportHandler{
		services: services,
		cfg:      cfg,
		log:      log.With().Str("handler", "import").Logger(),
	}
}

// CreateImport handles POST /v1/imports. The body is the structured NDJSON
// export format, either raw or as a multipart "file" field. Responds with
// the imported count and the per-item error list; partial failure is a
// normal outcome, not an error status.
func (h *ImportHandler) CreateImport(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if c.Request.ContentLength > h.cfg.Import.MaxUploadSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload exceeds maximum size"})
		return
	}

	body := c.Request.Body
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		file, _, err := c.Request.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart upload requires a 'file' field"})
			return
		}
		defer file.Close()
		body = file
	}

	result, err := h.services.Import.Import(c.Request.Context(), body, actor)
	if err != nil {
		h.log.Error().Err(err).Msg("Import failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	c.JSON(http.StatusOK, result)
}
