package api

import (
	"net/http"

	"github.com/content-lifecycle-api/internal/autosave"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ArticleHandler handles article lifecycle endpoints
type ArticleHandler struct {
	services *service.Services
	sessions *autosave.Manager
	log      zerolog.Logger
}

// NewArticleHandler creates a new ArticleHandler
func NewArticleHandler(services *service.Services, sessions *autosave.Manager, log zerolog.Logger) *ArticleHandler {
	return &ArticleHandler{
		services: services,
		sessions: sessions,
		log:      log.With().Str("handler", "article").Logger(),
	}
}

// Create handles POST /v1/articles
func (h *ArticleHandler) Create(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var draft models.ArticleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	article, err := h.services.Article.Create(c.Request.Context(), actor, draft)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, article)
}

// Save handles PUT /v1/articles/:id
func (h *ArticleHandler) Save(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var draft models.ArticleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	article, err := h.services.Article.Save(c.Request.Context(), c.Param("id"), actor, draft)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// Get handles GET /v1/articles/:id
func (h *ArticleHandler) Get(c *gin.Context) {
	article, err := h.services.Article.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}

// List handles GET /v1/articles
func (h *ArticleHandler) List(c *gin.Context) {
	page := intQuery(c, "page", 1)
	limit := intQuery(c, "limit", 20)

	articles, total, err := h.services.Article.List(c.Request.Context(), page, limit)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"total":    total,
		"page":     page,
	})
}

// Delete handles DELETE /v1/articles/:id
func (h *ArticleHandler) Delete(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	if err := h.services.Article.Delete(c.Request.Context(), c.Param("id"), actor); err != nil {
		handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// AutosaveEdit handles POST /v1/articles/:id/autosave. Each call is one
// edit event; the scheduler decides when the draft actually persists.
func (h *ArticleHandler) AutosaveEdit(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	var draft models.ArticleDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.sessions.Edit(c.Request.Context(), c.Param("id"), actor, draft); err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

// AutosaveClose handles DELETE /v1/articles/:id/autosave. The session gets
// a final flush; a flush failure is surfaced so the client can warn the
// user about unsaved work.
func (h *ArticleHandler) AutosaveClose(c *gin.Context) {
	if _, ok := actorID(c); !ok {
		return
	}

	if err := h.sessions.Close(c.Request.Context(), c.Param("id")); err != nil {
		h.log.Error().Err(err).Str("article_id", c.Param("id")).Msg("Final autosave flush failed")
		c.JSON(http.StatusConflict, gin.H{"error": "final save failed, recent edits were not persisted"})
		return
	}
	c.Status(http.StatusNoContent)
}

// ListVersions handles GET /v1/articles/:id/versions
func (h *ArticleHandler) ListVersions(c *gin.Context) {
	versions, err := h.services.Article.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"versions": versions,
		"total":    len(versions),
	})
}

// Restore handles POST /v1/articles/:id/versions/:version_id/restore
func (h *ArticleHandler) Restore(c *gin.Context) {
	actor, ok := actorID(c)
	if !ok {
		return
	}

	article, err := h.services.Article.Restore(c.Request.Context(), c.Param("id"), c.Param("version_id"), actor)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, article)
}
