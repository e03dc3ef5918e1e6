package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/content-lifecycle-api/internal/slug"
	"github.com/content-lifecycle-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// articleService is the concrete implementation of ArticleService
type articleService struct {
	repos *repository.Repositories
	audit AuditService
	log   zerolog.Logger
}

// newArticleService creates a new ArticleService
func newArticleService(repos *repository.Repositories, audit AuditService, log zerolog.Logger) *articleService {
	return &articleService{
		repos: repos,
		audit: audit,
		log:   log.With().Str("service", "article").Logger(),
	}
}

// ensureUniqueSlug resolves candidate against the store, appending numeric
// suffixes (-2, -3, ...) until no other article holds the slug. The match
// identified by excludeID is ignored so an in-place edit keeps its slug.
// The suffix keyspace is unbounded, so the loop always terminates.
func (s *articleService) ensureUniqueSlug(ctx context.Context, candidate, excludeID string) (string, error) {
	resolved := candidate
	for suffix := 2; ; suffix++ {
		existing, err := s.repos.Article.GetBySlug(ctx, resolved)
		if err != nil {
			return "", err
		}
		if existing == nil || existing.ID == excludeID {
			return resolved, nil
		}
		resolved = fmt.Sprintf("%s-%d", candidate, suffix)
	}
}

// Create persists a new article. Slug resolution and the insert race under
// concurrent creation of same-titled articles; a unique violation on insert
// re-runs resolution rather than failing.
func (s *articleService) Create(ctx context.Context, actorID string, draft models.ArticleDraft) (*models.Article, error) {
	draft.Tags = validation.NormalizeTags(draft.Tags)
	if errs := validation.ValidateDraft(&draft); len(errs) > 0 {
		return nil, errs
	}

	now := time.Now()
	article := &models.Article{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Description: draft.Description,
		Body:        draft.Body,
		Tags:        draft.Tags,
		Published:   draft.Published,
		Featured:    draft.Featured,
		AuthorID:    actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.Published {
		article.PublishedAt = &now
	}

	base := slug.Make(draft.Title)
	for {
		resolved, err := s.ensureUniqueSlug(ctx, base, "")
		if err != nil {
			return nil, err
		}
		article.Slug = resolved

		err = s.repos.Article.Create(ctx, article)
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) {
			// Lost the check-then-insert race; resolve again.
			s.log.Debug().Str("slug", resolved).Msg("Slug collided at insert, retrying resolution")
			continue
		}
		return nil, err
	}

	if err := s.recordHistory(ctx, article, actorID, models.ActionCreate, nil); err != nil {
		return nil, err
	}

	s.log.Info().Str("article_id", article.ID).Str("slug", article.Slug).Msg("Article created")
	return article, nil
}

// Save applies a draft to an existing article. Equal content is a no-op:
// no write, no snapshot, no audit entry. The slug is re-resolved only when
// the title changed.
func (s *articleService) Save(ctx context.Context, articleID, actorID string, draft models.ArticleDraft) (*models.Article, error) {
	draft.Tags = validation.NormalizeTags(draft.Tags)
	if errs := validation.ValidateDraft(&draft); len(errs) > 0 {
		return nil, errs
	}

	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.ErrNotFound
	}

	if article.Draft().Equal(draft) {
		return article, nil
	}

	titleChanged := article.Title != draft.Title
	article.Title = draft.Title
	article.Description = draft.Description
	article.Body = draft.Body
	article.Tags = draft.Tags
	article.Featured = draft.Featured
	if draft.Published && !article.Published && article.PublishedAt == nil {
		now := time.Now()
		article.PublishedAt = &now
	}
	article.Published = draft.Published
	article.UpdatedAt = time.Now()

	base := article.Slug
	if titleChanged {
		base = slug.Make(draft.Title)
	}
	for {
		resolved, err := s.ensureUniqueSlug(ctx, base, articleID)
		if err != nil {
			return nil, err
		}
		article.Slug = resolved

		err = s.repos.Article.Update(ctx, article)
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) {
			s.log.Debug().Str("slug", resolved).Msg("Slug collided at update, retrying resolution")
			continue
		}
		return nil, err
	}

	if err := s.recordHistory(ctx, article, actorID, models.ActionUpdate, nil); err != nil {
		return nil, err
	}

	return article, nil
}

// Get retrieves an article by id and counts the view
func (s *articleService) Get(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repos.Article.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.ErrNotFound
	}
	if err := s.repos.Article.IncrementViewCount(ctx, id); err != nil {
		s.log.Warn().Err(err).Str("article_id", id).Msg("View count increment failed")
	} else {
		article.ViewCount++
	}
	return article, nil
}

// GetBySlug retrieves an article by slug
func (s *articleService) GetBySlug(ctx context.Context, slugStr string) (*models.Article, error) {
	article, err := s.repos.Article.GetBySlug(ctx, slugStr)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.ErrNotFound
	}
	return article, nil
}

// List returns a page of articles, newest update first
func (s *articleService) List(ctx context.Context, page, limit int) ([]*models.Article, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.repos.Article.List(ctx, (page-1)*limit, limit)
}

// Delete removes an article and records the deletion. Version snapshots and
// audit entries are retained: both stores are append-only.
func (s *articleService) Delete(ctx context.Context, articleID, actorID string) error {
	if err := s.repos.Article.Delete(ctx, articleID); err != nil {
		return err
	}
	return s.audit.Record(ctx, actorID, models.ActionDelete, models.EntityArticle, articleID, nil)
}

// LoadDraft returns the persisted content of an article, used as the
// last-saved baseline when an autosave session opens.
func (s *articleService) LoadDraft(ctx context.Context, articleID string) (models.ArticleDraft, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return models.ArticleDraft{}, err
	}
	if article == nil {
		return models.ArticleDraft{}, models.ErrNotFound
	}
	return article.Draft(), nil
}

// ListVersions returns the article's snapshots, oldest first
func (s *articleService) ListVersions(ctx context.Context, articleID string) ([]*models.VersionSnapshot, error) {
	article, err := s.repos.Article.GetByID(ctx, articleID)
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, models.ErrNotFound
	}
	return s.repos.Version.ListByArticle(ctx, articleID)
}

// Restore copies a historical snapshot's content back onto the live
// article. The restore runs through the normal save path, so it produces a
// fresh snapshot and audit entry of its own; history never loses the fact
// that a restore happened.
func (s *articleService) Restore(ctx context.Context, articleID, versionID, actorID string) (*models.Article, error) {
	version, err := s.repos.Version.GetByID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	if version == nil || version.ArticleID != articleID {
		return nil, models.ErrNotFound
	}

	article, err := s.Save(ctx, articleID, actorID, version.Draft())
	if err != nil {
		return nil, err
	}

	// Save already recorded article.update; add the restore marker so the
	// trail shows which snapshot the content came from.
	err = s.audit.Record(ctx, actorID, models.ActionRestore, models.EntityVersion, versionID, map[string]string{
		"article_id": articleID,
		"sequence":   strconv.Itoa(version.Sequence),
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("article_id", articleID).
		Int("sequence", version.Sequence).
		Msg("Article restored from snapshot")
	return article, nil
}

// recordHistory appends the version snapshot and audit entry for an
// accepted save. Failures are surfaced: the enclosing operation is not
// committed until its history writes land.
func (s *articleService) recordHistory(ctx context.Context, article *models.Article, actorID, action string, metadata map[string]string) error {
	sequence, err := s.repos.Version.NextSequence(ctx, article.ID)
	if err != nil {
		return fmt.Errorf("version sequence: %w", err)
	}

	snapshot := &models.VersionSnapshot{
		ID:          uuid.New().String(),
		ArticleID:   article.ID,
		Sequence:    sequence,
		Title:       article.Title,
		Description: article.Description,
		Body:        article.Body,
		Tags:        article.Tags,
		Published:   article.Published,
		Featured:    article.Featured,
		ActorID:     actorID,
		CreatedAt:   time.Now(),
	}
	if err := s.repos.Version.Append(ctx, snapshot); err != nil {
		s.log.Error().Err(err).Str("article_id", article.ID).Msg("Version snapshot write failed")
		return fmt.Errorf("version snapshot: %w", err)
	}

	return s.audit.Record(ctx, actorID, action, models.EntityArticle, article.ID, metadata)
}
