package service

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/content-lifecycle-api/internal/slug"
	"github.com/content-lifecycle-api/internal/validation"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// importService is the concrete implementation of ImportService
type importService struct {
	repos *repository.Repositories
	audit AuditService
	cfg   *config.Config
	log   zerolog.Logger
}

// newImportService creates a new ImportService
func newImportService(repos *repository.Repositories, audit AuditService, cfg *config.Config, log zerolog.Logger) *importService {
	return &importService{
		repos: repos,
		audit: audit,
		cfg:   cfg,
		log:   log.With().Str("service", "import").Logger(),
	}
}

// Import parses the structured NDJSON format from r and persists each valid
// candidate as a new article. Candidates succeed or fail independently: a
// parse or validation failure is collected into the result's error list,
// identified by line and title, and never aborts the remaining candidates.
// Imports always create new documents with fresh identity and timestamps;
// they record an audit entry but no version snapshot, since an imported
// item has no prior revision.
func (s *importService) Import(ctx context.Context, r io.Reader, actorID string) (*models.ImportResult, error) {
	scanner := bufio.NewScanner(r)
	// Allow long bodies on one NDJSON line.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, s.cfg.Import.MaxLineSize)

	result := &models.ImportResult{}
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		var record models.ArticleRecord
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d: invalid JSON: %v", lineNum, err))
			continue
		}

		if err := s.importRecord(ctx, &record, actorID); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("line %d (%s): %v", lineNum, titleOrPlaceholder(record.Title), err))
			continue
		}
		result.Imported++
	}
	if err := scanner.Err(); err != nil {
		return result, err
	}

	s.log.Info().
		Int("imported", result.Imported).
		Int("failed", len(result.Errors)).
		Msg("Import completed")
	return result, nil
}

// importRecord validates and persists one candidate. Slug resolution never
// reuses an existing slug: imports create, they do not overwrite.
func (s *importService) importRecord(ctx context.Context, record *models.ArticleRecord, actorID string) error {
	draft := models.ArticleDraft{
		Title:       record.Title,
		Description: record.Description,
		Body:        record.Body,
		Tags:        validation.NormalizeTags(record.Tags),
		Published:   record.Published,
		Featured:    record.Featured,
	}
	if errs := validation.ValidateDraft(&draft); len(errs) > 0 {
		return errs
	}

	authorID := record.AuthorID
	if authorID == "" {
		authorID = actorID
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
		AuthorID:    authorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if draft.Published {
		article.PublishedAt = &now
	}

	base := slug.Make(draft.Title)
	for {
		resolved, err := s.ensureUniqueSlug(ctx, base)
		if err != nil {
			return err
		}
		article.Slug = resolved

		err = s.repos.Article.Create(ctx, article)
		if err == nil {
			break
		}
		if repository.IsUniqueViolation(err) {
			continue
		}
		return err
	}

	return s.audit.Record(ctx, actorID, models.ActionImport, models.EntityArticle, article.ID, map[string]string{
		"slug": article.Slug,
	})
}

func (s *importService) ensureUniqueSlug(ctx context.Context, candidate string) (string, error) {
	resolved := candidate
	for suffix := 2; ; suffix++ {
		existing, err := s.repos.Article.GetBySlug(ctx, resolved)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return resolved, nil
		}
		resolved = fmt.Sprintf("%s-%d", candidate, suffix)
	}
}

func titleOrPlaceholder(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "untitled"
	}
	if len(title) > 60 {
		return title[:60] + "..."
	}
	return title
}
