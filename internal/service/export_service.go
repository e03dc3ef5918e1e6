package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Export formats.
const (
	// FormatNDJSON is the structured format: one self-describing JSON
	// record per article, lossless for every content-bearing field, the
	// format the import pipeline parses back.
	FormatNDJSON = "ndjson"
	// FormatMarkdown is the human-readable format: YAML frontmatter, a
	// heading and the body. Editable and portable, not losslessly
	// reparseable.
	FormatMarkdown = "markdown"
)

// exportService is the concrete implementation of ExportService
type exportService struct {
	repos *repository.Repositories
	audit AuditService
	log   zerolog.Logger
}

// newExportService creates a new ExportService
func newExportService(repos *repository.Repositories, audit AuditService, log zerolog.Logger) *exportService {
	return &exportService{
		repos: repos,
		audit: audit,
		log:   log.With().Str("service", "export").Logger(),
	}
}

// Export streams articles to w in the requested format, ordered by update
// time descending. An empty ids slice exports everything. Returns the
// number of articles written.
func (s *exportService) Export(ctx context.Context, w io.Writer, format string, ids []string, actorID string) (int, error) {
	var count int
	var err error

	switch format {
	case FormatNDJSON:
		count, err = s.exportNDJSON(ctx, w, ids)
	case FormatMarkdown:
		count, err = s.exportMarkdown(ctx, w, ids)
	default:
		return 0, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return count, err
	}

	if err := s.audit.Record(ctx, actorID, models.ActionExport, models.EntityArticle, "", map[string]string{
		"format": format,
		"count":  strconv.Itoa(count),
	}); err != nil {
		return count, err
	}

	s.log.Info().Str("format", format).Int("count", count).Msg("Export completed")
	return count, nil
}

func (s *exportService) exportNDJSON(ctx context.Context, w io.Writer, ids []string) (int, error) {
	count := 0
	err := s.repos.Article.StreamAll(ctx, ids, func(article *models.Article) error {
		record := models.ArticleRecord{
			Title:       article.Title,
			Description: article.Description,
			Body:        article.Body,
			AuthorID:    article.AuthorID,
			Tags:        article.Tags,
			Published:   article.Published,
			Featured:    article.Featured,
		}
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
		if _, err := w.Write([]byte("\n")); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}

// markdownMeta is the frontmatter block of the human-readable format.
// Publication state is carried best-effort; the format is not archival.
type markdownMeta struct {
	Title     string   `yaml:"title"`
	Slug      string   `yaml:"slug"`
	Author    string   `yaml:"author,omitempty"`
	Tags      []string `yaml:"tags,omitempty"`
	Published bool     `yaml:"published"`
}

func (s *exportService) exportMarkdown(ctx context.Context, w io.Writer, ids []string) (int, error) {
	count := 0
	err := s.repos.Article.StreamAll(ctx, ids, func(article *models.Article) error {
		meta := markdownMeta{
			Title:     article.Title,
			Slug:      article.Slug,
			Author:    article.AuthorID,
			Tags:      article.Tags,
			Published: article.Published,
		}
		frontmatter, err := yaml.Marshal(meta)
		if err != nil {
			return err
		}

		if count > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, "---\n"); err != nil {
			return err
		}
		if _, err := w.Write(frontmatter); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "---\n\n# "+article.Title+"\n\n"); err != nil {
			return err
		}
		if article.Description != "" {
			if _, err := io.WriteString(w, "> "+article.Description+"\n\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, article.Body+"\n"); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}
