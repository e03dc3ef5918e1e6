package service

import (
	"context"
	"io"
	"time"

	"github.com/content-lifecycle-api/internal/config"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/content-lifecycle-api/internal/repository"
	"github.com/rs/zerolog"
)

// ArticleService is the write path of the lifecycle core. Every accepted
// save resolves the slug, persists the article, appends a version snapshot
// and records an audit entry.
type ArticleService interface {
	Create(ctx context.Context, actorID string, draft models.ArticleDraft) (*models.Article, error)
	Save(ctx context.Context, articleID, actorID string, draft models.ArticleDraft) (*models.Article, error)
	Get(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	List(ctx context.Context, page, limit int) ([]*models.Article, int, error)
	Delete(ctx context.Context, articleID, actorID string) error
	LoadDraft(ctx context.Context, articleID string) (models.ArticleDraft, error)
	ListVersions(ctx context.Context, articleID string) ([]*models.VersionSnapshot, error)
	Restore(ctx context.Context, articleID, versionID, actorID string) (*models.Article, error)
}

// AuditService records and reads the append-only audit trail.
type AuditService interface {
	Record(ctx context.Context, actorID, action, entityType, entityID string, metadata map[string]string) error
	Query(ctx context.Context, filter models.AuditFilter, page, limit int) ([]*models.AuditEntry, int, error)
	Stats(ctx context.Context, window time.Duration) (*models.AuditStats, error)
}

// ExportService streams stored articles to an external format.
type ExportService interface {
	Export(ctx context.Context, w io.Writer, format string, ids []string, actorID string) (int, error)
}

// ImportService parses the structured export format and persists each valid
// candidate independently.
type ImportService interface {
	Import(ctx context.Context, r io.Reader, actorID string) (*models.ImportResult, error)
}

// Services holds all service interfaces
type Services struct {
	Article ArticleService
	Audit   AuditService
	Export  ExportService
	Import  ImportService
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger) *Services {
	auditSvc := newAuditService(repos.Audit, cfg.Audit.RecentWindow, log)
	articleSvc := newArticleService(repos, auditSvc, log)
	exportSvc := newExportService(repos, auditSvc, log)
	importSvc := newImportService(repos, auditSvc, cfg, log)

	return &Services{
		Article: articleSvc,
		Audit:   auditSvc,
		Export:  exportSvc,
		Import:  importSvc,
	}
}
