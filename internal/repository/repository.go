package repository

import (
	"context"
	"errors"
	"time"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/lib/pq"
)

// ArticleRepository defines the interface for article data operations.
// Lookups return (nil, nil) when no row matches; the service layer maps
// that to models.ErrNotFound.
type ArticleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	Update(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	GetBySlug(ctx context.Context, slug string) (*models.Article, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]*models.Article, int, error)
	Count(ctx context.Context) (int, error)
	IncrementViewCount(ctx context.Context, id string) error
	StreamAll(ctx context.Context, ids []string, callback func(*models.Article) error) error
}

// VersionRepository defines the interface for the append-only version store.
type VersionRepository interface {
	Append(ctx context.Context, snapshot *models.VersionSnapshot) error
	GetByID(ctx context.Context, id string) (*models.VersionSnapshot, error)
	ListByArticle(ctx context.Context, articleID string) ([]*models.VersionSnapshot, error)
	NextSequence(ctx context.Context, articleID string) (int, error)
}

// AuditRepository defines the interface for the append-only audit log.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditEntry) error
	Query(ctx context.Context, filter models.AuditFilter, offset, limit int) ([]*models.AuditEntry, int, error)
	CountSince(ctx context.Context, since time.Time) (int, error)
	CountByAction(ctx context.Context) (map[string]int, error)
	CountByEntity(ctx context.Context) (map[string]int, error)
	Count(ctx context.Context) (int, error)
}

// Repositories holds all repository interfaces
type Repositories struct {
	Article ArticleRepository
	Version VersionRepository
	Audit   AuditRepository
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	return &Repositories{
		Article: NewArticleRepo(db),
		Version: NewVersionRepo(db),
		Audit:   NewAuditRepo(db),
	}
}

// IsUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation (SQLSTATE 23505). The article save path treats a slug collision
// at write time as a signal to retry slug resolution, not as a failure.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
