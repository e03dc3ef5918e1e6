package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
	"github.com/lib/pq"
)

// articleRepo is the concrete implementation of ArticleRepository
type articleRepo struct {
	db *database.DB
}

// NewArticleRepo creates a new article repository
func NewArticleRepo(db *database.DB) ArticleRepository {
	return &articleRepo{db: db}
}

const articleColumns = `id, slug, title, description, body, author_id, tags, published, featured, view_count, published_at, created_at, updated_at`

// Create inserts a new article. A slug collision surfaces as a unique
// violation; callers detect it with IsUniqueViolation and retry resolution.
func (r *articleRepo) Create(ctx context.Context, article *models.Article) error {
	tagsJSON := marshalTags(article.Tags)

	query := `
		INSERT INTO articles (id, slug, title, description, body, author_id, tags, published, featured, view_count, published_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.db.ExecContext(ctx, query,
		article.ID, article.Slug, article.Title, article.Description, article.Body,
		article.AuthorID, tagsJSON, article.Published, article.Featured,
		article.ViewCount, article.PublishedAt, article.CreatedAt, article.UpdatedAt,
	)
	return err
}

// Update persists the mutable fields of an article
func (r *articleRepo) Update(ctx context.Context, article *models.Article) error {
	tagsJSON := marshalTags(article.Tags)

	query := `
		UPDATE articles SET
			slug = $1, title = $2, description = $3, body = $4, tags = $5,
			published = $6, featured = $7, published_at = $8, updated_at = $9
		WHERE id = $10
	`
	result, err := r.db.ExecContext(ctx, query,
		article.Slug, article.Title, article.Description, article.Body, tagsJSON,
		article.Published, article.Featured, article.PublishedAt, time.Now(), article.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// GetByID retrieves an article by ID
func (r *articleRepo) GetByID(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySlug retrieves an article by slug
func (r *articleRepo) GetBySlug(ctx context.Context, slug string) (*models.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE slug = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, slug))
}

// Delete removes an article
func (r *articleRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// List returns a page of articles ordered by update time descending, plus
// the total count for pagination.
func (r *articleRepo) List(ctx context.Context, offset, limit int) ([]*models.Article, int, error) {
	total, err := r.Count(ctx)
	if err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + articleColumns + ` FROM articles ORDER BY updated_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var articles []*models.Article
	for rows.Next() {
		article, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		articles = append(articles, article)
	}
	return articles, total, rows.Err()
}

// Count returns the total number of articles
func (r *articleRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&count)
	return count, err
}

// IncrementViewCount bumps the view counter without touching updated_at
func (r *articleRepo) IncrementViewCount(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, "UPDATE articles SET view_count = view_count + 1 WHERE id = $1", id)
	return err
}

// StreamAll streams articles for export, ordered by update time descending.
// An empty ids slice streams every article.
func (r *articleRepo) StreamAll(ctx context.Context, ids []string, callback func(*models.Article) error) error {
	query := `SELECT ` + articleColumns + ` FROM articles`
	args := []interface{}{}
	if len(ids) > 0 {
		query += ` WHERE id = ANY($1)`
		args = append(args, pq.Array(ids))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		article, err := r.scanRow(rows)
		if err != nil {
			return err
		}
		if err := callback(article); err != nil {
			return err
		}
	}
	return rows.Err()
}

// scanner abstracts *sql.Row and *sql.Rows for shared scanning code
type scanner interface {
	Scan(dest ...interface{}) error
}

func (r *articleRepo) scanOne(row *sql.Row) (*models.Article, error) {
	article, err := r.scanRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return article, nil
}

func (r *articleRepo) scanRow(s scanner) (*models.Article, error) {
	var article models.Article
	var tagsJSON []byte
	var publishedAt sql.NullTime

	err := s.Scan(
		&article.ID, &article.Slug, &article.Title, &article.Description, &article.Body,
		&article.AuthorID, &tagsJSON, &article.Published, &article.Featured,
		&article.ViewCount, &publishedAt, &article.CreatedAt, &article.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(tagsJSON, &article.Tags)
	if publishedAt.Valid {
		article.PublishedAt = &publishedAt.Time
	}
	return &article, nil
}

func marshalTags(tags []string) []byte {
	if tags == nil {
		return []byte("[]")
	}
	data, _ := json.Marshal(tags)
	return data
}
