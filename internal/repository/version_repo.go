package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
)

// versionRepo is the concrete implementation of VersionRepository
type versionRepo struct {
	db *database.DB
}

// NewVersionRepo creates a new version repository
func NewVersionRepo(db *database.DB) VersionRepository {
	return &versionRepo{db: db}
}

const versionColumns = `id, article_id, sequence, title, description, body, tags, published, featured, actor_id, created_at`

// Append inserts a snapshot. The version store is append-only: there is no
// update or delete path.
func (r *versionRepo) Append(ctx context.Context, snapshot *models.VersionSnapshot) error {
	tagsJSON := marshalTags(snapshot.Tags)

	query := `
		INSERT INTO article_versions (id, article_id, sequence, title, description, body, tags, published, featured, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		snapshot.ID, snapshot.ArticleID, snapshot.Sequence, snapshot.Title,
		snapshot.Description, snapshot.Body, tagsJSON, snapshot.Published,
		snapshot.Featured, snapshot.ActorID, snapshot.CreatedAt,
	)
	return err
}

// GetByID retrieves a snapshot by ID
func (r *versionRepo) GetByID(ctx context.Context, id string) (*models.VersionSnapshot, error) {
	query := `SELECT ` + versionColumns + ` FROM article_versions WHERE id = $1`

	snapshot, err := r.scanRow(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ListByArticle returns all snapshots for an article in creation order,
// oldest first. Restartable: repeated calls return consistent results
// absent new writes.
func (r *versionRepo) ListByArticle(ctx context.Context, articleID string) ([]*models.VersionSnapshot, error) {
	query := `SELECT ` + versionColumns + ` FROM article_versions WHERE article_id = $1 ORDER BY sequence ASC`

	rows, err := r.db.QueryContext(ctx, query, articleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snapshots []*models.VersionSnapshot
	for rows.Next() {
		snapshot, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, rows.Err()
}

// NextSequence returns the next monotonic sequence number for an article
func (r *versionRepo) NextSequence(ctx context.Context, articleID string) (int, error) {
	var next int
	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(sequence), 0) + 1 FROM article_versions WHERE article_id = $1",
		articleID,
	).Scan(&next)
	return next, err
}

func (r *versionRepo) scanRow(s scanner) (*models.VersionSnapshot, error) {
	var snapshot models.VersionSnapshot
	var tagsJSON []byte

	err := s.Scan(
		&snapshot.ID, &snapshot.ArticleID, &snapshot.Sequence, &snapshot.Title,
		&snapshot.Description, &snapshot.Body, &tagsJSON, &snapshot.Published,
		&snapshot.Featured, &snapshot.ActorID, &snapshot.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	json.Unmarshal(tagsJSON, &snapshot.Tags)
	return &snapshot, nil
}
