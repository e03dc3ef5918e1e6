package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/content-lifecycle-api/internal/database"
	"github.com/content-lifecycle-api/internal/models"
)

// auditRepo is the concrete implementation of AuditRepository
type auditRepo struct {
	db *database.DB
}

// NewAuditRepo creates a new audit repository
func NewAuditRepo(db *database.DB) AuditRepository {
	return &auditRepo{db: db}
}

// Insert appends an audit entry. The audit log is append-only.
func (r *auditRepo) Insert(ctx context.Context, entry *models.AuditEntry) error {
	metadataJSON := []byte("{}")
	if entry.Metadata != nil {
		metadataJSON, _ = json.Marshal(entry.Metadata)
	}

	query := `
		INSERT INTO audit_entries (id, actor_id, action, entity_type, entity_id, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.ActorID, entry.Action, entry.EntityType, entry.EntityID,
		metadataJSON, entry.CreatedAt,
	)
	return err
}

// Query returns a page of entries matching the filter, newest first, plus
// the total match count. Filter fields are conjunctive.
func (r *auditRepo) Query(ctx context.Context, filter models.AuditFilter, offset, limit int) ([]*models.AuditEntry, int, error) {
	where, args := buildAuditWhere(filter)

	var total int
	countQuery := "SELECT COUNT(*) FROM audit_entries" + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(
		"SELECT id, actor_id, action, entity_type, entity_id, metadata, created_at FROM audit_entries%s ORDER BY created_at DESC OFFSET $%d LIMIT $%d",
		where, len(args)+1, len(args)+2,
	)
	args = append(args, offset, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []*models.AuditEntry
	for rows.Next() {
		var entry models.AuditEntry
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID, &entry.ActorID, &entry.Action, &entry.EntityType,
			&entry.EntityID, &metadataJSON, &entry.CreatedAt,
		)
		if err != nil {
			return nil, 0, err
		}
		json.Unmarshal(metadataJSON, &entry.Metadata)
		entries = append(entries, &entry)
	}
	return entries, total, rows.Err()
}

// Count returns the total number of audit entries
func (r *auditRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_entries").Scan(&count)
	return count, err
}

// CountSince returns the number of entries recorded at or after since
func (r *auditRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_entries WHERE created_at >= $1", since,
	).Scan(&count)
	return count, err
}

// CountByAction aggregates entry counts per action kind
func (r *auditRepo) CountByAction(ctx context.Context) (map[string]int, error) {
	return r.countGrouped(ctx, "action")
}

// CountByEntity aggregates entry counts per entity kind
func (r *auditRepo) CountByEntity(ctx context.Context) (map[string]int, error) {
	return r.countGrouped(ctx, "entity_type")
}

func (r *auditRepo) countGrouped(ctx context.Context, column string) (map[string]int, error) {
	query := fmt.Sprintf("SELECT %s, COUNT(*) FROM audit_entries GROUP BY %s", column, column)
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}
	return counts, rows.Err()
}

// buildAuditWhere assembles the conjunctive WHERE clause for a filter
func buildAuditWhere(filter models.AuditFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	add := func(clause string, arg interface{}) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.Action != "" {
		add("action = $%d", filter.Action)
	}
	if filter.EntityType != "" {
		add("entity_type = $%d", filter.EntityType)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	where := " WHERE " + clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}
