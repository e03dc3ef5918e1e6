package models

import (
	"time"
)

// Audit action kinds recorded by the lifecycle core.
const (
	ActionCreate  = "article.create"
	ActionUpdate  = "article.update"
	ActionRestore = "article.restore"
	ActionImport  = "article.import"
	ActionExport  = "article.export"
	ActionDelete  = "article.delete"
)

// Audit entity kinds.
const (
	EntityArticle = "article"
	EntityVersion = "version"
)

// AuditEntry is an immutable record of an actor action on an entity.
// Entries are appended synchronously with the mutating operation they
// describe and are never updated or deleted.
type AuditEntry struct {
	ID         string            `json:"id" db:"id"`
	ActorID    string            `json:"actor_id" db:"actor_id"`
	Action     string            `json:"action" db:"action"`
	EntityType string            `json:"entity_type" db:"entity_type"`
	EntityID   string            `json:"entity_id" db:"entity_id"`
	Metadata   map[string]string `json:"metadata,omitempty" db:"-"` // Stored as JSON string in DB
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// AuditFilter narrows an audit query. All set fields apply conjunctively.
type AuditFilter struct {
	Action     string
	EntityType string
	From       *time.Time
	To         *time.Time
}

// AuditStats aggregates the audit log for dashboards.
type AuditStats struct {
	Total    int            `json:"total"`
	Recent   int            `json:"recent"` // entries within the trailing window
	ByAction map[string]int `json:"by_action"`
	ByEntity map[string]int `json:"by_entity"`
}
