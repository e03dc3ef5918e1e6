package models

import (
	"time"
)

// VersionSnapshot is an immutable copy of an article's content-bearing
// fields, appended on every accepted save. Snapshots form a per-article
// sequence ordered by creation, oldest first, and are never mutated.
type VersionSnapshot struct {
	ID          string    `json:"id" db:"id"`
	ArticleID   string    `json:"article_id" db:"article_id"`
	Sequence    int       `json:"sequence" db:"sequence"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Body        string    `json:"body" db:"body"`
	Tags        []string  `json:"tags" db:"-"` // Stored as JSON string in DB
	Published   bool      `json:"published" db:"published"`
	Featured    bool      `json:"featured" db:"featured"`
	ActorID     string    `json:"actor_id" db:"actor_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Draft returns the snapshot content as a draft, ready to be copied back
// onto the live article by a restore.
func (v *VersionSnapshot) Draft() ArticleDraft {
	return ArticleDraft{
		Title:       v.Title,
		Description: v.Description,
		Body:        v.Body,
		Tags:        append([]string(nil), v.Tags...),
		Published:   v.Published,
		Featured:    v.Featured,
	}
}
