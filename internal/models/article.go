package models

import (
	"time"
)

// MaxTags is the maximum number of tags an article may carry.
const MaxTags = 10

// Article represents an editable content unit in the system
type Article struct {
	ID          string     `json:"id" db:"id"`
	Slug        string     `json:"slug" db:"slug"`
	Title       string     `json:"title" db:"title"`
	Description string     `json:"description" db:"description"`
	Body        string     `json:"body" db:"body"`
	AuthorID    string     `json:"author_id" db:"author_id"`
	Tags        []string   `json:"tags" db:"-"` // Stored as JSON string in DB
	Published   bool       `json:"published" db:"published"`
	Featured    bool       `json:"featured" db:"featured"`
	ViewCount   int        `json:"view_count" db:"view_count"`
	PublishedAt *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// Draft returns the content-bearing projection of the article.
func (a *Article) Draft() ArticleDraft {
	return ArticleDraft{
		Title:       a.Title,
		Description: a.Description,
		Body:        a.Body,
		Tags:        append([]string(nil), a.Tags...),
		Published:   a.Published,
		Featured:    a.Featured,
	}
}

// ArticleDraft carries the content-bearing fields of an article. It is the
// unit the autosave scheduler compares for dirtiness, the payload of version
// snapshots, and the input to the save path.
type ArticleDraft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Body        string   `json:"body"`
	Tags        []string `json:"tags"`
	Published   bool     `json:"published"`
	Featured    bool     `json:"featured"`
}

// Equal reports whether two drafts carry the same content. Comparison is
// structural: tag slices compare element-wise, nil and empty are equal.
func (d ArticleDraft) Equal(other ArticleDraft) bool {
	if d.Title != other.Title ||
		d.Description != other.Description ||
		d.Body != other.Body ||
		d.Published != other.Published ||
		d.Featured != other.Featured {
		return false
	}
	if len(d.Tags) != len(other.Tags) {
		return false
	}
	for i := range d.Tags {
		if d.Tags[i] != other.Tags[i] {
			return false
		}
	}
	return true
}

// ArticleRecord is the self-describing record used by the structured NDJSON
// export/import format. View counters and internal timestamps are excluded:
// import regenerates identity and creation time.
type ArticleRecord struct {
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Body        string   `json:"body"`
	AuthorID    string   `json:"author_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Published   bool     `json:"published,omitempty"`
	Featured    bool     `json:"featured,omitempty"`
}
