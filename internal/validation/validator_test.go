package validation

import (
	"strings"
	"testing"

	"github.com/content-lifecycle-api/internal/models"
)

func TestValidateDraft(t *testing.T) {
	tests := []struct {
		name       string
		draft      models.ArticleDraft
		wantFields []string
	}{
		{
			name:  "valid draft",
			draft: models.ArticleDraft{Title: "Hello", Body: "World", Tags: []string{"go", "web"}},
		},
		{
			name:       "missing title",
			draft:      models.ArticleDraft{Body: "World"},
			wantFields: []string{"title"},
		},
		{
			name:       "whitespace title",
			draft:      models.ArticleDraft{Title: "   ", Body: "World"},
			wantFields: []string{"title"},
		},
		{
			name:       "missing body",
			draft:      models.ArticleDraft{Title: "Hello"},
			wantFields: []string{"body"},
		},
		{
			name:       "missing both",
			draft:      models.ArticleDraft{},
			wantFields: []string{"title", "body"},
		},
		{
			name:       "title too long",
			draft:      models.ArticleDraft{Title: strings.Repeat("x", MaxTitleLength+1), Body: "ok"},
			wantFields: []string{"title"},
		},
		{
			name: "too many tags",
			draft: models.ArticleDraft{
				Title: "Hello", Body: "World",
				Tags: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"},
			},
			wantFields: []string{"tags"},
		},
		{
			name:       "empty tag",
			draft:      models.ArticleDraft{Title: "Hello", Body: "World", Tags: []string{"go", " "}},
			wantFields: []string{"tags"},
		},
		{
			name:       "duplicate tag",
			draft:      models.ArticleDraft{Title: "Hello", Body: "World", Tags: []string{"go", "go"}},
			wantFields: []string{"tags"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateDraft(&tt.draft)
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("Expected %d errors, got %d: %v", len(tt.wantFields), len(errs), errs)
			}
			for i, field := range tt.wantFields {
				if errs[i].Field != field {
					t.Errorf("Error %d: expected field %q, got %q", i, field, errs[i].Field)
				}
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{" go ", "web", "", "go", "db"})
	want := []string{"go", "web", "db"}
	if len(got) != len(want) {
		t.Fatalf("Expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tag %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if NormalizeTags(nil) != nil {
		t.Error("Expected nil for nil input")
	}
	if NormalizeTags([]string{" ", ""}) != nil {
		t.Error("Expected nil for all-empty input")
	}
}
