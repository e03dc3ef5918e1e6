package validation

import (
	"fmt"
	"strings"

	"github.com/content-lifecycle-api/internal/models"
)

// MaxTitleLength caps article titles; anything longer is almost certainly
// body text pasted into the wrong field.
const MaxTitleLength = 500

// ValidateDraft checks the content-bearing fields of an article draft and
// returns one FieldError per violation. Used by the save path and, per
// record, by the import pipeline.
func ValidateDraft(draft *models.ArticleDraft) models.ValidationErrors {
	var errs models.ValidationErrors

	if strings.TrimSpace(draft.Title) == "" {
		errs = append(errs, models.FieldError{Field: "title", Message: "title is required"})
	} else if len(draft.Title) > MaxTitleLength {
		errs = append(errs, models.FieldError{
			Field:   "title",
			Message: fmt.Sprintf("title exceeds maximum length of %d", MaxTitleLength),
		})
	}

	if strings.TrimSpace(draft.Body) == "" {
		errs = append(errs, models.FieldError{Field: "body", Message: "body is required"})
	}

	if len(draft.Tags) > models.MaxTags {
		errs = append(errs, models.FieldError{
			Field:   "tags",
			Message: fmt.Sprintf("at most %d tags allowed", models.MaxTags),
			Value:   len(draft.Tags),
		})
	}
	seen := make(map[string]bool, len(draft.Tags))
	for _, tag := range draft.Tags {
		if strings.TrimSpace(tag) == "" {
			errs = append(errs, models.FieldError{Field: "tags", Message: "tags must not be empty"})
			break
		}
		if seen[tag] {
			errs = append(errs, models.FieldError{Field: "tags", Message: "duplicate tag", Value: tag})
			break
		}
		seen[tag] = true
	}

	return errs
}

// NormalizeTags trims whitespace and drops empty and duplicate entries
// while preserving order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
