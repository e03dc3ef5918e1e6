package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound signals an unknown article or version id.
var ErrNotFound = errors.New("not found")

// FieldError describes a single field-level validation failure.
type FieldError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// ValidationErrors is the set of field errors for one record. It satisfies
// the error interface so services can return it directly.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ImportResult reports the outcome of an import batch. Imported counts only
// records actually persisted; every failed or skipped input item contributes
// one entry to Errors so the caller can account for all inputs.
type ImportResult struct {
	Imported int      `json:"imported"`
	Errors   []string `json:"errors,omitempty"`
}
