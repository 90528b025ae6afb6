package port

import (
	"context"

	"docuflow/internal/domain"
)

// ExtractInput carries recognized text and the fields to pull from it.
type ExtractInput struct {
	Text   string
	Fields []domain.FieldDefinition
}

// FieldResult is one extractor's answer for one field.
type FieldResult struct {
	Value      string
	Found      bool
	Confidence float64
}

// FieldExtractor abstracts one tier of field extraction. Results are keyed
// by field name; a missing key is treated as not found.
type FieldExtractor interface {
	Name() string
	Extract(ctx context.Context, input ExtractInput) (map[string]FieldResult, error)
}
