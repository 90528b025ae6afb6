package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/domain"
)

// SchemaRepository defines the contract for schema persistence.
// All query methods include tenantID to enforce tenant isolation at the data layer.
type SchemaRepository interface {
	// Create persists the schema and its field definitions in one transaction.
	Create(ctx context.Context, schema *domain.Schema) error
	GetByID(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.Schema, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Schema, int, error)
	// UpdateMeta writes name, description, and version without touching fields.
	UpdateMeta(ctx context.Context, schema *domain.Schema) error
	Delete(ctx context.Context, tenantID, schemaID uuid.UUID) error
	// AddField inserts a field definition at its display order, shifting
	// later fields down, and bumps the schema version.
	AddField(ctx context.Context, tenantID uuid.UUID, field *domain.FieldDefinition) error
	// RemoveField deletes a field definition, renumbers the remaining display
	// orders densely from zero, and bumps the schema version.
	RemoveField(ctx context.Context, tenantID, schemaID, fieldID uuid.UUID) error
}

// DocumentRepository defines the contract for document persistence. Status
// transitions use conditional updates so that concurrent callers cannot move
// a document out of sequence.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, tenantID, docID uuid.UUID) (*domain.Document, error)
	// ListByTenant returns documents newest first, optionally filtered by
	// status and schema.
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter domain.DocumentFilter, offset, limit int) ([]domain.Document, int, error)
	Delete(ctx context.Context, tenantID, docID uuid.UUID) error
	CountBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) (int, error)
	ListCompletedBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) ([]domain.Document, error)

	// MarkQueued flags an uploaded document for pickup by the queue worker.
	// Returns domain.ErrProcessingActive if the document is already queued
	// and domain.ErrNotFound if it does not exist or is not in uploaded state.
	MarkQueued(ctx context.Context, tenantID, docID uuid.UUID) error
	// ResetForReprocess moves a terminal document back to uploaded+queued,
	// clearing confidence, error message, and cancellation state.
	ResetForReprocess(ctx context.Context, tenantID, docID uuid.UUID) error
	// ClaimQueued atomically claims up to limit queued documents across all
	// tenants, moving them to processing.
	ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error)
	// Complete finishes a processing cycle. Only succeeds if the document is
	// still in processing state.
	Complete(ctx context.Context, tenantID, docID uuid.UUID, overallConfidence *float64) error
	// Fail terminates a processing cycle with an error message.
	Fail(ctx context.Context, tenantID, docID uuid.UUID, errMsg string) error
	// RequestCancel flags an in-flight document for cooperative cancellation.
	RequestCancel(ctx context.Context, tenantID, docID uuid.UUID) error
	CancelRequested(ctx context.Context, tenantID, docID uuid.UUID) (bool, error)
	// SweepStalled fails documents stuck in processing longer than cutoff.
	SweepStalled(ctx context.Context, cutoff time.Time) ([]domain.Document, error)
}

// FieldValueRepository defines the contract for extracted field value persistence.
type FieldValueRepository interface {
	Create(ctx context.Context, value *domain.FieldValue) error
	// UpdateNormalized sets the normalized value, adjusted confidence, and
	// review flag after the normalization stage.
	UpdateNormalized(ctx context.Context, tenantID, valueID uuid.UUID, normalized string, confidence float64, needsReview bool) error
	ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.FieldValueDetail, error)
	DeleteByDocument(ctx context.Context, tenantID, docID uuid.UUID) error
	// SetFinalValue records a reviewer override and clears the review flag.
	SetFinalValue(ctx context.Context, tenantID, valueID uuid.UUID, finalValue string, reviewerID uuid.UUID) error
}

// ProcessingLogRepository defines the contract for the append-only processing trail.
type ProcessingLogRepository interface {
	Create(ctx context.Context, entry *domain.ProcessingLogEntry) error
	ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.ProcessingLogEntry, error)
}

// UsageRepository defines the contract for usage accounting queries.
type UsageRepository interface {
	// PagesUsedSince sums page counts of all documents the tenant uploaded
	// at or after the period start.
	PagesUsedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error)
}
