package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

type fieldValueRepo struct {
	db *sqlx.DB
}

// NewFieldValueRepo creates a new PostgreSQL-backed FieldValueRepository.
func NewFieldValueRepo(db *sqlx.DB) port.FieldValueRepository {
	return &fieldValueRepo{db: db}
}

func (r *fieldValueRepo) Create(ctx context.Context, value *domain.FieldValue) error {
	now := time.Now().UTC()
	value.CreatedAt = now
	value.UpdatedAt = now

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO field_values
		 (id, document_id, field_id, tenant_id, raw_value, normalized_value,
		  confidence, needs_review, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		value.ID, value.DocumentID, value.FieldID, value.TenantID,
		value.RawValue, value.NormalizedValue, value.Confidence, value.NeedsReview,
		value.CreatedAt, value.UpdatedAt)
	if err != nil {
		return fmt.Errorf("fieldValueRepo.Create: %w", err)
	}
	return nil
}

func (r *fieldValueRepo) UpdateNormalized(ctx context.Context, tenantID, valueID uuid.UUID, normalized string, confidence float64, needsReview bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE field_values SET normalized_value = $1, confidence = $2, needs_review = $3, updated_at = $4
		 WHERE id = $5 AND tenant_id = $6`,
		normalized, confidence, needsReview, time.Now().UTC(), valueID, tenantID)
	if err != nil {
		return fmt.Errorf("fieldValueRepo.UpdateNormalized: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *fieldValueRepo) ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.FieldValueDetail, error) {
	var values []domain.FieldValueDetail
	err := r.db.SelectContext(ctx, &values,
		`SELECT fv.*,
		        sf.name AS field_name, sf.label AS field_label,
		        sf.field_type AS f_type, sf.display_order AS f_display_order
		 FROM field_values fv
		 JOIN schema_fields sf ON sf.id = fv.field_id
		 WHERE fv.document_id = $1 AND fv.tenant_id = $2
		 ORDER BY sf.display_order`,
		docID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("fieldValueRepo.ListByDocument: %w", err)
	}
	return values, nil
}

func (r *fieldValueRepo) DeleteByDocument(ctx context.Context, tenantID, docID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		"DELETE FROM field_values WHERE document_id = $1 AND tenant_id = $2", docID, tenantID)
	if err != nil {
		return fmt.Errorf("fieldValueRepo.DeleteByDocument: %w", err)
	}
	return nil
}

func (r *fieldValueRepo) SetFinalValue(ctx context.Context, tenantID, valueID uuid.UUID, finalValue string, reviewerID uuid.UUID) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE field_values SET
		   final_value = $1, needs_review = FALSE,
		   reviewed_by = $2, reviewed_at = $3, updated_at = $3
		 WHERE id = $4 AND tenant_id = $5`,
		finalValue, reviewerID, now, valueID, tenantID)
	if err != nil {
		return fmt.Errorf("fieldValueRepo.SetFinalValue: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
