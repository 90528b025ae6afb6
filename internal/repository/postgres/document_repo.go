package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

type documentRepo struct {
	db *sqlx.DB
}

// NewDocumentRepo creates a new PostgreSQL-backed DocumentRepository.
func NewDocumentRepo(db *sqlx.DB) port.DocumentRepository {
	return &documentRepo{db: db}
}

func (r *documentRepo) Create(ctx context.Context, doc *domain.Document) error {
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if doc.Status == "" {
		doc.Status = domain.StatusUploaded
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents
		 (id, tenant_id, schema_id, uploaded_by, original_filename, s3_bucket, s3_key,
		  file_type, content_type, file_size, page_count, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		doc.ID, doc.TenantID, doc.SchemaID, doc.UploadedBy, doc.OriginalFilename,
		doc.S3Bucket, doc.S3Key, doc.FileType, doc.ContentType, doc.FileSize,
		doc.PageCount, doc.Status, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("documentRepo.Create: %w", err)
	}
	return nil
}

func (r *documentRepo) GetByID(ctx context.Context, tenantID, docID uuid.UUID) (*domain.Document, error) {
	var doc domain.Document
	err := r.db.GetContext(ctx, &doc,
		"SELECT * FROM documents WHERE id = $1 AND tenant_id = $2", docID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("documentRepo.GetByID: %w", err)
	}
	return &doc, nil
}

func (r *documentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter domain.DocumentFilter, offset, limit int) ([]domain.Document, int, error) {
	where := "tenant_id = $1"
	args := []interface{}{tenantID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.SchemaID != nil {
		args = append(args, *filter.SchemaID)
		where += fmt.Sprintf(" AND schema_id = $%d", len(args))
	}

	var total int
	err := r.db.GetContext(ctx, &total,
		"SELECT COUNT(*) FROM documents WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.ListByTenant count: %w", err)
	}

	args = append(args, limit, offset)
	var docs []domain.Document
	err = r.db.SelectContext(ctx, &docs,
		fmt.Sprintf("SELECT * FROM documents WHERE %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
			where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, fmt.Errorf("documentRepo.ListByTenant: %w", err)
	}
	return docs, total, nil
}

func (r *documentRepo) Delete(ctx context.Context, tenantID, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM documents WHERE id = $1 AND tenant_id = $2", docID, tenantID)
	if err != nil {
		return fmt.Errorf("documentRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotFound
	}
	return nil
}

func (r *documentRepo) CountBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM documents WHERE tenant_id = $1 AND schema_id = $2",
		tenantID, schemaID)
	if err != nil {
		return 0, fmt.Errorf("documentRepo.CountBySchema: %w", err)
	}
	return count, nil
}

func (r *documentRepo) ListCompletedBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) ([]domain.Document, error) {
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`SELECT * FROM documents
		 WHERE tenant_id = $1 AND schema_id = $2 AND status = $3
		 ORDER BY created_at`,
		tenantID, schemaID, domain.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ListCompletedBySchema: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) MarkQueued(ctx context.Context, tenantID, docID uuid.UUID) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET queued_at = $1, updated_at = $1
		 WHERE id = $2 AND tenant_id = $3 AND status = $4 AND queued_at IS NULL`,
		now, docID, tenantID, domain.StatusUploaded)
	if err != nil {
		return fmt.Errorf("documentRepo.MarkQueued: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish already-queued from missing for the caller.
		var queued bool
		err := r.db.GetContext(ctx, &queued,
			`SELECT queued_at IS NOT NULL OR status = $3 FROM documents
			 WHERE id = $1 AND tenant_id = $2`,
			docID, tenantID, domain.StatusProcessing)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrDocumentNotFound
			}
			return fmt.Errorf("documentRepo.MarkQueued check: %w", err)
		}
		if queued {
			return domain.ErrProcessingActive
		}
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ResetForReprocess(ctx context.Context, tenantID, docID uuid.UUID) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
		   status = $1, queued_at = $2, cancel_requested = FALSE,
		   overall_confidence = NULL, error_message = '',
		   processing_started_at = NULL, processing_completed_at = NULL,
		   updated_at = $2
		 WHERE id = $3 AND tenant_id = $4 AND status IN ($5, $6)`,
		domain.StatusUploaded, now, docID, tenantID,
		domain.StatusCompleted, domain.StatusFailed)
	if err != nil {
		return fmt.Errorf("documentRepo.ResetForReprocess: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	now := time.Now().UTC()
	var docs []domain.Document
	// SKIP LOCKED lets multiple worker instances poll without claiming the
	// same document twice.
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE documents SET status = $1, processing_started_at = $2, updated_at = $2
		 WHERE id IN (
		   SELECT id FROM documents
		   WHERE status = $3 AND queued_at IS NOT NULL
		   ORDER BY queued_at
		   LIMIT $4
		   FOR UPDATE SKIP LOCKED
		 )
		 RETURNING *`,
		domain.StatusProcessing, now, domain.StatusUploaded, limit)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.ClaimQueued: %w", err)
	}
	return docs, nil
}

func (r *documentRepo) Complete(ctx context.Context, tenantID, docID uuid.UUID, overallConfidence *float64) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
		   status = $1, overall_confidence = $2, queued_at = NULL,
		   processing_completed_at = $3, updated_at = $3
		 WHERE id = $4 AND tenant_id = $5 AND status = $6`,
		domain.StatusCompleted, overallConfidence, now, docID, tenantID, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("documentRepo.Complete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotActive
	}
	return nil
}

func (r *documentRepo) Fail(ctx context.Context, tenantID, docID uuid.UUID, errMsg string) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET
		   status = $1, error_message = $2, queued_at = NULL,
		   processing_completed_at = $3, updated_at = $3
		 WHERE id = $4 AND tenant_id = $5 AND status = $6`,
		domain.StatusFailed, errMsg, now, docID, tenantID, domain.StatusProcessing)
	if err != nil {
		return fmt.Errorf("documentRepo.Fail: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotActive
	}
	return nil
}

func (r *documentRepo) RequestCancel(ctx context.Context, tenantID, docID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE documents SET cancel_requested = TRUE, updated_at = $1
		 WHERE id = $2 AND tenant_id = $3
		   AND (status = $4 OR (status = $5 AND queued_at IS NOT NULL))`,
		time.Now().UTC(), docID, tenantID, domain.StatusProcessing, domain.StatusUploaded)
	if err != nil {
		return fmt.Errorf("documentRepo.RequestCancel: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrDocumentNotActive
	}
	return nil
}

func (r *documentRepo) CancelRequested(ctx context.Context, tenantID, docID uuid.UUID) (bool, error) {
	var requested bool
	err := r.db.GetContext(ctx, &requested,
		"SELECT cancel_requested FROM documents WHERE id = $1 AND tenant_id = $2",
		docID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrDocumentNotFound
		}
		return false, fmt.Errorf("documentRepo.CancelRequested: %w", err)
	}
	return requested, nil
}

func (r *documentRepo) SweepStalled(ctx context.Context, cutoff time.Time) ([]domain.Document, error) {
	now := time.Now().UTC()
	var docs []domain.Document
	err := r.db.SelectContext(ctx, &docs,
		`UPDATE documents SET
		   status = $1, error_message = 'processing timed out', queued_at = NULL,
		   processing_completed_at = $2, updated_at = $2
		 WHERE status = $3 AND processing_started_at < $4
		 RETURNING *`,
		domain.StatusFailed, now, domain.StatusProcessing, cutoff)
	if err != nil {
		return nil, fmt.Errorf("documentRepo.SweepStalled: %w", err)
	}
	return docs, nil
}
