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

type processingLogRepo struct {
	db *sqlx.DB
}

// NewProcessingLogRepo creates a new PostgreSQL-backed ProcessingLogRepository.
func NewProcessingLogRepo(db *sqlx.DB) port.ProcessingLogRepository {
	return &processingLogRepo{db: db}
}

func (r *processingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	entry.CreatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO processing_logs (id, document_id, tenant_id, level, stage, message, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.DocumentID, entry.TenantID, entry.Level, entry.Stage,
		entry.Message, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("processingLogRepo.Create: %w", err)
	}
	return nil
}

func (r *processingLogRepo) ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	var entries []domain.ProcessingLogEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM processing_logs
		 WHERE document_id = $1 AND tenant_id = $2
		 ORDER BY created_at`,
		docID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("processingLogRepo.ListByDocument: %w", err)
	}
	return entries, nil
}
