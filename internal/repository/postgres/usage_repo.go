package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"docuflow/internal/port"
)

type usageRepo struct {
	db *sqlx.DB
}

// NewUsageRepo creates a new PostgreSQL-backed UsageRepository.
func NewUsageRepo(db *sqlx.DB) port.UsageRepository {
	return &usageRepo{db: db}
}

func (r *usageRepo) PagesUsedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	var pages int
	// Failed documents still count; their pages were consumed at upload.
	err := r.db.GetContext(ctx, &pages,
		`SELECT COALESCE(SUM(page_count), 0) FROM documents
		 WHERE tenant_id = $1 AND created_at >= $2`,
		tenantID, since)
	if err != nil {
		return 0, fmt.Errorf("usageRepo.PagesUsedSince: %w", err)
	}
	return pages, nil
}
