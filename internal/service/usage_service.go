package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// UsageService reports current-period page consumption against quota.
type UsageService interface {
	GetStats(ctx context.Context, tenantID uuid.UUID) (*domain.UsageStats, error)
}

type usageService struct {
	usageRepo port.UsageRepository
	billing   port.Billing
}

// NewUsageService creates a new UsageService implementation.
func NewUsageService(usageRepo port.UsageRepository, billing port.Billing) UsageService {
	return &usageService{usageRepo: usageRepo, billing: billing}
}

func (s *usageService) GetStats(ctx context.Context, tenantID uuid.UUID) (*domain.UsageStats, error) {
	start := periodStart(time.Now().UTC())

	used, err := s.usageRepo.PagesUsedSince(ctx, tenantID, start)
	if err != nil {
		return nil, err
	}
	ceiling, err := s.billing.QuotaCeiling(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	pct := 0.0
	if ceiling > 0 {
		pct = float64(used) / float64(ceiling) * 100
	}
	remaining := ceiling - used
	if remaining < 0 {
		remaining = 0
	}

	return &domain.UsageStats{
		TenantID:       tenantID,
		PeriodStart:    start,
		PagesUsed:      used,
		PageLimit:      ceiling,
		PercentageUsed: pct,
		RemainingPages: remaining,
	}, nil
}
