package billing

import (
	"context"

	"github.com/google/uuid"

	"docuflow/internal/config"
	"docuflow/internal/port"
)

type staticBilling struct {
	defaultCeiling int
	overrides      map[string]int
}

// NewStatic creates a configuration-backed Billing provider. Tenants without
// an override get the default monthly page ceiling.
func NewStatic(cfg *config.QuotaConfig) port.Billing {
	return &staticBilling{
		defaultCeiling: cfg.DefaultMonthlyPages,
		overrides:      cfg.TenantOverrides,
	}
}

func (b *staticBilling) QuotaCeiling(_ context.Context, tenantID uuid.UUID) (int, error) {
	if ceiling, ok := b.overrides[tenantID.String()]; ok {
		return ceiling, nil
	}
	return b.defaultCeiling, nil
}
