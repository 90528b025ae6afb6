package port

import (
	"context"

	"github.com/google/uuid"
)

// Billing resolves per-tenant quota ceilings. Plan management itself lives in
// the billing service; this core only needs the current ceiling.
type Billing interface {
	// QuotaCeiling returns the tenant's monthly page limit.
	QuotaCeiling(ctx context.Context, tenantID uuid.UUID) (int, error)
}
