package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockBilling is a mock implementation of port.Billing.
type MockBilling struct {
	mock.Mock
}

func (m *MockBilling) QuotaCeiling(ctx context.Context, tenantID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID)
	return args.Int(0), args.Error(1)
}
