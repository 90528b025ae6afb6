package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockUsageRepo is a mock implementation of port.UsageRepository.
type MockUsageRepo struct {
	mock.Mock
}

func (m *MockUsageRepo) PagesUsedSince(ctx context.Context, tenantID uuid.UUID, since time.Time) (int, error) {
	args := m.Called(ctx, tenantID, since)
	return args.Int(0), args.Error(1)
}
