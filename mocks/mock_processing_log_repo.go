package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docuflow/internal/domain"
)

// MockProcessingLogRepo is a mock implementation of port.ProcessingLogRepository.
type MockProcessingLogRepo struct {
	mock.Mock
}

func (m *MockProcessingLogRepo) Create(ctx context.Context, entry *domain.ProcessingLogEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockProcessingLogRepo) ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	args := m.Called(ctx, tenantID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ProcessingLogEntry), args.Error(1)
}
