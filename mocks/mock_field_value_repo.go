package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docuflow/internal/domain"
)

// MockFieldValueRepo is a mock implementation of port.FieldValueRepository.
type MockFieldValueRepo struct {
	mock.Mock
}

func (m *MockFieldValueRepo) Create(ctx context.Context, value *domain.FieldValue) error {
	args := m.Called(ctx, value)
	return args.Error(0)
}

func (m *MockFieldValueRepo) UpdateNormalized(ctx context.Context, tenantID, valueID uuid.UUID, normalized string, confidence float64, needsReview bool) error {
	args := m.Called(ctx, tenantID, valueID, normalized, confidence, needsReview)
	return args.Error(0)
}

func (m *MockFieldValueRepo) ListByDocument(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.FieldValueDetail, error) {
	args := m.Called(ctx, tenantID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FieldValueDetail), args.Error(1)
}

func (m *MockFieldValueRepo) DeleteByDocument(ctx context.Context, tenantID, docID uuid.UUID) error {
	args := m.Called(ctx, tenantID, docID)
	return args.Error(0)
}

func (m *MockFieldValueRepo) SetFinalValue(ctx context.Context, tenantID, valueID uuid.UUID, finalValue string, reviewerID uuid.UUID) error {
	args := m.Called(ctx, tenantID, valueID, finalValue, reviewerID)
	return args.Error(0)
}
