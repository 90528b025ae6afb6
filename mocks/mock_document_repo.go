package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docuflow/internal/domain"
)

// MockDocumentRepo is a mock implementation of port.DocumentRepository.
type MockDocumentRepo struct {
	mock.Mock
}

func (m *MockDocumentRepo) Create(ctx context.Context, doc *domain.Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockDocumentRepo) GetByID(ctx context.Context, tenantID, docID uuid.UUID) (*domain.Document, error) {
	args := m.Called(ctx, tenantID, docID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter domain.DocumentFilter, offset, limit int) ([]domain.Document, int, error) {
	args := m.Called(ctx, tenantID, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Document), args.Int(1), args.Error(2)
}

func (m *MockDocumentRepo) Delete(ctx context.Context, tenantID, docID uuid.UUID) error {
	args := m.Called(ctx, tenantID, docID)
	return args.Error(0)
}

func (m *MockDocumentRepo) CountBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) (int, error) {
	args := m.Called(ctx, tenantID, schemaID)
	return args.Int(0), args.Error(1)
}

func (m *MockDocumentRepo) ListCompletedBySchema(ctx context.Context, tenantID, schemaID uuid.UUID) ([]domain.Document, error) {
	args := m.Called(ctx, tenantID, schemaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) MarkQueued(ctx context.Context, tenantID, docID uuid.UUID) error {
	args := m.Called(ctx, tenantID, docID)
	return args.Error(0)
}

func (m *MockDocumentRepo) ResetForReprocess(ctx context.Context, tenantID, docID uuid.UUID) error {
	args := m.Called(ctx, tenantID, docID)
	return args.Error(0)
}

func (m *MockDocumentRepo) ClaimQueued(ctx context.Context, limit int) ([]domain.Document, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}

func (m *MockDocumentRepo) Complete(ctx context.Context, tenantID, docID uuid.UUID, overallConfidence *float64) error {
	args := m.Called(ctx, tenantID, docID, overallConfidence)
	return args.Error(0)
}

func (m *MockDocumentRepo) Fail(ctx context.Context, tenantID, docID uuid.UUID, errMsg string) error {
	args := m.Called(ctx, tenantID, docID, errMsg)
	return args.Error(0)
}

func (m *MockDocumentRepo) RequestCancel(ctx context.Context, tenantID, docID uuid.UUID) error {
	args := m.Called(ctx, tenantID, docID)
	return args.Error(0)
}

func (m *MockDocumentRepo) CancelRequested(ctx context.Context, tenantID, docID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, docID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDocumentRepo) SweepStalled(ctx context.Context, cutoff time.Time) ([]domain.Document, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Document), args.Error(1)
}
