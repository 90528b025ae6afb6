package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"docuflow/internal/domain"
)

// MockSchemaRepo is a mock implementation of port.SchemaRepository.
type MockSchemaRepo struct {
	mock.Mock
}

func (m *MockSchemaRepo) Create(ctx context.Context, schema *domain.Schema) error {
	args := m.Called(ctx, schema)
	return args.Error(0)
}

func (m *MockSchemaRepo) GetByID(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.Schema, error) {
	args := m.Called(ctx, tenantID, schemaID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Schema), args.Error(1)
}

func (m *MockSchemaRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Schema, int, error) {
	args := m.Called(ctx, tenantID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Schema), args.Int(1), args.Error(2)
}

func (m *MockSchemaRepo) UpdateMeta(ctx context.Context, schema *domain.Schema) error {
	args := m.Called(ctx, schema)
	return args.Error(0)
}

func (m *MockSchemaRepo) Delete(ctx context.Context, tenantID, schemaID uuid.UUID) error {
	args := m.Called(ctx, tenantID, schemaID)
	return args.Error(0)
}

func (m *MockSchemaRepo) AddField(ctx context.Context, tenantID uuid.UUID, field *domain.FieldDefinition) error {
	args := m.Called(ctx, tenantID, field)
	return args.Error(0)
}

func (m *MockSchemaRepo) RemoveField(ctx context.Context, tenantID, schemaID, fieldID uuid.UUID) error {
	args := m.Called(ctx, tenantID, schemaID, fieldID)
	return args.Error(0)
}
