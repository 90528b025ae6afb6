package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docuflow/internal/port"
)

// MockFieldExtractor is a mock implementation of port.FieldExtractor.
type MockFieldExtractor struct {
	mock.Mock
}

func (m *MockFieldExtractor) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockFieldExtractor) Extract(ctx context.Context, input port.ExtractInput) (map[string]port.FieldResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]port.FieldResult), args.Error(1)
}
