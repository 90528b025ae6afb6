package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"docuflow/internal/port"
)

// MockOCREngine is a mock implementation of port.OCREngine.
type MockOCREngine struct {
	mock.Mock
}

func (m *MockOCREngine) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockOCREngine) Recognize(ctx context.Context, input port.OCRInput) (*port.OCRResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.OCRResult), args.Error(1)
}
