package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
	"docuflow/internal/port"
	"docuflow/mocks"
)

func routerFields() []domain.FieldDefinition {
	return []domain.FieldDefinition{
		{Name: "invoice_number", Label: "Invoice Number", Type: domain.FieldTypeText},
		{Name: "total", Label: "Total", Type: domain.FieldTypeNumber},
	}
}

func TestRouter_NoEscalationWhenConfident(t *testing.T) {
	cheap := new(mocks.MockFieldExtractor)
	expensive := new(mocks.MockFieldExtractor)

	cheap.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-1", Found: true, Confidence: 0.92},
		"total":          {Value: "100", Found: true, Confidence: 0.90},
	}, nil)

	r := NewRouter(
		Tier{Extractor: cheap, EscalateBelow: 0.85},
		Tier{Extractor: expensive},
	)

	results, err := r.Extract(context.Background(), port.ExtractInput{Text: "x", Fields: routerFields()})
	require.NoError(t, err)

	assert.Equal(t, "INV-1", results["invoice_number"].Value)
	assert.Equal(t, "100", results["total"].Value)
	// The expensive tier was never consulted.
	expensive.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestRouter_EscalatesOnlyUncertainFields(t *testing.T) {
	cheap := new(mocks.MockFieldExtractor)
	expensive := new(mocks.MockFieldExtractor)

	cheap.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-1", Found: true, Confidence: 0.92},
		"total":          {Value: "10", Found: true, Confidence: 0.60},
	}, nil)
	expensive.On("Extract", mock.Anything, mock.MatchedBy(func(in port.ExtractInput) bool {
		return len(in.Fields) == 1 && in.Fields[0].Name == "total"
	})).Return(map[string]port.FieldResult{
		"total": {Value: "100.50", Found: true, Confidence: 0.95},
	}, nil)

	r := NewRouter(
		Tier{Extractor: cheap, EscalateBelow: 0.85},
		Tier{Extractor: expensive},
	)

	results, err := r.Extract(context.Background(), port.ExtractInput{Text: "x", Fields: routerFields()})
	require.NoError(t, err)

	assert.Equal(t, "INV-1", results["invoice_number"].Value)
	assert.Equal(t, "100.50", results["total"].Value)
	assert.Equal(t, 0.95, results["total"].Confidence)
	expensive.AssertExpectations(t)
}

func TestRouter_EscalationCannotLowerResult(t *testing.T) {
	cheap := new(mocks.MockFieldExtractor)
	expensive := new(mocks.MockFieldExtractor)

	cheap.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-1", Found: true, Confidence: 0.70},
		"total":          {Value: "100", Found: true, Confidence: 0.90},
	}, nil)
	expensive.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-9", Found: true, Confidence: 0.40},
	}, nil)

	r := NewRouter(
		Tier{Extractor: cheap, EscalateBelow: 0.85},
		Tier{Extractor: expensive},
	)

	results, err := r.Extract(context.Background(), port.ExtractInput{Text: "x", Fields: routerFields()})
	require.NoError(t, err)

	// The cheap tier's answer stands: escalation returned lower confidence.
	assert.Equal(t, "INV-1", results["invoice_number"].Value)
	assert.Equal(t, 0.70, results["invoice_number"].Confidence)
}

func TestRouter_FailedTierKeepsCheapResults(t *testing.T) {
	cheap := new(mocks.MockFieldExtractor)
	expensive := new(mocks.MockFieldExtractor)
	expensive.On("Name").Return("llm")

	cheap.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-1", Found: true, Confidence: 0.70},
		"total":          {Value: "100", Found: true, Confidence: 0.90},
	}, nil)
	expensive.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	r := NewRouter(
		Tier{Extractor: cheap, EscalateBelow: 0.85},
		Tier{Extractor: expensive},
	)

	results, err := r.Extract(context.Background(), port.ExtractInput{Text: "x", Fields: routerFields()})
	require.NoError(t, err)
	assert.Equal(t, "INV-1", results["invoice_number"].Value)
	assert.Equal(t, "100", results["total"].Value)
}

func TestRouter_AllTiersFailed(t *testing.T) {
	cheap := new(mocks.MockFieldExtractor)
	cheap.On("Name").Return("pattern")
	cheap.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	r := NewRouter(Tier{Extractor: cheap})

	_, err := r.Extract(context.Background(), port.ExtractInput{Text: "x", Fields: routerFields()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extraction tiers failed")
}
