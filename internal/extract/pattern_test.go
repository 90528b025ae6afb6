package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

const sampleInvoice = `ACME CORP
Invoice Number: INV-0042
Invoice Date: 03/15/2024
Contact: billing@acme.example
Total: $1,234.56
Payment Terms: Net 30`

func sampleFields() []domain.FieldDefinition {
	return []domain.FieldDefinition{
		{Name: "invoice_number", Label: "Invoice Number", Type: domain.FieldTypeText},
		{Name: "invoice_date", Label: "Invoice Date", Type: domain.FieldTypeDate},
		{Name: "total", Label: "Total", Type: domain.FieldTypeNumber},
		{Name: "contact_email", Label: "Contact", Type: domain.FieldTypeEmail},
		{Name: "terms", Label: "Payment Terms", Type: domain.FieldTypeDropdown, Options: []string{"Net 30", "Net 60"}},
		{Name: "po_number", Label: "PO Number", Type: domain.FieldTypeText},
	}
}

func TestPatternExtractor_LabelAdjacent(t *testing.T) {
	e := NewPatternExtractor()
	results, err := e.Extract(context.Background(), port.ExtractInput{
		Text:   sampleInvoice,
		Fields: sampleFields(),
	})
	require.NoError(t, err)

	assert.Equal(t, "INV-0042", results["invoice_number"].Value)
	assert.Equal(t, confLabelMatch, results["invoice_number"].Confidence)

	assert.Equal(t, "03/15/2024", results["invoice_date"].Value)
	assert.Equal(t, "1,234.56", results["total"].Value)
	assert.Equal(t, "billing@acme.example", results["contact_email"].Value)
	assert.Equal(t, "Net 30", results["terms"].Value)
}

func TestPatternExtractor_MissingField(t *testing.T) {
	e := NewPatternExtractor()
	results, err := e.Extract(context.Background(), port.ExtractInput{
		Text:   sampleInvoice,
		Fields: sampleFields(),
	})
	require.NoError(t, err)

	po := results["po_number"]
	assert.False(t, po.Found)
	assert.Equal(t, "", po.Value)
	assert.Equal(t, 0.0, po.Confidence)
}

func TestPatternExtractor_TypeFallbackLowerConfidence(t *testing.T) {
	e := NewPatternExtractor()
	// No label in the text; only the email shape matches.
	results, err := e.Extract(context.Background(), port.ExtractInput{
		Text:   "reach us at support@vendor.example for questions",
		Fields: []domain.FieldDefinition{{Name: "email", Label: "Billing Email", Type: domain.FieldTypeEmail}},
	})
	require.NoError(t, err)

	assert.True(t, results["email"].Found)
	assert.Equal(t, "support@vendor.example", results["email"].Value)
	assert.Equal(t, confTypeMatch, results["email"].Confidence)
}
