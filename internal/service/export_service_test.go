package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
	"docuflow/internal/service"
	"docuflow/mocks"
)

type exportFixture struct {
	svc       service.ExportService
	schemas   *mocks.MockSchemaRepo
	docRepo   *mocks.MockDocumentRepo
	fieldRepo *mocks.MockFieldValueRepo
}

func newExportService() *exportFixture {
	f := &exportFixture{
		schemas:   new(mocks.MockSchemaRepo),
		docRepo:   new(mocks.MockDocumentRepo),
		fieldRepo: new(mocks.MockFieldValueRepo),
	}
	f.svc = service.NewExportService(f.schemas, f.docRepo, f.fieldRepo)
	return f
}

func exportSchema(tenantID uuid.UUID) *domain.Schema {
	return &domain.Schema{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Invoices 2024",
		Fields: []domain.FieldDefinition{
			{ID: uuid.New(), Name: "invoice_number", Label: "Invoice Number", Type: domain.FieldTypeText, DisplayOrder: 0},
			{ID: uuid.New(), Name: "total", Label: "Total", Type: domain.FieldTypeNumber, DisplayOrder: 1},
		},
	}
}

func strPtr(s string) *string { return &s }

func TestGetTable_EffectiveValuePrecedence(t *testing.T) {
	f := newExportService()
	tenantID := uuid.New()
	schema := exportSchema(tenantID)
	doc := domain.Document{ID: uuid.New(), TenantID: tenantID, OriginalFilename: "inv-001.pdf", Status: domain.StatusCompleted}

	f.schemas.On("GetByID", mock.Anything, tenantID, schema.ID).Return(schema, nil)
	f.docRepo.On("ListCompletedBySchema", mock.Anything, tenantID, schema.ID).Return([]domain.Document{doc}, nil)
	f.fieldRepo.On("ListByDocument", mock.Anything, tenantID, doc.ID).Return([]domain.FieldValueDetail{
		{
			// Reviewer override wins over normalized and raw.
			FieldValue: domain.FieldValue{RawValue: "INV-1", NormalizedValue: "INV-1", FinalValue: strPtr("INV-001")},
			FieldLabel: "Invoice Number",
		},
		{
			// Normalized wins over raw when no override exists.
			FieldValue: domain.FieldValue{RawValue: "1,234.56", NormalizedValue: "1234.56"},
			FieldLabel: "Total",
		},
	}, nil)

	table, err := f.svc.GetTable(context.Background(), tenantID, schema.ID)
	require.NoError(t, err)

	assert.Equal(t, "Invoices 2024", table.SchemaName)
	assert.Equal(t, []string{"Invoice Number", "Total"}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "INV-001", table.Rows[0]["Invoice Number"])
	assert.Equal(t, "1234.56", table.Rows[0]["Total"])
}

func TestGetTable_RowOrderFollowsDocumentList(t *testing.T) {
	f := newExportService()
	tenantID := uuid.New()
	schema := exportSchema(tenantID)
	docs := []domain.Document{
		{ID: uuid.New(), TenantID: tenantID, OriginalFilename: "a.pdf", Status: domain.StatusCompleted},
		{ID: uuid.New(), TenantID: tenantID, OriginalFilename: "b.pdf", Status: domain.StatusCompleted},
		{ID: uuid.New(), TenantID: tenantID, OriginalFilename: "c.pdf", Status: domain.StatusCompleted},
	}

	f.schemas.On("GetByID", mock.Anything, tenantID, schema.ID).Return(schema, nil)
	f.docRepo.On("ListCompletedBySchema", mock.Anything, tenantID, schema.ID).Return(docs, nil)
	numbers := []string{"INV-A", "INV-B", "INV-C"}
	for i, d := range docs {
		f.fieldRepo.On("ListByDocument", mock.Anything, tenantID, d.ID).Return([]domain.FieldValueDetail{
			{FieldValue: domain.FieldValue{NormalizedValue: numbers[i]}, FieldLabel: "Invoice Number"},
		}, nil)
	}

	table, err := f.svc.GetTable(context.Background(), tenantID, schema.ID)
	require.NoError(t, err)

	require.Len(t, table.Rows, 3)
	assert.Equal(t, "INV-A", table.Rows[0]["Invoice Number"])
	assert.Equal(t, "INV-B", table.Rows[1]["Invoice Number"])
	assert.Equal(t, "INV-C", table.Rows[2]["Invoice Number"])
}

func TestGetTable_EmptySchemaTable(t *testing.T) {
	f := newExportService()
	tenantID := uuid.New()
	schema := exportSchema(tenantID)

	f.schemas.On("GetByID", mock.Anything, tenantID, schema.ID).Return(schema, nil)
	f.docRepo.On("ListCompletedBySchema", mock.Anything, tenantID, schema.ID).Return([]domain.Document{}, nil)

	table, err := f.svc.GetTable(context.Background(), tenantID, schema.ID)
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Equal(t, []string{"Invoice Number", "Total"}, table.Columns)
	f.fieldRepo.AssertNotCalled(t, "ListByDocument", mock.Anything, mock.Anything, mock.Anything)
}

func TestWriteCSV_BOMAndQuoting(t *testing.T) {
	f := newExportService()
	tenantID := uuid.New()
	schema := exportSchema(tenantID)
	doc := domain.Document{ID: uuid.New(), TenantID: tenantID, OriginalFilename: "inv.pdf", Status: domain.StatusCompleted}

	f.schemas.On("GetByID", mock.Anything, tenantID, schema.ID).Return(schema, nil)
	f.docRepo.On("ListCompletedBySchema", mock.Anything, tenantID, schema.ID).Return([]domain.Document{doc}, nil)
	f.fieldRepo.On("ListByDocument", mock.Anything, tenantID, doc.ID).Return([]domain.FieldValueDetail{
		{FieldValue: domain.FieldValue{RawValue: "INV-1", NormalizedValue: "INV-1"}, FieldLabel: "Invoice Number"},
	}, nil)

	var buf bytes.Buffer
	filename, err := f.svc.WriteCSV(context.Background(), &buf, tenantID, schema.ID)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "Invoices_2024_"), "filename %q", filename)
	assert.True(t, strings.HasSuffix(filename, ".csv"), "filename %q", filename)
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "\xef\xbb\xbf"), "output starts with a UTF-8 BOM")
	// One quoted cell per schema field, header included.
	assert.Contains(t, out, `"Invoice Number","Total"`)
	// The missing Total cell is rendered as an empty quoted string.
	assert.Contains(t, out, `"INV-1",""`)
}
