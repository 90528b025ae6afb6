package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
	"docuflow/internal/lifecycle"
	"docuflow/internal/pipeline"
	"docuflow/internal/port"
	"docuflow/mocks"
)

type pipelineFixture struct {
	engine     *pipeline.Engine
	docRepo    *mocks.MockDocumentRepo
	schemaRepo *mocks.MockSchemaRepo
	fieldRepo  *mocks.MockFieldValueRepo
	logRepo    *mocks.MockProcessingLogRepo
	storage    *mocks.MockObjectStorage
	ocr        *mocks.MockOCREngine
	extractor  *mocks.MockFieldExtractor
}

func newFixture() *pipelineFixture {
	f := &pipelineFixture{
		docRepo:    new(mocks.MockDocumentRepo),
		schemaRepo: new(mocks.MockSchemaRepo),
		fieldRepo:  new(mocks.MockFieldValueRepo),
		logRepo:    new(mocks.MockProcessingLogRepo),
		storage:    new(mocks.MockObjectStorage),
		ocr:        new(mocks.MockOCREngine),
		extractor:  new(mocks.MockFieldExtractor),
	}
	tracker := lifecycle.NewTracker(f.docRepo, f.fieldRepo, f.logRepo)
	f.engine = pipeline.NewEngine(
		tracker, f.schemaRepo, f.fieldRepo, f.storage, f.ocr, f.extractor,
		pipeline.Config{ReviewThreshold: 0.80, NormalizePenalty: 0.85},
	)
	return f
}

func processingDoc(schemaID *uuid.UUID) *domain.Document {
	return &domain.Document{
		ID:          uuid.New(),
		TenantID:    uuid.New(),
		SchemaID:    schemaID,
		S3Bucket:    "bucket",
		S3Key:       "key",
		ContentType: "application/pdf",
		Status:      domain.StatusProcessing,
	}
}

func invoiceSchema(tenantID uuid.UUID) *domain.Schema {
	return &domain.Schema{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Invoices",
		Fields: []domain.FieldDefinition{
			{ID: uuid.New(), Name: "invoice_number", Label: "Invoice Number", Type: domain.FieldTypeText, Required: true},
			{ID: uuid.New(), Name: "total", Label: "Total", Type: domain.FieldTypeNumber},
		},
	}
}

func (f *pipelineFixture) expectTrail() {
	f.logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).Return(nil)
}

func TestProcess_FullRunSettlesReviewFlags(t *testing.T) {
	f := newFixture()
	schema := invoiceSchema(uuid.New())
	doc := processingDoc(&schema.ID)
	doc.TenantID = schema.TenantID
	f.expectTrail()

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Name").Return("local-pdf")
	f.ocr.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.OCRResult{Text: "Invoice Number: INV-1\nTotal: 100", Pages: 1, Confidence: 0.95}, nil)
	f.docRepo.On("CancelRequested", mock.Anything, doc.TenantID, doc.ID).Return(false, nil)
	f.schemaRepo.On("GetByID", mock.Anything, doc.TenantID, schema.ID).Return(schema, nil)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {Value: "INV-1", Found: true, Confidence: 0.92},
		"total":          {Value: "100", Found: true, Confidence: 0.60},
	}, nil)

	f.fieldRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.FieldValue")).Return(nil).Times(2)

	// invoice_number: 0.92 >= 0.80, no review. total: 0.60 < 0.80, review.
	f.fieldRepo.On("UpdateNormalized", mock.Anything, doc.TenantID, mock.AnythingOfType("uuid.UUID"),
		"INV-1", 0.92, false).Return(nil)
	f.fieldRepo.On("UpdateNormalized", mock.Anything, doc.TenantID, mock.AnythingOfType("uuid.UUID"),
		"100", 0.60, true).Return(nil)

	// Overall confidence is the mean: (0.92 + 0.60) / 2 = 0.76.
	f.docRepo.On("Complete", mock.Anything, doc.TenantID, doc.ID, mock.MatchedBy(func(c *float64) bool {
		return c != nil && *c > 0.759 && *c < 0.761
	})).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	f.fieldRepo.AssertExpectations(t)
	f.docRepo.AssertExpectations(t)
}

func TestProcess_NoSchemaStopsAfterOCR(t *testing.T) {
	f := newFixture()
	doc := processingDoc(nil)
	f.expectTrail()

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Name").Return("local-pdf")
	f.ocr.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.OCRResult{Text: "some text", Pages: 2, Confidence: 0.88}, nil)
	f.docRepo.On("CancelRequested", mock.Anything, doc.TenantID, doc.ID).Return(false, nil)

	f.docRepo.On("Complete", mock.Anything, doc.TenantID, doc.ID, mock.MatchedBy(func(c *float64) bool {
		return c != nil && *c == 0.88
	})).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	f.fieldRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func TestProcess_OCRFailureFailsCycle(t *testing.T) {
	f := newFixture()
	doc := processingDoc(nil)

	var entries []*domain.ProcessingLogEntry
	f.logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).
		Run(func(args mock.Arguments) {
			entries = append(entries, args.Get(1).(*domain.ProcessingLogEntry))
		}).Return(nil)

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Recognize", mock.Anything, mock.Anything).Return(nil, errors.New("no text"))
	f.docRepo.On("Fail", mock.Anything, doc.TenantID, doc.ID, mock.MatchedBy(func(msg string) bool {
		return msg != ""
	})).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	f.docRepo.AssertExpectations(t)

	// The stage start is in the trail even though the stage never finished.
	require.NotEmpty(t, entries)
	require.Equal(t, domain.LogInfo, entries[0].Level)
	require.Equal(t, pipeline.StageOCR, entries[0].Stage)
	require.Equal(t, domain.LogError, entries[len(entries)-1].Level)
}

func TestProcess_ExtractionFailurePreservesCreatedValues(t *testing.T) {
	f := newFixture()
	schema := invoiceSchema(uuid.New())
	doc := processingDoc(&schema.ID)
	doc.TenantID = schema.TenantID
	f.expectTrail()

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Name").Return("local-pdf")
	f.ocr.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.OCRResult{Text: "text", Pages: 1, Confidence: 0.9}, nil)
	f.docRepo.On("CancelRequested", mock.Anything, doc.TenantID, doc.ID).Return(false, nil)
	f.schemaRepo.On("GetByID", mock.Anything, doc.TenantID, schema.ID).Return(schema, nil)
	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(nil, errors.New("all tiers failed"))
	f.docRepo.On("Fail", mock.Anything, doc.TenantID, doc.ID, mock.Anything).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	// No deletion of previously created field values on failure.
	f.fieldRepo.AssertNotCalled(t, "DeleteByDocument", mock.Anything, mock.Anything, mock.Anything)
	f.docRepo.AssertExpectations(t)
}

func TestProcess_CancellationBetweenStages(t *testing.T) {
	f := newFixture()
	schema := invoiceSchema(uuid.New())
	doc := processingDoc(&schema.ID)
	doc.TenantID = schema.TenantID
	f.expectTrail()

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Name").Return("local-pdf")
	f.ocr.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.OCRResult{Text: "text", Pages: 1, Confidence: 0.9}, nil)
	f.docRepo.On("CancelRequested", mock.Anything, doc.TenantID, doc.ID).Return(true, nil)
	f.docRepo.On("Fail", mock.Anything, doc.TenantID, doc.ID, mock.MatchedBy(func(msg string) bool {
		return msg == "cancelled: cancelled by user"
	})).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	f.extractor.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
	f.docRepo.AssertExpectations(t)
}

func TestProcess_RequiredFieldNotFoundFlagsReview(t *testing.T) {
	f := newFixture()
	schema := invoiceSchema(uuid.New())
	doc := processingDoc(&schema.ID)
	doc.TenantID = schema.TenantID
	f.expectTrail()

	f.storage.On("Download", mock.Anything, "bucket", "key").Return([]byte("pdf"), nil)
	f.ocr.On("Name").Return("local-pdf")
	f.ocr.On("Recognize", mock.Anything, mock.Anything).
		Return(&port.OCRResult{Text: "Total: 50", Pages: 1, Confidence: 0.9}, nil)
	f.docRepo.On("CancelRequested", mock.Anything, doc.TenantID, doc.ID).Return(false, nil)
	f.schemaRepo.On("GetByID", mock.Anything, doc.TenantID, schema.ID).Return(schema, nil)

	f.extractor.On("Extract", mock.Anything, mock.Anything).Return(map[string]port.FieldResult{
		"invoice_number": {}, // required, not found
		"total":          {Value: "50", Found: true, Confidence: 0.90},
	}, nil)

	f.fieldRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.FieldValue")).Return(nil).Times(2)
	f.fieldRepo.On("UpdateNormalized", mock.Anything, doc.TenantID, mock.AnythingOfType("uuid.UUID"),
		"", 0.0, true).Return(nil)
	f.fieldRepo.On("UpdateNormalized", mock.Anything, doc.TenantID, mock.AnythingOfType("uuid.UUID"),
		"50", 0.90, false).Return(nil)
	f.docRepo.On("Complete", mock.Anything, doc.TenantID, doc.ID, mock.Anything).Return(nil)

	require.NoError(t, f.engine.Process(context.Background(), doc))
	f.fieldRepo.AssertExpectations(t)
}
