package service_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/config"
	"docuflow/internal/domain"
	"docuflow/internal/lifecycle"
	"docuflow/internal/port"
	"docuflow/internal/service"
	"docuflow/mocks"
)

// pngBytes is a minimal PNG header, enough for content sniffing.
var pngBytes = []byte("\x89PNG\r\n\x1a\n" + "padding so the file is not empty")

type docServiceFixture struct {
	svc       service.DocumentService
	docRepo   *mocks.MockDocumentRepo
	fieldRepo *mocks.MockFieldValueRepo
	logRepo   *mocks.MockProcessingLogRepo
	usageRepo *mocks.MockUsageRepo
	schemas   *mocks.MockSchemaRepo
	storage   *mocks.MockObjectStorage
	billing   *mocks.MockBilling
}

func newDocService() *docServiceFixture {
	f := &docServiceFixture{
		docRepo:   new(mocks.MockDocumentRepo),
		fieldRepo: new(mocks.MockFieldValueRepo),
		logRepo:   new(mocks.MockProcessingLogRepo),
		usageRepo: new(mocks.MockUsageRepo),
		schemas:   new(mocks.MockSchemaRepo),
		storage:   new(mocks.MockObjectStorage),
		billing:   new(mocks.MockBilling),
	}
	tracker := lifecycle.NewTracker(f.docRepo, f.fieldRepo, f.logRepo)
	cfg := &config.S3Config{Bucket: "docs", MaxFileSizeMB: 10, PresignExpiry: 900}
	f.svc = service.NewDocumentService(
		f.docRepo, f.fieldRepo, f.logRepo, f.usageRepo, f.schemas,
		f.storage, f.billing, tracker, cfg,
	)
	return f
}

func createMultipartFile(t *testing.T, filename string, content []byte) (multipart.File, *multipart.FileHeader) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(int64(len(content)) + 4096)
	require.NoError(t, err)
	header := form.File["file"][0]
	file, err := header.Open()
	require.NoError(t, err)
	return file, header
}

func TestUpload_Succeeds(t *testing.T) {
	f := newDocService()
	tenantID := uuid.New()
	file, header := createMultipartFile(t, "scan.png", pngBytes)

	f.billing.On("QuotaCeiling", mock.Anything, tenantID).Return(100, nil)
	f.usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.AnythingOfType("time.Time")).Return(10, nil)
	f.docRepo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.TenantID == tenantID &&
			d.FileType == domain.FileTypePNG &&
			d.PageCount == 1 &&
			d.Status == domain.StatusUploaded
	})).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.MatchedBy(func(in port.UploadInput) bool {
		return in.Bucket == "docs" && in.ContentType == "image/png"
	})).Return(&port.UploadOutput{}, nil)
	f.logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).Return(nil)

	doc, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID:   tenantID,
		UploadedBy: uuid.New(),
		File:       file,
		Header:     header,
	})
	require.NoError(t, err)
	assert.Equal(t, "scan.png", doc.OriginalFilename)
	assert.Equal(t, int64(len(pngBytes)), doc.FileSize)
	f.storage.AssertExpectations(t)
	f.logRepo.AssertExpectations(t)
}

func TestUpload_RejectsUnknownExtension(t *testing.T) {
	f := newDocService()
	file, header := createMultipartFile(t, "notes.txt", []byte("plain text"))

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: uuid.New(),
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	f.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_RejectsContentMismatchingExtension(t *testing.T) {
	f := newDocService()
	// Extension says PNG, bytes say plain text.
	file, header := createMultipartFile(t, "fake.png", []byte("this is not an image at all"))

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: uuid.New(),
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
	f.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestUpload_RejectsOversizedFile(t *testing.T) {
	f := newDocService()
	big := make([]byte, 11*1024*1024)
	copy(big, pngBytes)
	file, header := createMultipartFile(t, "huge.png", big)

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: uuid.New(),
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)
}

func TestUpload_QuotaExceededBeforeAnyWrite(t *testing.T) {
	f := newDocService()
	tenantID := uuid.New()
	file, header := createMultipartFile(t, "scan.png", pngBytes)

	f.billing.On("QuotaCeiling", mock.Anything, tenantID).Return(100, nil)
	f.usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.AnythingOfType("time.Time")).Return(100, nil)

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: tenantID,
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrQuotaExceeded)
	f.docRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	f.storage.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything)
}

func TestUpload_StorageFailureRollsBackMetadata(t *testing.T) {
	f := newDocService()
	tenantID := uuid.New()
	file, header := createMultipartFile(t, "scan.png", pngBytes)

	f.billing.On("QuotaCeiling", mock.Anything, tenantID).Return(100, nil)
	f.usageRepo.On("PagesUsedSince", mock.Anything, tenantID, mock.AnythingOfType("time.Time")).Return(0, nil)
	f.docRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Document")).Return(nil)
	f.storage.On("Upload", mock.Anything, mock.Anything).Return(nil, assert.AnError)
	f.docRepo.On("Delete", mock.Anything, tenantID, mock.AnythingOfType("uuid.UUID")).Return(nil)

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: tenantID,
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	f.docRepo.AssertCalled(t, "Delete", mock.Anything, tenantID, mock.AnythingOfType("uuid.UUID"))
}

func TestUpload_SchemaMustBelongToTenant(t *testing.T) {
	f := newDocService()
	tenantID, schemaID := uuid.New(), uuid.New()
	file, header := createMultipartFile(t, "scan.png", pngBytes)

	f.schemas.On("GetByID", mock.Anything, tenantID, schemaID).Return(nil, domain.ErrSchemaNotFound)

	_, err := f.svc.Upload(context.Background(), service.DocumentUploadInput{
		TenantID: tenantID,
		SchemaID: &schemaID,
		File:     file,
		Header:   header,
	})
	assert.ErrorIs(t, err, domain.ErrSchemaNotFound)
}

func TestDelete_BlockedWhileProcessing(t *testing.T) {
	f := newDocService()
	doc := &domain.Document{ID: uuid.New(), TenantID: uuid.New(), Status: domain.StatusProcessing}

	f.docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)

	err := f.svc.Delete(context.Background(), doc.TenantID, doc.ID)
	assert.ErrorIs(t, err, domain.ErrProcessingActive)
	f.docRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestDelete_RemovesRowAndBlob(t *testing.T) {
	f := newDocService()
	doc := &domain.Document{
		ID: uuid.New(), TenantID: uuid.New(),
		Status: domain.StatusCompleted, S3Bucket: "docs", S3Key: "k",
	}

	f.docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
	f.docRepo.On("Delete", mock.Anything, doc.TenantID, doc.ID).Return(nil)
	f.storage.On("Delete", mock.Anything, "docs", "k").Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), doc.TenantID, doc.ID))
	f.storage.AssertExpectations(t)
}

func TestDelete_BlobFailureIsNotFatal(t *testing.T) {
	f := newDocService()
	doc := &domain.Document{
		ID: uuid.New(), TenantID: uuid.New(),
		Status: domain.StatusFailed, S3Bucket: "docs", S3Key: "k",
	}

	f.docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
	f.docRepo.On("Delete", mock.Anything, doc.TenantID, doc.ID).Return(nil)
	f.storage.On("Delete", mock.Anything, "docs", "k").Return(assert.AnError)

	require.NoError(t, f.svc.Delete(context.Background(), doc.TenantID, doc.ID))
}

func TestOverrideFieldValue_RequiresCompletedDocument(t *testing.T) {
	f := newDocService()
	doc := &domain.Document{ID: uuid.New(), TenantID: uuid.New(), Status: domain.StatusProcessing}

	f.docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)

	err := f.svc.OverrideFieldValue(context.Background(), service.FieldOverrideInput{
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		ValueID:    uuid.New(),
		ReviewerID: uuid.New(),
		FinalValue: "corrected",
	})
	assert.ErrorIs(t, err, domain.ErrDocumentNotComplete)
	f.fieldRepo.AssertNotCalled(t, "SetFinalValue", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOverrideFieldValue_Succeeds(t *testing.T) {
	f := newDocService()
	doc := &domain.Document{ID: uuid.New(), TenantID: uuid.New(), Status: domain.StatusCompleted}
	valueID, reviewerID := uuid.New(), uuid.New()

	f.docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
	f.fieldRepo.On("SetFinalValue", mock.Anything, doc.TenantID, valueID, "corrected", reviewerID).Return(nil)
	f.logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).Return(nil)

	require.NoError(t, f.svc.OverrideFieldValue(context.Background(), service.FieldOverrideInput{
		TenantID:   doc.TenantID,
		DocumentID: doc.ID,
		ValueID:    valueID,
		ReviewerID: reviewerID,
		FinalValue: "corrected",
	}))
	f.fieldRepo.AssertExpectations(t)
}
