package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/config"
	"docuflow/internal/domain"
	"docuflow/internal/lifecycle"
	"docuflow/internal/ocr"
	"docuflow/internal/port"
)

// DocumentUploadInput is the DTO for document upload requests.
type DocumentUploadInput struct {
	TenantID   uuid.UUID
	UploadedBy uuid.UUID
	SchemaID   *uuid.UUID
	File       multipart.File
	Header     *multipart.FileHeader
}

// FieldOverrideInput is the DTO for reviewer value overrides.
type FieldOverrideInput struct {
	TenantID   uuid.UUID
	DocumentID uuid.UUID
	ValueID    uuid.UUID
	ReviewerID uuid.UUID
	FinalValue string `json:"final_value" binding:"required"`
}

// DocumentService defines the ingestion and lifecycle contract.
type DocumentService interface {
	Upload(ctx context.Context, input DocumentUploadInput) (*domain.Document, error)
	GetByID(ctx context.Context, tenantID, docID uuid.UUID) (*domain.Document, error)
	List(ctx context.Context, tenantID uuid.UUID, filter domain.DocumentFilter, offset, limit int) ([]domain.Document, int, error)
	Delete(ctx context.Context, tenantID, docID uuid.UUID) error
	GetDownloadURL(ctx context.Context, tenantID, docID uuid.UUID) (string, error)
	Process(ctx context.Context, tenantID, docID uuid.UUID) error
	Cancel(ctx context.Context, tenantID, docID uuid.UUID) error
	GetFields(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.FieldValueDetail, error)
	GetLogs(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.ProcessingLogEntry, error)
	OverrideFieldValue(ctx context.Context, input FieldOverrideInput) error
}

type documentService struct {
	docRepo    port.DocumentRepository
	fieldRepo  port.FieldValueRepository
	logRepo    port.ProcessingLogRepository
	usageRepo  port.UsageRepository
	schemaRepo port.SchemaRepository
	storage    port.ObjectStorage
	billing    port.Billing
	tracker    *lifecycle.Tracker
	cfg        *config.S3Config
}

// NewDocumentService creates a new DocumentService implementation.
func NewDocumentService(
	docRepo port.DocumentRepository,
	fieldRepo port.FieldValueRepository,
	logRepo port.ProcessingLogRepository,
	usageRepo port.UsageRepository,
	schemaRepo port.SchemaRepository,
	storage port.ObjectStorage,
	billing port.Billing,
	tracker *lifecycle.Tracker,
	cfg *config.S3Config,
) DocumentService {
	return &documentService{
		docRepo:    docRepo,
		fieldRepo:  fieldRepo,
		logRepo:    logRepo,
		usageRepo:  usageRepo,
		schemaRepo: schemaRepo,
		storage:    storage,
		billing:    billing,
		tracker:    tracker,
		cfg:        cfg,
	}
}

func (s *documentService) Upload(ctx context.Context, input DocumentUploadInput) (*domain.Document, error) {
	// Validate file extension
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(input.Header.Filename), "."))
	fileType, ok := domain.AllowedExtensions[ext]
	if !ok {
		return nil, domain.ErrUnsupportedFileType
	}

	// Validate file size
	maxBytes := s.cfg.MaxFileSizeMB * 1024 * 1024
	if input.Header.Size > maxBytes {
		return nil, domain.ErrFileTooLarge
	}

	// The schema, if given, must exist and belong to the tenant.
	if input.SchemaID != nil {
		if _, err := s.schemaRepo.GetByID(ctx, input.TenantID, *input.SchemaID); err != nil {
			return nil, err
		}
	}

	data, err := io.ReadAll(input.File)
	if err != nil {
		return nil, fmt.Errorf("reading upload: %w", err)
	}

	// Magic-byte content type detection; the extension alone is not trusted.
	sniffLen := 512
	if len(data) < sniffLen {
		sniffLen = len(data)
	}
	detectedType := http.DetectContentType(data[:sniffLen])
	detectedFileType, validContent := domain.AllowedContentTypes[detectedType]
	if !validContent || detectedFileType != fileType {
		return nil, domain.ErrUnsupportedFileType
	}

	pageCount := 1
	if fileType == domain.FileTypePDF {
		pageCount, err = ocr.PDFPageCount(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedFileType, err)
		}
	}

	// Quota check happens before any write so a rejected upload leaves no trace.
	if err := s.checkQuota(ctx, input.TenantID, pageCount); err != nil {
		return nil, err
	}

	docID := uuid.New()
	s3Key := fmt.Sprintf("tenants/%s/documents/%s/%s", input.TenantID, docID, input.Header.Filename)

	doc := &domain.Document{
		ID:               docID,
		TenantID:         input.TenantID,
		SchemaID:         input.SchemaID,
		UploadedBy:       input.UploadedBy,
		OriginalFilename: input.Header.Filename,
		S3Bucket:         s.cfg.Bucket,
		S3Key:            s3Key,
		FileType:         fileType,
		ContentType:      detectedType,
		FileSize:         int64(len(data)),
		PageCount:        pageCount,
		Status:           domain.StatusUploaded,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	_, err = s.storage.Upload(ctx, port.UploadInput{
		Bucket:      s.cfg.Bucket,
		Key:         s3Key,
		Body:        bytes.NewReader(data),
		ContentType: detectedType,
		Size:        int64(len(data)),
	})
	if err != nil {
		// Roll back the metadata row so a failed upload leaves no orphan.
		if delErr := s.docRepo.Delete(ctx, input.TenantID, docID); delErr != nil {
			log.Printf("documentService.Upload: rollback failed for %s: %v", docID, delErr)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailed, err)
	}

	s.tracker.Log(ctx, doc, domain.LogInfo, "upload",
		fmt.Sprintf("uploaded %s (%d bytes, %d pages)", doc.OriginalFilename, doc.FileSize, doc.PageCount))
	return doc, nil
}

// checkQuota rejects the upload when the tenant's period consumption plus
// the new pages would exceed its ceiling.
func (s *documentService) checkQuota(ctx context.Context, tenantID uuid.UUID, pages int) error {
	ceiling, err := s.billing.QuotaCeiling(ctx, tenantID)
	if err != nil {
		return fmt.Errorf("resolving quota: %w", err)
	}
	used, err := s.usageRepo.PagesUsedSince(ctx, tenantID, periodStart(time.Now().UTC()))
	if err != nil {
		return err
	}
	if used+pages > ceiling {
		return fmt.Errorf("%w: %d of %d pages used, upload needs %d",
			domain.ErrQuotaExceeded, used, ceiling, pages)
	}
	return nil
}

func (s *documentService) GetByID(ctx context.Context, tenantID, docID uuid.UUID) (*domain.Document, error) {
	return s.docRepo.GetByID(ctx, tenantID, docID)
}

func (s *documentService) List(ctx context.Context, tenantID uuid.UUID, filter domain.DocumentFilter, offset, limit int) ([]domain.Document, int, error) {
	return s.docRepo.ListByTenant(ctx, tenantID, filter, offset, limit)
}

func (s *documentService) Delete(ctx context.Context, tenantID, docID uuid.UUID) error {
	doc, err := s.docRepo.GetByID(ctx, tenantID, docID)
	if err != nil {
		return err
	}
	if doc.Status == domain.StatusProcessing {
		return domain.ErrProcessingActive
	}
	if err := s.docRepo.Delete(ctx, tenantID, docID); err != nil {
		return err
	}
	// Blob removal is best-effort; the metadata row is authoritative.
	if err := s.storage.Delete(ctx, doc.S3Bucket, doc.S3Key); err != nil {
		log.Printf("documentService.Delete: removing blob for %s: %v", docID, err)
	}
	return nil
}

func (s *documentService) GetDownloadURL(ctx context.Context, tenantID, docID uuid.UUID) (string, error) {
	doc, err := s.docRepo.GetByID(ctx, tenantID, docID)
	if err != nil {
		return "", err
	}
	return s.storage.GetPresignedURL(ctx, doc.S3Bucket, doc.S3Key, s.cfg.PresignExpiry)
}

func (s *documentService) Process(ctx context.Context, tenantID, docID uuid.UUID) error {
	return s.tracker.Enqueue(ctx, tenantID, docID)
}

func (s *documentService) Cancel(ctx context.Context, tenantID, docID uuid.UUID) error {
	return s.docRepo.RequestCancel(ctx, tenantID, docID)
}

func (s *documentService) GetFields(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.FieldValueDetail, error) {
	if _, err := s.docRepo.GetByID(ctx, tenantID, docID); err != nil {
		return nil, err
	}
	return s.fieldRepo.ListByDocument(ctx, tenantID, docID)
}

func (s *documentService) GetLogs(ctx context.Context, tenantID, docID uuid.UUID) ([]domain.ProcessingLogEntry, error) {
	if _, err := s.docRepo.GetByID(ctx, tenantID, docID); err != nil {
		return nil, err
	}
	return s.logRepo.ListByDocument(ctx, tenantID, docID)
}

func (s *documentService) OverrideFieldValue(ctx context.Context, input FieldOverrideInput) error {
	doc, err := s.docRepo.GetByID(ctx, input.TenantID, input.DocumentID)
	if err != nil {
		return err
	}
	if doc.Status != domain.StatusCompleted {
		return domain.ErrDocumentNotComplete
	}
	if err := s.fieldRepo.SetFinalValue(ctx, input.TenantID, input.ValueID, input.FinalValue, input.ReviewerID); err != nil {
		return err
	}
	s.tracker.Log(ctx, doc, domain.LogInfo, "review",
		fmt.Sprintf("field value %s overridden by reviewer", input.ValueID))
	return nil
}

// periodStart returns the first instant of the calendar month containing t.
func periodStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
