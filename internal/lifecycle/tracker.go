package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// Tracker owns document status transitions and the processing trail. All
// moves between lifecycle states go through here so that the legal
// transition graph lives in one place.
type Tracker struct {
	docRepo   port.DocumentRepository
	fieldRepo port.FieldValueRepository
	logRepo   port.ProcessingLogRepository
}

// NewTracker creates a lifecycle tracker.
func NewTracker(docRepo port.DocumentRepository, fieldRepo port.FieldValueRepository, logRepo port.ProcessingLogRepository) *Tracker {
	return &Tracker{docRepo: docRepo, fieldRepo: fieldRepo, logRepo: logRepo}
}

// Enqueue requests processing for a document. Uploaded documents are queued
// directly; terminal documents start a fresh cycle, superseding their field
// values but keeping the previous processing trail. A document already
// queued or in flight returns ErrProcessingActive.
func (t *Tracker) Enqueue(ctx context.Context, tenantID, docID uuid.UUID) error {
	doc, err := t.docRepo.GetByID(ctx, tenantID, docID)
	if err != nil {
		return err
	}

	switch doc.Status {
	case domain.StatusProcessing:
		return domain.ErrProcessingActive

	case domain.StatusUploaded:
		return t.docRepo.MarkQueued(ctx, tenantID, docID)

	case domain.StatusCompleted, domain.StatusFailed:
		// Fresh cycle: previous field values are superseded, the trail stays.
		if err := t.fieldRepo.DeleteByDocument(ctx, tenantID, docID); err != nil {
			return err
		}
		if err := t.docRepo.ResetForReprocess(ctx, tenantID, docID); err != nil {
			return err
		}
		t.Log(ctx, doc, domain.LogInfo, "queue", "reprocess requested, previous results superseded")
		return t.docRepo.MarkQueued(ctx, tenantID, docID)

	default:
		return fmt.Errorf("unknown document status %q", doc.Status)
	}
}

// Claim atomically claims up to limit queued documents for processing.
func (t *Tracker) Claim(ctx context.Context, limit int) ([]domain.Document, error) {
	return t.docRepo.ClaimQueued(ctx, limit)
}

// Complete finishes a processing cycle successfully.
func (t *Tracker) Complete(ctx context.Context, doc *domain.Document, overallConfidence *float64) error {
	if err := t.docRepo.Complete(ctx, doc.TenantID, doc.ID, overallConfidence); err != nil {
		return err
	}
	msg := "processing completed"
	if overallConfidence != nil {
		msg = fmt.Sprintf("processing completed (overall confidence %.2f)", *overallConfidence)
	}
	t.Log(ctx, doc, domain.LogInfo, "complete", msg)
	return nil
}

// Fail terminates a processing cycle at the named stage.
func (t *Tracker) Fail(ctx context.Context, doc *domain.Document, stage, msg string) error {
	t.Log(ctx, doc, domain.LogError, stage, msg)
	return t.docRepo.Fail(ctx, doc.TenantID, doc.ID, fmt.Sprintf("%s: %s", stage, msg))
}

// ShouldCancel reports whether a cancellation was requested for the document.
// Checked between pipeline stages; cancellation is cooperative.
func (t *Tracker) ShouldCancel(ctx context.Context, doc *domain.Document) bool {
	requested, err := t.docRepo.CancelRequested(ctx, doc.TenantID, doc.ID)
	if err != nil {
		log.Printf("lifecycle.Tracker.ShouldCancel: %v", err)
		return false
	}
	return requested
}

// SweepStalled fails documents stuck in processing longer than the timeout
// (e.g. after a worker crash) and records the reason in their trails.
func (t *Tracker) SweepStalled(ctx context.Context, timeout time.Duration) (int, error) {
	docs, err := t.docRepo.SweepStalled(ctx, time.Now().UTC().Add(-timeout))
	if err != nil {
		return 0, err
	}
	for i := range docs {
		t.Log(ctx, &docs[i], domain.LogError, "sweep", "processing stalled past timeout, marked failed")
	}
	return len(docs), nil
}

// Log appends an entry to the document's processing trail. Trail writes are
// best-effort; a failed insert never fails the pipeline.
func (t *Tracker) Log(ctx context.Context, doc *domain.Document, level domain.LogLevel, stage, message string) {
	entry := &domain.ProcessingLogEntry{
		ID:         uuid.New(),
		DocumentID: doc.ID,
		TenantID:   doc.TenantID,
		Level:      level,
		Stage:      stage,
		Message:    message,
	}
	if err := t.logRepo.Create(ctx, entry); err != nil {
		log.Printf("lifecycle.Tracker.Log: %v", err)
	}
}
