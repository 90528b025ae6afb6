package lifecycle_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
	"docuflow/internal/lifecycle"
	"docuflow/mocks"
)

func newTracker() (*lifecycle.Tracker, *mocks.MockDocumentRepo, *mocks.MockFieldValueRepo, *mocks.MockProcessingLogRepo) {
	docRepo := new(mocks.MockDocumentRepo)
	fieldRepo := new(mocks.MockFieldValueRepo)
	logRepo := new(mocks.MockProcessingLogRepo)
	return lifecycle.NewTracker(docRepo, fieldRepo, logRepo), docRepo, fieldRepo, logRepo
}

func testDoc(status domain.DocumentStatus) *domain.Document {
	return &domain.Document{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		Status:   status,
	}
}

func TestEnqueue_UploadedGoesStraightToQueue(t *testing.T) {
	tracker, docRepo, _, _ := newTracker()
	doc := testDoc(domain.StatusUploaded)

	docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
	docRepo.On("MarkQueued", mock.Anything, doc.TenantID, doc.ID).Return(nil)

	require.NoError(t, tracker.Enqueue(context.Background(), doc.TenantID, doc.ID))
	docRepo.AssertExpectations(t)
}

func TestEnqueue_ProcessingConflicts(t *testing.T) {
	tracker, docRepo, _, _ := newTracker()
	doc := testDoc(domain.StatusProcessing)

	docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)

	err := tracker.Enqueue(context.Background(), doc.TenantID, doc.ID)
	assert.ErrorIs(t, err, domain.ErrProcessingActive)
	docRepo.AssertNotCalled(t, "MarkQueued", mock.Anything, mock.Anything, mock.Anything)
}

func TestEnqueue_AlreadyQueuedConflicts(t *testing.T) {
	tracker, docRepo, _, _ := newTracker()
	doc := testDoc(domain.StatusUploaded)

	docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
	docRepo.On("MarkQueued", mock.Anything, doc.TenantID, doc.ID).Return(domain.ErrProcessingActive)

	err := tracker.Enqueue(context.Background(), doc.TenantID, doc.ID)
	assert.ErrorIs(t, err, domain.ErrProcessingActive)
}

func TestEnqueue_TerminalStartsFreshCycle(t *testing.T) {
	for _, status := range []domain.DocumentStatus{domain.StatusCompleted, domain.StatusFailed} {
		tracker, docRepo, fieldRepo, logRepo := newTracker()
		doc := testDoc(status)

		docRepo.On("GetByID", mock.Anything, doc.TenantID, doc.ID).Return(doc, nil)
		fieldRepo.On("DeleteByDocument", mock.Anything, doc.TenantID, doc.ID).Return(nil)
		docRepo.On("ResetForReprocess", mock.Anything, doc.TenantID, doc.ID).Return(nil)
		logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).Return(nil)
		docRepo.On("MarkQueued", mock.Anything, doc.TenantID, doc.ID).Return(nil)

		require.NoError(t, tracker.Enqueue(context.Background(), doc.TenantID, doc.ID), "status %s", status)

		// Field values superseded; the trail itself is retained and appended to.
		fieldRepo.AssertExpectations(t)
		docRepo.AssertExpectations(t)
		logRepo.AssertExpectations(t)
	}
}

func TestComplete_RecordsTrailEntry(t *testing.T) {
	tracker, docRepo, _, logRepo := newTracker()
	doc := testDoc(domain.StatusProcessing)
	conf := 0.76

	docRepo.On("Complete", mock.Anything, doc.TenantID, doc.ID, &conf).Return(nil)
	logRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.ProcessingLogEntry) bool {
		return e.Level == domain.LogInfo && e.Stage == "complete" && e.DocumentID == doc.ID
	})).Return(nil)

	require.NoError(t, tracker.Complete(context.Background(), doc, &conf))
	logRepo.AssertExpectations(t)
}

func TestFail_RecordsErrorEntry(t *testing.T) {
	tracker, docRepo, _, logRepo := newTracker()
	doc := testDoc(domain.StatusProcessing)

	logRepo.On("Create", mock.Anything, mock.MatchedBy(func(e *domain.ProcessingLogEntry) bool {
		return e.Level == domain.LogError && e.Stage == "ocr"
	})).Return(nil)
	docRepo.On("Fail", mock.Anything, doc.TenantID, doc.ID, "ocr: no text found").Return(nil)

	require.NoError(t, tracker.Fail(context.Background(), doc, "ocr", "no text found"))
	docRepo.AssertExpectations(t)
	logRepo.AssertExpectations(t)
}

func TestSweepStalled_LogsEachFailedDocument(t *testing.T) {
	tracker, docRepo, _, logRepo := newTracker()
	stalled := []domain.Document{*testDoc(domain.StatusProcessing), *testDoc(domain.StatusProcessing)}

	docRepo.On("SweepStalled", mock.Anything, mock.AnythingOfType("time.Time")).Return(stalled, nil)
	logRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ProcessingLogEntry")).Return(nil).Times(2)

	swept, err := tracker.SweepStalled(context.Background(), 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	logRepo.AssertExpectations(t)
}
