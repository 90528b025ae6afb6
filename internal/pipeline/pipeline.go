package pipeline

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docuflow/internal/domain"
	"docuflow/internal/extract"
	"docuflow/internal/lifecycle"
	"docuflow/internal/port"
)

// Stage names recorded in the processing trail.
const (
	StageOCR        = "ocr"
	StageExtraction = "extraction"
	StageNormalize  = "normalization"
	StageScoring    = "scoring"
	StageCancelled  = "cancelled"
)

// Config holds pipeline policy knobs.
type Config struct {
	// ReviewThreshold flags a field for review when its confidence is below it.
	ReviewThreshold float64
	// NormalizePenalty multiplies a field's confidence when normalization
	// cannot parse its raw value.
	NormalizePenalty float64
}

// Engine runs one document through the extraction pipeline:
// OCR, field extraction, normalization, scoring.
type Engine struct {
	tracker    *lifecycle.Tracker
	schemaRepo port.SchemaRepository
	fieldRepo  port.FieldValueRepository
	storage    port.ObjectStorage
	ocr        port.OCREngine
	extractor  port.FieldExtractor
	cfg        Config
}

// NewEngine creates a pipeline engine.
func NewEngine(
	tracker *lifecycle.Tracker,
	schemaRepo port.SchemaRepository,
	fieldRepo port.FieldValueRepository,
	storage port.ObjectStorage,
	ocrEngine port.OCREngine,
	extractor port.FieldExtractor,
	cfg Config,
) *Engine {
	if cfg.ReviewThreshold == 0 {
		cfg.ReviewThreshold = 0.80
	}
	if cfg.NormalizePenalty == 0 {
		cfg.NormalizePenalty = 0.85
	}
	return &Engine{
		tracker:    tracker,
		schemaRepo: schemaRepo,
		fieldRepo:  fieldRepo,
		storage:    storage,
		ocr:        ocrEngine,
		extractor:  extractor,
		cfg:        cfg,
	}
}

// Process runs the full pipeline for a claimed document. The document must
// already be in processing state. Errors terminate the cycle via the tracker;
// the returned error is for worker logging only.
func (e *Engine) Process(ctx context.Context, doc *domain.Document) error {
	e.tracker.Log(ctx, doc, domain.LogInfo, StageOCR, "starting text recognition")
	data, err := e.storage.Download(ctx, doc.S3Bucket, doc.S3Key)
	if err != nil {
		return e.tracker.Fail(ctx, doc, StageOCR, fmt.Sprintf("downloading document: %v", err))
	}

	ocrResult, err := e.ocr.Recognize(ctx, port.OCRInput{
		FileBytes:   data,
		ContentType: doc.ContentType,
	})
	if err != nil {
		return e.tracker.Fail(ctx, doc, StageOCR, fmt.Sprintf("text recognition failed: %v", err))
	}
	e.tracker.Log(ctx, doc, domain.LogInfo, StageOCR,
		fmt.Sprintf("recognized %d characters across %d pages (%s, confidence %.2f)",
			len(ocrResult.Text), ocrResult.Pages, e.ocr.Name(), ocrResult.Confidence))

	if e.tracker.ShouldCancel(ctx, doc) {
		return e.tracker.Fail(ctx, doc, StageCancelled, "cancelled by user")
	}

	// Documents without a schema stop after OCR; their overall confidence is
	// the recognition confidence.
	if doc.SchemaID == nil {
		overall := ocrResult.Confidence
		return e.tracker.Complete(ctx, doc, &overall)
	}

	schema, err := e.schemaRepo.GetByID(ctx, doc.TenantID, *doc.SchemaID)
	if err != nil {
		return e.tracker.Fail(ctx, doc, StageExtraction, fmt.Sprintf("loading schema: %v", err))
	}

	e.tracker.Log(ctx, doc, domain.LogInfo, StageExtraction,
		fmt.Sprintf("starting field extraction (%d fields)", len(schema.Fields)))
	results, err := e.extractor.Extract(ctx, port.ExtractInput{
		Text:   ocrResult.Text,
		Fields: schema.Fields,
	})
	if err != nil {
		return e.tracker.Fail(ctx, doc, StageExtraction, fmt.Sprintf("field extraction failed: %v", err))
	}

	values := make([]*domain.FieldValue, 0, len(schema.Fields))
	found := 0
	for _, field := range schema.Fields {
		result := results[field.Name]
		value := &domain.FieldValue{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			FieldID:    field.ID,
			TenantID:   doc.TenantID,
			RawValue:   result.Value,
			Confidence: result.Confidence,
		}
		if err := e.fieldRepo.Create(ctx, value); err != nil {
			return e.tracker.Fail(ctx, doc, StageExtraction, fmt.Sprintf("storing field value: %v", err))
		}
		values = append(values, value)
		if result.Found {
			found++
		}
	}
	e.tracker.Log(ctx, doc, domain.LogInfo, StageExtraction,
		fmt.Sprintf("extracted %d of %d fields", found, len(schema.Fields)))

	if e.tracker.ShouldCancel(ctx, doc) {
		return e.tracker.Fail(ctx, doc, StageCancelled, "cancelled by user")
	}

	e.tracker.Log(ctx, doc, domain.LogInfo, StageNormalize, "starting normalization")
	if err := e.normalize(ctx, doc, schema, values); err != nil {
		return e.tracker.Fail(ctx, doc, StageNormalize, fmt.Sprintf("normalization failed: %v", err))
	}

	overall := e.score(values)
	e.tracker.Log(ctx, doc, domain.LogInfo, StageScoring,
		fmt.Sprintf("overall confidence %.2f", overall))

	return e.tracker.Complete(ctx, doc, &overall)
}

// normalize converts raw values to canonical forms and settles per-field
// review flags. A value normalization can fail without failing the stage;
// the field keeps its raw value at reduced confidence.
func (e *Engine) normalize(ctx context.Context, doc *domain.Document, schema *domain.Schema, values []*domain.FieldValue) error {
	fieldsByID := make(map[uuid.UUID]*domain.FieldDefinition, len(schema.Fields))
	for i := range schema.Fields {
		fieldsByID[schema.Fields[i].ID] = &schema.Fields[i]
	}

	for _, value := range values {
		field, ok := fieldsByID[value.FieldID]
		if !ok {
			return fmt.Errorf("field %s missing from schema", value.FieldID)
		}

		normalized := ""
		confidence := value.Confidence
		if value.RawValue != "" {
			var parsed bool
			normalized, parsed = extract.Normalize(field.Type, value.RawValue, field.Options)
			if !parsed {
				confidence *= e.cfg.NormalizePenalty
				e.tracker.Log(ctx, doc, domain.LogWarning, StageNormalize,
					fmt.Sprintf("could not normalize %s value %q, kept raw", field.Name, value.RawValue))
			}
		}

		needsReview := confidence < e.cfg.ReviewThreshold ||
			(field.Required && value.RawValue == "")

		if err := e.fieldRepo.UpdateNormalized(ctx, doc.TenantID, value.ID, normalized, confidence, needsReview); err != nil {
			return err
		}
		value.NormalizedValue = normalized
		value.Confidence = confidence
		value.NeedsReview = needsReview
	}
	return nil
}

// score computes the mean confidence across all field values.
func (e *Engine) score(values []*domain.FieldValue) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v.Confidence
	}
	return sum / float64(len(values))
}
