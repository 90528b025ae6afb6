package port

import "context"

// OCRInput carries the raw file bytes for text recognition.
type OCRInput struct {
	FileBytes   []byte
	ContentType string
}

// OCRResult is the recognized text plus an engine-level confidence estimate.
type OCRResult struct {
	Text       string
	Pages      int
	Confidence float64
}

// OCREngine abstracts text recognition. Implementations exist for embedded
// PDF text extraction and for remote OCR services.
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, input OCRInput) (*OCRResult, error)
}
