package ocr

import (
	"context"
	"fmt"
	"time"

	"docuflow/internal/config"
	"docuflow/internal/port"
)

// PolicyEngine routes recognition to the right engine per content type:
// PDFs to the local content-stream extractor, images to the remote service.
// The "local" and "remote" modes force one engine for all inputs.
type PolicyEngine struct {
	mode    string
	local   port.OCREngine
	remote  port.OCREngine
	retries int
}

// NewPolicyEngine builds the routing engine from config.
func NewPolicyEngine(cfg *config.OCRConfig) *PolicyEngine {
	return &PolicyEngine{
		mode:    cfg.Engine,
		local:   NewLocalEngine(),
		remote:  NewRemoteEngine(cfg),
		retries: cfg.MaxRetries,
	}
}

func (e *PolicyEngine) Name() string { return "policy" }

func (e *PolicyEngine) Recognize(ctx context.Context, input port.OCRInput) (*port.OCRResult, error) {
	engine, err := e.pick(input.ContentType)
	if err != nil {
		return nil, err
	}
	return recognizeWithRetry(ctx, engine, input, e.retries)
}

func (e *PolicyEngine) pick(contentType string) (port.OCREngine, error) {
	switch e.mode {
	case "local":
		return e.local, nil
	case "remote":
		return e.remote, nil
	default: // auto
		if contentType == "application/pdf" {
			return e.local, nil
		}
		return e.remote, nil
	}
}

// recognizeWithRetry retries transient recognition failures with a short
// linear backoff. The caller's context bounds the total time.
func recognizeWithRetry(ctx context.Context, engine port.OCREngine, input port.OCRInput, retries int) (*port.OCRResult, error) {
	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
		result, err := engine.Recognize(ctx, input)
		if err == nil {
			return result, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("%s recognition failed after %d attempts: %w", engine.Name(), retries+1, lastErr)
}
