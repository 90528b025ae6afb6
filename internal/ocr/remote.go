package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"docuflow/internal/config"
	"docuflow/internal/port"
)

// RemoteEngine calls an external OCR HTTP service. The service accepts the
// file as a base64 data URI and returns recognized text with a confidence.
type RemoteEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewRemoteEngine creates an HTTP-backed OCR engine from config.
func NewRemoteEngine(cfg *config.OCRConfig) *RemoteEngine {
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &RemoteEngine{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *RemoteEngine) Name() string { return "remote-ocr" }

type remoteRequest struct {
	FileData    string `json:"file_data"`
	ContentType string `json:"content_type"`
}

type remoteResponse struct {
	Text       string  `json:"text"`
	Pages      int     `json:"pages"`
	Confidence float64 `json:"confidence"`
}

func (e *RemoteEngine) Recognize(ctx context.Context, input port.OCRInput) (*port.OCRResult, error) {
	if e.endpoint == "" {
		return nil, fmt.Errorf("remote OCR endpoint not configured")
	}

	reqBody := remoteRequest{
		FileData:    fmt.Sprintf("data:%s;base64,%s", input.ContentType, base64.StdEncoding.EncodeToString(input.FileBytes)),
		ContentType: input.ContentType,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ocr service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocr service error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var out remoteResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if out.Text == "" {
		return nil, fmt.Errorf("ocr service returned no text")
	}
	if out.Pages == 0 {
		out.Pages = 1
	}

	return &port.OCRResult{
		Text:       out.Text,
		Pages:      out.Pages,
		Confidence: out.Confidence,
	}, nil
}
