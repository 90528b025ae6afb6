package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"docuflow/internal/config"
	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// LLMExtractor is the expensive tier: it sends the recognized text and field
// definitions to an OpenAI-compatible chat completions endpoint and expects a
// JSON object with per-field values and confidences.
type LLMExtractor struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewLLMExtractor creates an LLM extraction tier from config.
func NewLLMExtractor(cfg *config.ExtractTierConfig) *LLMExtractor {
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &LLMExtractor{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *LLMExtractor) Name() string { return "llm" }

func (e *LLMExtractor) Extract(ctx context.Context, input port.ExtractInput) (map[string]port.FieldResult, error) {
	prompt := buildPrompt(input)

	reqBody := map[string]interface{}{
		"model":                 e.model,
		"max_completion_tokens": 4096,
		"messages": []map[string]interface{}{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
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
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling extraction API: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		baseErr := fmt.Errorf("extraction API error (status %d): %s", resp.StatusCode, string(respBody))
		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
			return nil, NewRateLimitError(e.Name(), baseErr, retryAfter)
		}
		return nil, baseErr
	}

	return parseResponse(respBody, input.Fields)
}

func buildPrompt(input port.ExtractInput) string {
	var sb strings.Builder
	sb.WriteString("Extract the following fields from the document text below. ")
	sb.WriteString("Respond with a single JSON object. For each field use the field name as key ")
	sb.WriteString("and the extracted value as a string, or null if not present. ")
	sb.WriteString("Also include a key \"field_confidence\" mapping each field name to a confidence between 0 and 1.\n\nFields:\n")
	for _, f := range input.Fields {
		sb.WriteString(fmt.Sprintf("- %s (%s): %s", f.Name, f.Type, f.Label))
		if f.Type == domain.FieldTypeDropdown && len(f.Options) > 0 {
			sb.WriteString(" [one of: " + strings.Join(f.Options, ", ") + "]")
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("\nDocument text:\n")
	sb.WriteString(input.Text)
	return sb.String()
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func parseResponse(body []byte, fields []domain.FieldDefinition) (map[string]port.FieldResult, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from API: no choices")
	}
	if resp.Choices[0].FinishReason == "length" {
		return nil, fmt.Errorf("output truncated (finish_reason: length)")
	}

	content := stripCodeFences(resp.Choices[0].Message.Content)

	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("unmarshaling extraction payload: %w", err)
	}

	confidences := map[string]float64{}
	if raw, ok := payload["field_confidence"]; ok {
		_ = json.Unmarshal(raw, &confidences)
	}

	results := make(map[string]port.FieldResult, len(fields))
	for _, f := range fields {
		raw, ok := payload[f.Name]
		if !ok || string(raw) == "null" {
			results[f.Name] = port.FieldResult{}
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			// Model returned a number or bool; keep the raw token.
			value = strings.Trim(string(raw), `"`)
		}
		if strings.TrimSpace(value) == "" {
			results[f.Name] = port.FieldResult{}
			continue
		}
		conf, ok := confidences[f.Name]
		if !ok {
			conf = 0.5
		}
		results[f.Name] = port.FieldResult{Value: value, Found: true, Confidence: conf}
	}
	return results, nil
}

// stripCodeFences removes a surrounding ```json ... ``` block if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
