package extract

import (
	"context"
	"regexp"
	"strings"

	"docuflow/internal/domain"
	"docuflow/internal/port"
)

// Confidence levels assigned by the pattern tier. A value sitting right next
// to its field label is strong evidence; a bare type match elsewhere in the
// text is weak and usually escalates to the next tier.
const (
	confLabelMatch = 0.90
	confTypeMatch  = 0.60
)

// typePatterns match a value of a given field type anywhere in a line.
var typePatterns = map[domain.FieldType]*regexp.Regexp{
	domain.FieldTypeNumber: regexp.MustCompile(`[-+]?[\d,]+(?:\.\d+)?`),
	domain.FieldTypeDate:   regexp.MustCompile(`\d{4}[-/]\d{1,2}[-/]\d{1,2}|\d{1,2}[-/]\d{1,2}[-/]\d{2,4}|(?i)(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]* \d{1,2},? \d{4}`),
	domain.FieldTypeEmail:  regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`),
	domain.FieldTypePhone:  regexp.MustCompile(`\+?\d[\d\s().\-]{6,}\d`),
}

// PatternExtractor is the cheap first tier: it looks for field labels in the
// recognized text and takes the value adjacent to them, falling back to a
// bare type match.
type PatternExtractor struct{}

// NewPatternExtractor creates the label-proximity pattern tier.
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{}
}

func (e *PatternExtractor) Name() string { return "pattern" }

func (e *PatternExtractor) Extract(_ context.Context, input port.ExtractInput) (map[string]port.FieldResult, error) {
	lines := strings.Split(input.Text, "\n")
	results := make(map[string]port.FieldResult, len(input.Fields))

	for _, field := range input.Fields {
		if value, ok := findByLabel(lines, field); ok {
			results[field.Name] = port.FieldResult{Value: value, Found: true, Confidence: confLabelMatch}
			continue
		}
		if value, ok := findByType(input.Text, field); ok {
			results[field.Name] = port.FieldResult{Value: value, Found: true, Confidence: confTypeMatch}
			continue
		}
		results[field.Name] = port.FieldResult{}
	}
	return results, nil
}

// findByLabel looks for the field's label (or name) followed by a value on
// the same line, e.g. "Invoice Number: INV-0042".
func findByLabel(lines []string, field domain.FieldDefinition) (string, bool) {
	labels := []string{field.Label, strings.ReplaceAll(field.Name, "_", " ")}
	for _, line := range lines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			label = strings.ToLower(strings.TrimSpace(label))
			if label == "" {
				continue
			}
			idx := strings.Index(lower, label)
			if idx < 0 {
				continue
			}
			rest := line[idx+len(label):]
			rest = strings.TrimLeft(rest, " \t:=-#")
			value := valueForType(rest, field)
			if value != "" {
				return value, true
			}
		}
	}
	return "", false
}

// valueForType trims a label remainder down to a value matching the field type.
func valueForType(rest string, field domain.FieldDefinition) string {
	rest = strings.TrimSpace(rest)
	if rest == "" {
		return ""
	}

	if re, ok := typePatterns[field.Type]; ok {
		if m := re.FindString(rest); m != "" {
			return strings.TrimSpace(m)
		}
		return ""
	}

	switch field.Type {
	case domain.FieldTypeDropdown:
		lower := strings.ToLower(rest)
		for _, opt := range field.Options {
			if strings.Contains(lower, strings.ToLower(opt)) {
				return opt
			}
		}
		return ""
	case domain.FieldTypeCheckbox:
		lower := strings.ToLower(rest)
		for _, tok := range []string{"yes", "no", "true", "false", "x", "checked", "unchecked"} {
			if strings.HasPrefix(lower, tok) {
				return tok
			}
		}
		return ""
	default: // text
		// Take the line remainder up to a run of multiple spaces (column gap).
		if idx := strings.Index(rest, "   "); idx > 0 {
			rest = rest[:idx]
		}
		return strings.TrimSpace(rest)
	}
}

// findByType scans the whole text for a value shaped like the field type.
// Only applies to types with a distinctive shape.
func findByType(text string, field domain.FieldDefinition) (string, bool) {
	switch field.Type {
	case domain.FieldTypeEmail, domain.FieldTypePhone, domain.FieldTypeDate:
		if m := typePatterns[field.Type].FindString(text); m != "" {
			return strings.TrimSpace(m), true
		}
	case domain.FieldTypeDropdown:
		lower := strings.ToLower(text)
		for _, opt := range field.Options {
			if strings.Contains(lower, strings.ToLower(opt)) {
				return opt, true
			}
		}
	}
	return "", false
}
