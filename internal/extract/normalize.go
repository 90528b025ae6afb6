package extract

import (
	"regexp"
	"strings"
	"time"

	"docuflow/internal/domain"
)

// dateLayouts are tried in order when normalizing a date value.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01-02-2006",
	"02.01.2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02/01/06",
	"01/02/06",
}

var (
	numberCleanRe = regexp.MustCompile(`[^\d.\-+]`)
	emailRe       = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)
	phoneKeepRe   = regexp.MustCompile(`[^\d+]`)
)

// Normalize converts a raw extracted value into the canonical form for the
// field type. The second return reports success; on failure the raw value is
// returned unchanged so the caller can keep it with reduced confidence.
func Normalize(fieldType domain.FieldType, raw string, options []string) (string, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return "", false
	}

	switch fieldType {
	case domain.FieldTypeDate:
		return normalizeDate(value)
	case domain.FieldTypeNumber:
		return normalizeNumber(value)
	case domain.FieldTypeEmail:
		lower := strings.ToLower(value)
		if !emailRe.MatchString(lower) {
			return raw, false
		}
		return lower, true
	case domain.FieldTypePhone:
		return normalizePhone(value)
	case domain.FieldTypeCheckbox:
		return normalizeCheckbox(value)
	case domain.FieldTypeDropdown:
		return normalizeDropdown(value, options)
	default: // text
		return value, true
	}
}

// normalizeDate parses common date formats into ISO 8601 (YYYY-MM-DD).
func normalizeDate(value string) (string, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return value, false
}

// normalizeNumber strips currency symbols and thousands separators, keeping
// sign and decimal point.
func normalizeNumber(value string) (string, bool) {
	cleaned := numberCleanRe.ReplaceAllString(value, "")
	cleaned = strings.TrimPrefix(cleaned, "+")
	if cleaned == "" || cleaned == "-" || cleaned == "." {
		return value, false
	}
	if strings.Count(cleaned, ".") > 1 || strings.LastIndex(cleaned, "-") > 0 {
		return value, false
	}
	return cleaned, true
}

// normalizePhone keeps digits, preserving a leading plus.
func normalizePhone(value string) (string, bool) {
	plus := strings.HasPrefix(strings.TrimSpace(value), "+")
	digits := phoneKeepRe.ReplaceAllString(value, "")
	digits = strings.ReplaceAll(digits, "+", "")
	if len(digits) < 7 || len(digits) > 15 {
		return value, false
	}
	if plus {
		return "+" + digits, true
	}
	return digits, true
}

func normalizeCheckbox(value string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "y", "x", "checked", "on", "1":
		return "true", true
	case "false", "no", "n", "unchecked", "off", "0", "":
		return "false", true
	}
	return value, false
}

// normalizeDropdown matches the value against the field's options,
// case-insensitively.
func normalizeDropdown(value string, options []string) (string, bool) {
	lower := strings.ToLower(strings.TrimSpace(value))
	for _, opt := range options {
		if strings.ToLower(opt) == lower {
			return opt, true
		}
	}
	// Accept a unique substring match, e.g. "net 30 days" against "Net 30".
	var match string
	for _, opt := range options {
		if strings.Contains(lower, strings.ToLower(opt)) {
			if match != "" {
				return value, false
			}
			match = opt
		}
	}
	if match != "" {
		return match, true
	}
	return value, false
}
