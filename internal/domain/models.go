package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Schema is a tenant-defined extraction template describing which fields to
// pull out of a document.
type Schema struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TenantID    uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Version     int       `db:"version" json:"version"`
	CreatedBy   uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	// Fields is loaded separately, ordered by display order.
	Fields []FieldDefinition `db:"-" json:"fields"`
}

// FieldDefinition is one named, typed slot within a Schema. Name is the
// machine key and is immutable once extracted data references it.
type FieldDefinition struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	SchemaID     uuid.UUID  `db:"schema_id" json:"schema_id"`
	Name         string     `db:"name" json:"name"`
	Label        string     `db:"label" json:"label"`
	Type         FieldType  `db:"field_type" json:"field_type"`
	Required     bool       `db:"required" json:"required"`
	Options      StringList `db:"options" json:"options,omitempty"`
	DisplayOrder int        `db:"display_order" json:"display_order"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// StringList stores a list of strings as a JSON column (dropdown options).
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// Document is an uploaded file tracked through the extraction lifecycle.
// Created by the ingestion gateway; status, timestamps, and confidence are
// mutated only by the lifecycle tracker and extraction engine.
type Document struct {
	ID                    uuid.UUID      `db:"id" json:"id"`
	TenantID              uuid.UUID      `db:"tenant_id" json:"tenant_id"`
	SchemaID              *uuid.UUID     `db:"schema_id" json:"schema_id"`
	UploadedBy            uuid.UUID      `db:"uploaded_by" json:"uploaded_by"`
	OriginalFilename      string         `db:"original_filename" json:"original_filename"`
	S3Bucket              string         `db:"s3_bucket" json:"-"`
	S3Key                 string         `db:"s3_key" json:"-"`
	FileType              FileType       `db:"file_type" json:"file_type"`
	ContentType           string         `db:"content_type" json:"content_type"`
	FileSize              int64          `db:"file_size" json:"file_size"`
	PageCount             int            `db:"page_count" json:"page_count"`
	Status                DocumentStatus `db:"status" json:"status"`
	OverallConfidence     *float64       `db:"overall_confidence" json:"overall_confidence"`
	ErrorMessage          string         `db:"error_message" json:"error_message"`
	QueuedAt              *time.Time     `db:"queued_at" json:"-"`
	CancelRequested       bool           `db:"cancel_requested" json:"-"`
	ProcessingStartedAt   *time.Time     `db:"processing_started_at" json:"processing_started_at"`
	ProcessingCompletedAt *time.Time     `db:"processing_completed_at" json:"processing_completed_at"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentFilter narrows document list queries. Zero values mean no filter.
type DocumentFilter struct {
	Status   DocumentStatus
	SchemaID *uuid.UUID
}

// FieldValue is one extracted value for one field of one document.
// RawValue and NormalizedValue are immutable evidence; FinalValue is the
// optional reviewer override.
type FieldValue struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	DocumentID      uuid.UUID  `db:"document_id" json:"document_id"`
	FieldID         uuid.UUID  `db:"field_id" json:"field_id"`
	TenantID        uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	RawValue        string     `db:"raw_value" json:"raw_value"`
	NormalizedValue string     `db:"normalized_value" json:"normalized_value"`
	FinalValue      *string    `db:"final_value" json:"final_value"`
	Confidence      float64    `db:"confidence" json:"confidence"`
	NeedsReview     bool       `db:"needs_review" json:"needs_review"`
	ReviewedBy      *uuid.UUID `db:"reviewed_by" json:"reviewed_by"`
	ReviewedAt      *time.Time `db:"reviewed_at" json:"reviewed_at"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// EffectiveValue returns the value a consumer should display: the reviewer
// override if set, else the normalized value, else the raw value.
func (v *FieldValue) EffectiveValue() string {
	if v.FinalValue != nil {
		return *v.FinalValue
	}
	if v.NormalizedValue != "" {
		return v.NormalizedValue
	}
	return v.RawValue
}

// FieldValueDetail is a FieldValue joined with its field definition,
// as returned by the document fields read endpoint.
type FieldValueDetail struct {
	FieldValue
	FieldName    string    `db:"field_name" json:"field_name"`
	FieldLabel   string    `db:"field_label" json:"field_label"`
	FieldType    FieldType `db:"f_type" json:"field_type"`
	DisplayOrder int       `db:"f_display_order" json:"display_order"`
}

// ProcessingLogEntry is one append-only log line for a document's
// processing trail.
type ProcessingLogEntry struct {
	ID         uuid.UUID `db:"id" json:"id"`
	DocumentID uuid.UUID `db:"document_id" json:"document_id"`
	TenantID   uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Level      LogLevel  `db:"level" json:"level"`
	Stage      string    `db:"stage" json:"stage"`
	Message    string    `db:"message" json:"message"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SchemaTable is the aggregated tabular view of all completed documents
// extracted against one schema. Rows are keyed by field label.
type SchemaTable struct {
	SchemaName string              `json:"schema_name"`
	Columns    []string            `json:"columns"`
	Rows       []map[string]string `json:"rows"`
}

// UsageStats reports current-period page consumption against the tenant's
// quota ceiling.
type UsageStats struct {
	TenantID       uuid.UUID `json:"tenant_id"`
	PeriodStart    time.Time `json:"period_start"`
	PagesUsed      int       `json:"current_month_usage"`
	PageLimit      int       `json:"max_pages_per_month"`
	PercentageUsed float64   `json:"percentage_used"`
	RemainingPages int       `json:"remaining_pages"`
}
