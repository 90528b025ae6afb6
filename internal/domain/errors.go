package domain

import "errors"

var (
	ErrNotFound            = errors.New("resource not found")
	ErrSchemaNotFound      = errors.New("schema not found")
	ErrDocumentNotFound    = errors.New("document not found")
	ErrFieldNotFound       = errors.New("field not found")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrDuplicateFieldName  = errors.New("duplicate field name in schema")
	ErrSchemaInUse         = errors.New("schema is referenced by existing documents")
	ErrQuotaExceeded       = errors.New("monthly page quota exceeded")
	ErrProcessingActive    = errors.New("document is already being processed")
	ErrDocumentNotActive   = errors.New("document has no active processing cycle")
	ErrDocumentNotComplete = errors.New("document processing has not completed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrUploadFailed        = errors.New("file upload to storage failed")
)
