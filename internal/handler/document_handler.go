package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"docuflow/internal/domain"
	"docuflow/internal/service"
)

// DocumentHandler serves the ingestion and lifecycle endpoints.
type DocumentHandler struct {
	docService service.DocumentService
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(docService service.DocumentService) *DocumentHandler {
	return &DocumentHandler{docService: docService}
}

// Upload handles POST /documents (multipart form with "file" and optional "schema_id").
func (h *DocumentHandler) Upload(c *gin.Context) {
	tenantID, userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "missing file in multipart form")
		return
	}
	defer file.Close()

	var schemaID *uuid.UUID
	if raw := c.PostForm("schema_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid schema_id")
			return
		}
		schemaID = &id
	}

	doc, err := h.docService.Upload(c.Request.Context(), service.DocumentUploadInput{
		TenantID:   tenantID,
		UploadedBy: userID,
		SchemaID:   schemaID,
		File:       file,
		Header:     header,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, doc)
}

// Get handles GET /documents/:id.
func (h *DocumentHandler) Get(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	doc, err := h.docService.GetByID(c.Request.Context(), tenantID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, doc)
}

// List handles GET /documents with optional status and schema_id filters.
func (h *DocumentHandler) List(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	var filter domain.DocumentFilter
	if raw := c.Query("status"); raw != "" {
		status := domain.DocumentStatus(raw)
		if !status.Valid() {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "unknown status filter")
			return
		}
		filter.Status = status
	}
	if raw := c.Query("schema_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid schema_id filter")
			return
		}
		filter.SchemaID = &id
	}

	docs, total, err := h.docService.List(c.Request.Context(), tenantID, filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, docs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Delete handles DELETE /documents/:id.
func (h *DocumentHandler) Delete(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.docService.Delete(c.Request.Context(), tenantID, docID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// GetDownloadURL handles GET /documents/:id/download.
func (h *DocumentHandler) GetDownloadURL(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	url, err := h.docService.GetDownloadURL(c.Request.Context(), tenantID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"download_url": url})
}

// Process handles POST /documents/:id/process.
func (h *DocumentHandler) Process(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.docService.Process(c.Request.Context(), tenantID, docID); err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"queued": true})
}

// Cancel handles POST /documents/:id/cancel.
func (h *DocumentHandler) Cancel(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.docService.Cancel(c.Request.Context(), tenantID, docID); err != nil {
		HandleError(c, err)
		return
	}
	RespondAccepted(c, gin.H{"cancel_requested": true})
}

// GetFields handles GET /documents/:id/fields.
func (h *DocumentHandler) GetFields(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	fields, err := h.docService.GetFields(c.Request.Context(), tenantID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, fields)
}

// GetLogs handles GET /documents/:id/logs.
func (h *DocumentHandler) GetLogs(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	logs, err := h.docService.GetLogs(c.Request.Context(), tenantID, docID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, logs)
}

// OverrideFieldValue handles PUT /documents/:id/fields/:valueId.
func (h *DocumentHandler) OverrideFieldValue(c *gin.Context) {
	tenantID, userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	docID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	valueID, ok := parseUUIDParam(c, "valueId")
	if !ok {
		return
	}

	var input service.FieldOverrideInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	input.TenantID = tenantID
	input.DocumentID = docID
	input.ValueID = valueID
	input.ReviewerID = userID

	if err := h.docService.OverrideFieldValue(c.Request.Context(), input); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"overridden": true})
}
