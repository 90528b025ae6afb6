package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docuflow/internal/service"
)

// SchemaHandler serves the schema registry endpoints.
type SchemaHandler struct {
	schemaService service.SchemaService
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(schemaService service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schemaService: schemaService}
}

// Create handles POST /schemas.
func (h *SchemaHandler) Create(c *gin.Context) {
	tenantID, userID, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	var input service.SchemaCreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	input.TenantID = tenantID
	input.CreatedBy = userID

	schema, err := h.schemaService.Create(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondCreated(c, schema)
}

// Get handles GET /schemas/:id.
func (h *SchemaHandler) Get(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	schema, err := h.schemaService.GetByID(c.Request.Context(), tenantID, schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, schema)
}

// List handles GET /schemas.
func (h *SchemaHandler) List(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	offset, limit := parsePagination(c)

	schemas, total, err := h.schemaService.List(c.Request.Context(), tenantID, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondPaginated(c, schemas, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Update handles PUT /schemas/:id.
func (h *SchemaHandler) Update(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var input service.SchemaUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}
	input.TenantID = tenantID
	input.SchemaID = schemaID

	schema, err := h.schemaService.UpdateMeta(c.Request.Context(), input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, schema)
}

// Delete handles DELETE /schemas/:id.
func (h *SchemaHandler) Delete(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.schemaService.Delete(c.Request.Context(), tenantID, schemaID); err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, gin.H{"deleted": true})
}

// AddField handles POST /schemas/:id/fields.
func (h *SchemaHandler) AddField(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var input service.FieldInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
		return
	}

	schema, err := h.schemaService.AddField(c.Request.Context(), tenantID, schemaID, input)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, schema)
}

// RemoveField handles DELETE /schemas/:id/fields/:fieldId.
func (h *SchemaHandler) RemoveField(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	fieldID, ok := parseUUIDParam(c, "fieldId")
	if !ok {
		return
	}

	schema, err := h.schemaService.RemoveField(c.Request.Context(), tenantID, schemaID, fieldID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, schema)
}
