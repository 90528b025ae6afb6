package handler

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"docuflow/internal/service"
)

// ExportHandler serves the aggregation and export endpoints.
type ExportHandler struct {
	exportService service.ExportService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(exportService service.ExportService) *ExportHandler {
	return &ExportHandler{exportService: exportService}
}

// GetTable handles GET /schemas/:id/table.
func (h *ExportHandler) GetTable(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	table, err := h.exportService.GetTable(c.Request.Context(), tenantID, schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, table)
}

// ExportCSV handles GET /schemas/:id/export/csv.
func (h *ExportHandler) ExportCSV(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	// Buffer the export so an aggregation error still yields a clean JSON
	// error response instead of a half-written body.
	var buf bytes.Buffer
	filename, err := h.exportService.WriteCSV(c.Request.Context(), &buf, tenantID, schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// ExportXLSX handles GET /schemas/:id/export/xlsx.
func (h *ExportHandler) ExportXLSX(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}
	schemaID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var buf bytes.Buffer
	filename, err := h.exportService.WriteXLSX(c.Request.Context(), &buf, tenantID, schemaID)
	if err != nil {
		HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}
