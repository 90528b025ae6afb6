package handler

import (
	"github.com/gin-gonic/gin"

	"docuflow/internal/service"
)

// UsageHandler serves the usage query endpoint.
type UsageHandler struct {
	usageService service.UsageService
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(usageService service.UsageService) *UsageHandler {
	return &UsageHandler{usageService: usageService}
}

// Get handles GET /usage.
func (h *UsageHandler) Get(c *gin.Context) {
	tenantID, _, _, ok := extractAuthContext(c)
	if !ok {
		return
	}

	stats, err := h.usageService.GetStats(c.Request.Context(), tenantID)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, stats)
}
