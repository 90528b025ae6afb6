package router

import (
	"github.com/gin-gonic/gin"

	"docuflow/internal/auth"
	"docuflow/internal/domain"
	"docuflow/internal/handler"
	"docuflow/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	verifier auth.Verifier,
	allowedOrigins []string,
	schemaH *handler.SchemaHandler,
	docH *handler.DocumentHandler,
	exportH *handler.ExportHandler,
	usageH *handler.UsageHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Protected routes - require valid JWT
	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(verifier))

	manage := middleware.RequireRole(domain.RoleAdmin, domain.RoleManager)
	review := middleware.RequireRole(domain.RoleAdmin, domain.RoleManager, domain.RoleReviewer)

	// Schema registry
	schemas := protected.Group("/schemas")
	schemas.POST("", manage, schemaH.Create)
	schemas.GET("", schemaH.List)
	schemas.GET("/:id", schemaH.Get)
	schemas.PUT("/:id", manage, schemaH.Update)
	schemas.DELETE("/:id", manage, schemaH.Delete)
	schemas.POST("/:id/fields", manage, schemaH.AddField)
	schemas.DELETE("/:id/fields/:fieldId", manage, schemaH.RemoveField)

	// Aggregation and export
	schemas.GET("/:id/table", exportH.GetTable)
	schemas.GET("/:id/export/csv", exportH.ExportCSV)
	schemas.GET("/:id/export/xlsx", exportH.ExportXLSX)

	// Documents
	docs := protected.Group("/documents")
	docs.POST("", docH.Upload)
	docs.GET("", docH.List)
	docs.GET("/:id", docH.Get)
	docs.DELETE("/:id", manage, docH.Delete)
	docs.GET("/:id/download", docH.GetDownloadURL)
	docs.POST("/:id/process", docH.Process)
	docs.POST("/:id/cancel", docH.Cancel)
	docs.GET("/:id/fields", docH.GetFields)
	docs.GET("/:id/logs", docH.GetLogs)
	docs.PUT("/:id/fields/:valueId", review, docH.OverrideFieldValue)

	// Usage
	protected.GET("/usage", usageH.Get)

	return r
}
