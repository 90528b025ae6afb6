package service

import (
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"docuflow/internal/csvexport"
	"docuflow/internal/domain"
	"docuflow/internal/port"
	"docuflow/internal/xlsxexport"
)

// fieldFanout bounds concurrent field value loads during aggregation.
const fieldFanout = 8

// ExportService aggregates completed documents of a schema into a table and
// renders it as JSON, CSV, or XLSX.
type ExportService interface {
	GetTable(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.SchemaTable, error)
	WriteCSV(ctx context.Context, w io.Writer, tenantID, schemaID uuid.UUID) (string, error)
	WriteXLSX(ctx context.Context, w io.Writer, tenantID, schemaID uuid.UUID) (string, error)
}

type exportService struct {
	schemaRepo port.SchemaRepository
	docRepo    port.DocumentRepository
	fieldRepo  port.FieldValueRepository
}

// NewExportService creates a new ExportService implementation.
func NewExportService(schemaRepo port.SchemaRepository, docRepo port.DocumentRepository, fieldRepo port.FieldValueRepository) ExportService {
	return &exportService{schemaRepo: schemaRepo, docRepo: docRepo, fieldRepo: fieldRepo}
}

// GetTable builds the aggregated view: one column per schema field in display
// order, one row per completed document. Cell values follow
// reviewer-override > normalized > raw precedence.
func (s *exportService) GetTable(ctx context.Context, tenantID, schemaID uuid.UUID) (*domain.SchemaTable, error) {
	schema, err := s.schemaRepo.GetByID(ctx, tenantID, schemaID)
	if err != nil {
		return nil, err
	}

	docs, err := s.docRepo.ListCompletedBySchema(ctx, tenantID, schemaID)
	if err != nil {
		return nil, err
	}

	columns := make([]string, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		columns = append(columns, f.Label)
	}

	rows := make([]map[string]string, len(docs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fieldFanout)
	for i := range docs {
		i := i
		g.Go(func() error {
			values, err := s.fieldRepo.ListByDocument(gctx, tenantID, docs[i].ID)
			if err != nil {
				return err
			}
			row := make(map[string]string, len(columns))
			for j := range values {
				row[values[j].FieldLabel] = values[j].EffectiveValue()
			}
			mu.Lock()
			rows[i] = row
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &domain.SchemaTable{
		SchemaName: schema.Name,
		Columns:    columns,
		Rows:       rows,
	}, nil
}

// WriteCSV renders the table as CSV, returning the suggested filename.
func (s *exportService) WriteCSV(ctx context.Context, w io.Writer, tenantID, schemaID uuid.UUID) (string, error) {
	table, err := s.GetTable(ctx, tenantID, schemaID)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(csvexport.BOM); err != nil {
		return "", err
	}
	if err := csvexport.NewWriter(w).WriteTable(table); err != nil {
		return "", err
	}
	return csvexport.BuildFilename(table.SchemaName, "csv"), nil
}

// WriteXLSX renders the table as an XLSX workbook, returning the suggested filename.
func (s *exportService) WriteXLSX(ctx context.Context, w io.Writer, tenantID, schemaID uuid.UUID) (string, error) {
	table, err := s.GetTable(ctx, tenantID, schemaID)
	if err != nil {
		return "", err
	}
	if err := xlsxexport.WriteTable(w, table); err != nil {
		return "", err
	}
	return csvexport.BuildFilename(table.SchemaName, "xlsx"), nil
}
