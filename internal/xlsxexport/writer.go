package xlsxexport

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"docuflow/internal/domain"
)

const sheetName = "Sheet1"

// WriteTable renders an aggregated schema table as an XLSX workbook with a
// header row, writing the result to w.
func WriteTable(w io.Writer, table *domain.SchemaTable) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for col, name := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell name: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	for rowIdx, row := range table.Rows {
		for col, name := range table.Columns {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("cell name: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, row[name]); err != nil {
				return fmt.Errorf("writing row %d: %w", rowIdx, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
