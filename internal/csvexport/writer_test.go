package csvexport

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docuflow/internal/domain"
)

func TestWriteTable_EveryCellQuoted(t *testing.T) {
	table := &domain.SchemaTable{
		SchemaName: "Invoices",
		Columns:    []string{"Invoice Number", "Invoice Date", "Total"},
		Rows: []map[string]string{
			{"Invoice Number": "INV-001", "Invoice Date": "2024-01-15", "Total": "100.50"},
			{"Invoice Number": "INV-002", "Invoice Date": "2024-02-03", "Total": "205.00"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteTable(table))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)

	assert.Equal(t, `"Invoice Number","Invoice Date","Total"`, lines[0])
	assert.Equal(t, `"INV-001","2024-01-15","100.50"`, lines[1])
	assert.Equal(t, `"INV-002","2024-02-03","205.00"`, lines[2])

	// Every cell is quoted, even plain ones.
	for _, line := range lines {
		for _, cell := range strings.Split(line, ",") {
			assert.True(t, strings.HasPrefix(cell, `"`), "cell %q not quoted", cell)
			assert.True(t, strings.HasSuffix(cell, `"`), "cell %q not quoted", cell)
		}
	}
}

func TestWriteTable_EscapesInternalQuotes(t *testing.T) {
	table := &domain.SchemaTable{
		Columns: []string{"Notes"},
		Rows: []map[string]string{
			{"Notes": `said "a,b" twice`},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteTable(table))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"said ""a,b"" twice"`, lines[1])
}

func TestWriteTable_MissingKeyEmptyCell(t *testing.T) {
	table := &domain.SchemaTable{
		Columns: []string{"Invoice Number", "Total"},
		Rows: []map[string]string{
			{"Invoice Number": "INV-001"},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).WriteTable(table))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.Equal(t, `"INV-001",""`, lines[1])
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "Q3_Invoices_final", SanitizeFilename("Q3 Invoices (final)"))
	assert.Equal(t, "a-b_c", SanitizeFilename("a-b   c"))
	assert.Equal(t, "x", SanitizeFilename("__x__"))
	long := strings.Repeat("a", 150)
	assert.Len(t, SanitizeFilename(long), 100)
}

func TestBuildFilename(t *testing.T) {
	name := BuildFilename("My Schema", "csv")
	assert.True(t, strings.HasPrefix(name, "My_Schema_"))
	assert.True(t, strings.HasSuffix(name, ".csv"))
}
