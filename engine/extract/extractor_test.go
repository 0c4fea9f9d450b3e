package extract

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExtract(t *testing.T) {
	ctx := context.Background()
	svc := NewService()

	t.Run("ShouldFailOnEmptyPayload", func(t *testing.T) {
		_, err := svc.Extract(ctx, nil, "void.pdf", "")
		require.ErrorIs(t, err, ErrMissingFile)
	})

	t.Run("ShouldExtractPlainText", func(t *testing.T) {
		res, err := svc.Extract(ctx, []byte("factura 2024-001\ntotal 120,50"), "notas.txt", "text/plain")
		require.NoError(t, err)
		assert.Contains(t, res.Text, "factura 2024-001")
		assert.Zero(t, res.Pages)
		assert.Zero(t, res.Sheets)
	})

	t.Run("ShouldFailOnCorruptPDF", func(t *testing.T) {
		_, err := svc.Extract(ctx, []byte("%PDF-1.4 garbage"), "roto.pdf", "application/pdf")
		require.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("ShouldExtractWorkbookSheets", func(t *testing.T) {
		book := excelize.NewFile()
		sheet := book.GetSheetName(0)
		require.NoError(t, book.SetCellValue(sheet, "A1", "Concepto"))
		require.NoError(t, book.SetCellValue(sheet, "B1", "Importe"))
		require.NoError(t, book.SetCellValue(sheet, "A2", "Alquiler"))
		require.NoError(t, book.SetCellValue(sheet, "B2", 950))
		// Row 3 left empty on purpose: it must be dropped.
		require.NoError(t, book.SetCellValue(sheet, "A4", "Luz"))
		var buf bytes.Buffer
		require.NoError(t, book.Write(&buf))

		res, err := svc.Extract(ctx, buf.Bytes(), "gastos.xlsx", "")
		require.NoError(t, err)
		assert.Equal(t, 1, res.Sheets)
		assert.Equal(t, []string{sheet}, res.SheetNames)
		assert.Contains(t, res.Text, "=== HOJA: "+sheet+" ===")
		assert.Contains(t, res.Text, "Concepto | Importe")
		assert.Contains(t, res.Text, "Alquiler | 950")
	})
}

func TestRenderRows(t *testing.T) {
	t.Run("ShouldDropEmptyCellsAndRows", func(t *testing.T) {
		rows := [][]string{
			{"a", "", "b"},
			{"", "  ", ""},
			{"c"},
		}
		assert.Equal(t, "a | b\nc", renderRows(rows))
	})

	t.Run("ShouldReturnEmptyForNoRows", func(t *testing.T) {
		assert.Empty(t, renderRows(nil))
	})
}

func TestClassify(t *testing.T) {
	t.Run("ShouldPreferDetectedMIME", func(t *testing.T) {
		assert.Equal(t, kindPDF, classify("application/pdf", "text/plain", "x.txt"))
	})

	t.Run("ShouldFallBackToDeclaredMIME", func(t *testing.T) {
		assert.Equal(t, kindWorkbook, classify("application/octet-stream", "application/vnd.ms-excel", "x.bin"))
	})

	t.Run("ShouldFallBackToExtension", func(t *testing.T) {
		assert.Equal(t, kindWorkbook, classify("application/octet-stream", "", "Libro.XLSX"))
		assert.Equal(t, kindText, classify("application/octet-stream", "", "datos.csv"))
	})
}
