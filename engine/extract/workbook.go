package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// cellDelimiter joins the surviving cells of one spreadsheet row.
const cellDelimiter = " | "

// extractWorkbook renders every sheet as delimited rows under a section
// header. Empty cells are dropped before joining and rows left empty after
// filtering are dropped entirely, so sparse accounting sheets stay compact.
func extractWorkbook(payload []byte) (*Result, error) {
	book, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrExtraction, err)
	}
	defer book.Close()
	names := book.GetSheetList()
	details := make([]SheetText, 0, len(names))
	var combined strings.Builder
	for _, name := range names {
		rows, err := book.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("%w: read sheet %q: %v", ErrExtraction, name, err)
		}
		content := renderRows(rows)
		if content == "" {
			continue
		}
		details = append(details, SheetText{Name: name, Content: content})
		combined.WriteString(fmt.Sprintf("\n\n=== HOJA: %s ===\n\n%s", name, content))
	}
	return &Result{
		Text:       strings.TrimSpace(combined.String()),
		Sheets:     len(details),
		SheetNames: names,
		Details:    details,
	}, nil
}

func renderRows(rows [][]string) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		cells := make([]string, 0, len(row))
		for _, cell := range row {
			if strings.TrimSpace(cell) == "" {
				continue
			}
			cells = append(cells, cell)
		}
		if len(cells) == 0 {
			continue
		}
		lines = append(lines, strings.Join(cells, cellDelimiter))
	}
	return strings.Join(lines, "\n")
}
