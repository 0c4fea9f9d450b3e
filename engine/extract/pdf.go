package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF concatenates the plain text of every page and reports the
// page count. Pages whose content streams cannot be decoded are skipped;
// the document only fails when no page yields text and at least one errored.
func extractPDF(payload []byte) (res *Result, err error) {
	defer func() {
		// The pdf package panics on some malformed cross-reference tables.
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("%w: parse pdf: %v", ErrExtraction, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", ErrExtraction, err)
	}
	pages := reader.NumPage()
	var builder strings.Builder
	extracted := 0
	var pageErr error
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			pageErr = err
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		if builder.Len() > 0 {
			builder.WriteString("\n\n")
		}
		builder.WriteString(text)
		extracted++
	}
	if extracted == 0 && pageErr != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", ErrExtraction, pageErr)
	}
	return &Result{Text: strings.TrimSpace(builder.String()), Pages: pages}, nil
}
