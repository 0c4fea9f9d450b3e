package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/net/html/charset"

	"github.com/contabot/contabot/pkg/logger"
)

var (
	// ErrExtraction marks unreadable or corrupt payloads.
	ErrExtraction = errors.New("extract: unreadable document")
	// ErrMissingFile marks requests that carried no payload at all.
	ErrMissingFile = errors.New("extract: missing file")
)

// Result is the extracted text plus format-specific details. Pages is set
// for paginated documents, the sheet fields for spreadsheets.
type Result struct {
	Text       string
	Pages      int
	Sheets     int
	SheetNames []string
	Details    []SheetText
}

// SheetText is one spreadsheet sheet rendered as delimited rows.
type SheetText struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Service converts uploaded binaries into plain text. It is a pure
// transform; callers own persistence and chunking.
type Service struct{}

func NewService() *Service {
	return &Service{}
}

// Extract sniffs the payload type and routes to the matching extractor.
// The declared MIME type is only consulted when sniffing is inconclusive.
func (s *Service) Extract(ctx context.Context, payload []byte, filename, declaredMIME string) (*Result, error) {
	if len(payload) == 0 {
		return nil, ErrMissingFile
	}
	detected := mimetype.Detect(payload)
	kind := classify(detected.String(), declaredMIME, filename)
	log := logger.FromContext(ctx)
	log.Debug("extraction started", "filename", filename, "mime", detected.String(), "size", len(payload))
	var (
		res *Result
		err error
	)
	switch kind {
	case kindPDF:
		res, err = extractPDF(payload)
	case kindWorkbook:
		res, err = extractWorkbook(payload)
	default:
		res, err = extractText(payload, detected.String())
	}
	if err != nil {
		return nil, err
	}
	log.Debug("extraction finished", "filename", filename, "length", len(res.Text), "pages", res.Pages, "sheets", res.Sheets)
	return res, nil
}

type payloadKind int

const (
	kindText payloadKind = iota
	kindPDF
	kindWorkbook
)

func classify(detected, declared, filename string) payloadKind {
	for _, mime := range []string{detected, declared} {
		switch {
		case strings.Contains(mime, "pdf"):
			return kindPDF
		case strings.Contains(mime, "spreadsheet"), strings.Contains(mime, "ms-excel"):
			return kindWorkbook
		}
	}
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".pdf"):
		return kindPDF
	case strings.HasSuffix(lower, ".xlsx"), strings.HasSuffix(lower, ".xls"):
		return kindWorkbook
	}
	return kindText
}

// extractText decodes arbitrary text payloads to UTF-8 using the detected
// charset, falling back to the raw bytes when no decoder matches.
func extractText(payload []byte, mime string) (*Result, error) {
	reader, err := charset.NewReader(bytes.NewReader(payload), mime)
	if err != nil {
		return &Result{Text: string(payload)}, nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: decode text: %v", ErrExtraction, err)
	}
	return &Result{Text: string(decoded)}, nil
}
