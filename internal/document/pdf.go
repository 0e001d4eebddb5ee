package document

import (
	"context"
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/rs/zerolog"

	"mailparser/internal/domain"
)

// PDFTextProvider extracts the text layer of a PDF with MuPDF.
// It implements port.TextProvider.
type PDFTextProvider struct {
	maxBytes int64
	log      zerolog.Logger
}

// NewPDFTextProvider creates a provider that rejects inputs larger than maxBytes.
// maxBytes <= 0 disables the limit.
func NewPDFTextProvider(maxBytes int64, logger zerolog.Logger) *PDFTextProvider {
	return &PDFTextProvider{maxBytes: maxBytes, log: logger}
}

// ExtractText returns the text of every page joined by newlines. A document
// with no text layer (for example a scanned image) yields ErrNoExtractableText.
func (p *PDFTextProvider) ExtractText(ctx context.Context, data []byte) (string, error) {
	if p.maxBytes > 0 && int64(len(data)) > p.maxBytes {
		return "", domain.ErrFileTooLarge
	}
	if !IsPDF(data) {
		return "", domain.ErrUnsupportedFileType
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", fmt.Errorf("document.PDFTextProvider: opening pdf: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
		text, err := doc.Text(n)
		if err != nil {
			return "", fmt.Errorf("document.PDFTextProvider: page %d: %w", n+1, err)
		}
		pages = append(pages, text)
	}

	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		p.log.Warn().Int("pages", len(pages)).Msg("document.PDFTextProvider: no text layer")
		return "", domain.ErrNoExtractableText
	}
	return text, nil
}
