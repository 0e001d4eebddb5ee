// Package document turns inbound payloads and files into domain.RawDocument values.
package document

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"mailparser/internal/domain"
	"mailparser/internal/port"
)

var pdfMagic = []byte("%PDF-")

// IsPDF reports whether b starts with the PDF header.
func IsPDF(b []byte) bool {
	return bytes.HasPrefix(b, pdfMagic)
}

// FromWebhook builds a document from the email body and pre-extracted PDF text
// of a webhook payload. Email content always precedes PDF content.
func FromWebhook(emailBody, pdfText string) domain.RawDocument {
	return domain.RawDocument{Segments: []domain.Segment{
		{Label: domain.SegmentEmail, Text: emailBody},
		{Label: domain.SegmentPDF, Text: pdfText},
	}}
}

// FromAttachment builds a document from an email body and a PDF attachment,
// extracting the attachment text with tp. A nil attachment yields a body-only document.
func FromAttachment(ctx context.Context, tp port.TextProvider, emailBody string, attachment []byte) (domain.RawDocument, error) {
	if len(attachment) == 0 {
		return FromWebhook(emailBody, ""), nil
	}
	if !IsPDF(attachment) {
		return domain.RawDocument{}, domain.ErrUnsupportedFileType
	}
	text, err := tp.ExtractText(ctx, attachment)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("document.FromAttachment: %w", err)
	}
	return FromWebhook(emailBody, text), nil
}

// LoadFile reads a local file into a document. PDFs become a PDF segment via
// tp; .txt and .eml files become an email segment.
func LoadFile(ctx context.Context, tp port.TextProvider, path string) (domain.RawDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawDocument{}, fmt.Errorf("document.LoadFile: %w", err)
	}
	if IsPDF(data) {
		text, err := tp.ExtractText(ctx, data)
		if err != nil {
			return domain.RawDocument{}, fmt.Errorf("document.LoadFile: %s: %w", path, err)
		}
		return FromWebhook("", text), nil
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ft, ok := domain.AllowedExtensions[ext]; !ok || ft != domain.FileTypeText || !utf8.Valid(data) {
		return domain.RawDocument{}, fmt.Errorf("document.LoadFile: %s: %w", path, domain.ErrUnsupportedFileType)
	}
	return FromWebhook(string(data), ""), nil
}
