package document_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"mailparser/internal/document"
	"mailparser/internal/domain"
	"mailparser/mocks"
)

func TestIsPDF(t *testing.T) {
	assert.True(t, document.IsPDF([]byte("%PDF-1.7\n...")))
	assert.False(t, document.IsPDF([]byte("PK\x03\x04")))
	assert.False(t, document.IsPDF(nil))
}

func TestFromWebhook_OrdersEmailBeforePDF(t *testing.T) {
	doc := document.FromWebhook("body", "pdf")

	require.Len(t, doc.Segments, 2)
	assert.Equal(t, domain.SegmentEmail, doc.Segments[0].Label)
	assert.Equal(t, domain.SegmentPDF, doc.Segments[1].Label)
	assert.Equal(t, "EMAIL CONTENT:\nbody\n\nPDF CONTENT:\npdf", doc.Combined())
}

func TestFromWebhook_BlankBothIsEmpty(t *testing.T) {
	assert.True(t, document.FromWebhook("  ", "\n").IsEmpty())
}

func TestFromAttachment_NoAttachment(t *testing.T) {
	tp := new(mocks.MockTextProvider)

	doc, err := document.FromAttachment(context.Background(), tp, "PO 42", nil)

	require.NoError(t, err)
	assert.Equal(t, "EMAIL CONTENT:\nPO 42", doc.Combined())
	tp.AssertNotCalled(t, "ExtractText", mock.Anything, mock.Anything)
}

func TestFromAttachment_PDF(t *testing.T) {
	tp := new(mocks.MockTextProvider)
	pdf := []byte("%PDF-1.4 fake")
	tp.On("ExtractText", mock.Anything, pdf).Return("Total: 10", nil)

	doc, err := document.FromAttachment(context.Background(), tp, "", pdf)

	require.NoError(t, err)
	assert.Equal(t, "PDF CONTENT:\nTotal: 10", doc.Combined())
}

func TestFromAttachment_RejectsNonPDF(t *testing.T) {
	tp := new(mocks.MockTextProvider)

	_, err := document.FromAttachment(context.Background(), tp, "", []byte("GIF89a"))

	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestFromAttachment_ProviderError(t *testing.T) {
	tp := new(mocks.MockTextProvider)
	tp.On("ExtractText", mock.Anything, mock.Anything).Return("", domain.ErrNoExtractableText)

	_, err := document.FromAttachment(context.Background(), tp, "", []byte("%PDF-1.4"))

	assert.ErrorIs(t, err, domain.ErrNoExtractableText)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	txt := filepath.Join(dir, "order.txt")
	require.NoError(t, os.WriteFile(txt, []byte("PO Number: 7"), 0o600))
	pdf := filepath.Join(dir, "order.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4 fake"), 0o600))
	bin := filepath.Join(dir, "photo.png")
	require.NoError(t, os.WriteFile(bin, []byte{0x89, 'P', 'N', 'G'}, 0o600))

	tp := new(mocks.MockTextProvider)
	tp.On("ExtractText", mock.Anything, []byte("%PDF-1.4 fake")).Return("from pdf", nil)

	doc, err := document.LoadFile(context.Background(), tp, txt)
	require.NoError(t, err)
	assert.Equal(t, "EMAIL CONTENT:\nPO Number: 7", doc.Combined())

	doc, err = document.LoadFile(context.Background(), tp, pdf)
	require.NoError(t, err)
	assert.Equal(t, "PDF CONTENT:\nfrom pdf", doc.Combined())

	_, err = document.LoadFile(context.Background(), tp, bin)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)

	_, err = document.LoadFile(context.Background(), tp, filepath.Join(dir, "missing.txt"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestPDFTextProvider_Guards(t *testing.T) {
	p := document.NewPDFTextProvider(8, zerolog.Nop())

	_, err := p.ExtractText(context.Background(), []byte("%PDF-1.4 too large"))
	assert.ErrorIs(t, err, domain.ErrFileTooLarge)

	_, err = p.ExtractText(context.Background(), []byte("text"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}
