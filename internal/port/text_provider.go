package port

import "context"

// TextProvider extracts plain text from a binary document such as a PDF.
type TextProvider interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}
