package domain

// Variant selects how strictly a parsed record is validated.
type Variant string

const (
	VariantStrict   Variant = "strict"
	VariantPartial  Variant = "partial"
	VariantFreeForm Variant = "free_form"
)

// Valid reports whether v is a known variant.
func (v Variant) Valid() bool {
	switch v {
	case VariantStrict, VariantPartial, VariantFreeForm:
		return true
	}
	return false
}

// ErrorCategory is the taxonomy name of an extraction failure.
type ErrorCategory string

const (
	CategoryEmptyModelOutput    ErrorCategory = "EmptyModelOutput"
	CategoryNoJSONFound         ErrorCategory = "NoJsonFound"
	CategoryInvalidJSONSyntax   ErrorCategory = "InvalidJsonSyntax"
	CategoryUnexpectedJSONShape ErrorCategory = "UnexpectedJsonShape"
	CategorySchemaViolation     ErrorCategory = "SchemaViolation"
	CategoryAllTiersFailed      ErrorCategory = "AllTiersFailed"
)

// RecordStatus is the outcome stored alongside each logged extraction.
type RecordStatus string

const (
	RecordStatusSucceeded RecordStatus = "succeeded"
	RecordStatusFailed    RecordStatus = "failed"
)

// FileType represents the attachment types accepted by the upload webhook.
type FileType string

const (
	FileTypePDF  FileType = "pdf"
	FileTypeText FileType = "txt"
)

// AllowedContentTypes maps MIME content types to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"text/plain":      FileTypeText,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf": FileTypePDF,
	"txt": FileTypeText,
	"eml": FileTypeText,
}
