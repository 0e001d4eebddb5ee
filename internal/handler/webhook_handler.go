package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"mailparser/internal/document"
	"mailparser/internal/domain"
	"mailparser/internal/middleware"
	"mailparser/internal/port"
	"mailparser/internal/service"
)

// WebhookPayload is the JSON body posted by the mail parsing service.
type WebhookPayload struct {
	EmailBody string            `json:"email_body"`
	PDFText   string            `json:"pdf_text"`
	Metadata  map[string]string `json:"email_metadata,omitempty"`
}

// ExtractionResponse is the data payload of a successful extraction.
type ExtractionResponse struct {
	RequestID string                    `json:"request_id"`
	RecordID  string                    `json:"record_id"`
	Tier      int                       `json:"tier"`
	Variant   domain.Variant            `json:"variant"`
	Invoice   *domain.StructuredInvoice `json:"invoice"`
	Warnings  []string                  `json:"warnings,omitempty"`
	Timestamp time.Time                 `json:"timestamp"`
}

// FailureResponse is the data payload sent alongside an ALL_TIERS_FAILED error.
type FailureResponse struct {
	RequestID string                    `json:"request_id"`
	RecordID  string                    `json:"record_id"`
	Failure   *domain.ExtractionFailure `json:"failure"`
}

// WebhookHandler handles inbound documents from the mail parsing service.
type WebhookHandler struct {
	intake         service.IntakeService
	text           port.TextProvider
	maxUploadBytes int64
	log            zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(intake service.IntakeService, text port.TextProvider, maxUploadBytes int64, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{intake: intake, text: text, maxUploadBytes: maxUploadBytes, log: logger}
}

// Receive handles POST /webhook
func (h *WebhookHandler) Receive(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondDomainError(c, domain.ErrFileTooLarge)
			return
		}
		HandleError(c, h.log, err)
		return
	}
	if len(bytes.TrimSpace(body)) == 0 {
		h.respondDomainError(c, domain.ErrEmptyPayload)
		return
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "request body must be a JSON object")
		return
	}
	if len(raw) == 0 {
		h.respondDomainError(c, domain.ErrEmptyPayload)
		return
	}
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "email_body and pdf_text must be strings")
		return
	}

	h.process(c, service.IntakeInput{
		RequestID: middleware.GetRequestID(c),
		Source:    "webhook",
		Metadata:  payload.Metadata,
		Document:  document.FromWebhook(payload.EmailBody, payload.PDFText),
	})
}

// Upload handles POST /webhook/upload
func (h *WebhookHandler) Upload(c *gin.Context) {
	if h.maxUploadBytes > 0 {
		// Leave headroom for the email_body field and multipart framing.
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	}
	if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			h.respondDomainError(c, domain.ErrFileTooLarge)
			return
		}
		RespondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "request must be multipart/form-data")
		return
	}

	emailBody := c.PostForm("email_body")
	var attachment []byte
	var filename string

	file, header, err := c.Request.FormFile("attachment")
	switch {
	case err == nil:
		defer func() { _ = file.Close() }()
		filename = header.Filename
		if h.maxUploadBytes > 0 && header.Size > h.maxUploadBytes {
			h.respondDomainError(c, domain.ErrFileTooLarge)
			return
		}
		attachment, err = io.ReadAll(file)
		if err != nil {
			HandleError(c, h.log, err)
			return
		}
	case errors.Is(err, http.ErrMissingFile):
	default:
		RespondError(c, http.StatusBadRequest, "INVALID_PAYLOAD", "attachment could not be read")
		return
	}

	doc, err := document.FromAttachment(c.Request.Context(), h.text, emailBody, attachment)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	h.process(c, service.IntakeInput{
		RequestID: middleware.GetRequestID(c),
		Source:    "upload",
		Filename:  filename,
		Document:  doc,
	})
}

func (h *WebhookHandler) process(c *gin.Context, input service.IntakeInput) {
	rec, err := h.intake.Process(c.Request.Context(), input)
	if err != nil {
		h.respondDomainError(c, err)
		return
	}

	if rec.Status == domain.RecordStatusFailed {
		msg := "failed to extract invoice data"
		if rec.Failure != nil {
			msg = rec.Failure.Message
		}
		RespondErrorWithData(c, http.StatusUnprocessableEntity, "ALL_TIERS_FAILED", msg, FailureResponse{
			RequestID: rec.RequestID,
			RecordID:  rec.ID,
			Failure:   rec.Failure,
		})
		return
	}

	RespondOK(c, ExtractionResponse{
		RequestID: rec.RequestID,
		RecordID:  rec.ID,
		Tier:      rec.TierRank,
		Variant:   rec.TierVariant,
		Invoice:   rec.Invoice,
		Warnings:  rec.Warnings,
		Timestamp: rec.CreatedAt,
	})
}

// respondDomainError writes a mapped error that also echoes the request ID.
func (h *WebhookHandler) respondDomainError(c *gin.Context, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		h.log.Error().Err(err).Str("request_id", middleware.GetRequestID(c)).Msg("internal error")
	}
	RespondErrorWithData(c, status, code, msg, gin.H{"request_id": middleware.GetRequestID(c)})
}
