// Package email renders and delivers failure alerts for extraction records.
package email

import (
	"fmt"
	"html"
	"strings"

	"mailparser/internal/domain"
)

// Message is a rendered alert ready for delivery.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// FailureMessage renders the alert for a failed extraction record.
func FailureMessage(rec *domain.ExtractionRecord) Message {
	var category domain.ErrorCategory
	var message, sample string
	var attempts []domain.AttemptOutcome
	if rec.Failure != nil {
		category = rec.Failure.Category
		message = rec.Failure.Message
		sample = rec.Failure.InputSample
		attempts = rec.Failure.Attempts
	}

	subject := fmt.Sprintf("[mailparser] extraction failed (%s)", rec.RequestID)

	var text strings.Builder
	fmt.Fprintf(&text, "An inbound document could not be extracted.\n\n")
	fmt.Fprintf(&text, "Request ID: %s\nSource: %s\n", rec.RequestID, rec.Source)
	if rec.Filename != "" {
		fmt.Fprintf(&text, "File: %s\n", rec.Filename)
	}
	fmt.Fprintf(&text, "Received: %s\nCategory: %s\nMessage: %s\n", rec.CreatedAt.UTC().Format("2006-01-02 15:04:05 MST"), category, message)
	for _, a := range attempts {
		fmt.Fprintf(&text, "  tier %d (%s): %s: %s\n", a.Rank, a.Variant, a.Category, a.Message)
	}
	fmt.Fprintf(&text, "\nInput sample:\n%s\n", sample)

	var rows strings.Builder
	for _, a := range attempts {
		fmt.Fprintf(&rows, "<li>tier %d (%s): <b>%s</b> %s</li>", a.Rank, html.EscapeString(string(a.Variant)),
			html.EscapeString(string(a.Category)), html.EscapeString(a.Message))
	}

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Extraction failed</h2>
  <p><b>Request ID:</b> %s<br><b>Source:</b> %s<br><b>Category:</b> %s</p>
  <p>%s</p>
  <ul>%s</ul>
  <pre style="background: #f5f5f5; padding: 12px; white-space: pre-wrap;">%s</pre>
</body>
</html>`,
		html.EscapeString(rec.RequestID), html.EscapeString(rec.Source), html.EscapeString(string(category)),
		html.EscapeString(message), rows.String(), html.EscapeString(sample))

	return Message{Subject: subject, Text: text.String(), HTML: htmlBody}
}
