package domain

import "strings"

const (
	SegmentEmail = "EMAIL CONTENT"
	SegmentPDF   = "PDF CONTENT"
)

// Segment is one labeled piece of an inbound document.
type Segment struct {
	Label string
	Text  string
}

// RawDocument is the ordered set of segments received for one request.
type RawDocument struct {
	Segments []Segment
}

// IsEmpty reports whether every segment is blank.
func (d RawDocument) IsEmpty() bool {
	for _, s := range d.Segments {
		if strings.TrimSpace(s.Text) != "" {
			return false
		}
	}
	return true
}

// Combined renders the non-blank segments as "<LABEL>:\n<text>", separated
// by a blank line, in their original order.
func (d RawDocument) Combined() string {
	parts := make([]string, 0, len(d.Segments))
	for _, s := range d.Segments {
		if strings.TrimSpace(s.Text) == "" {
			continue
		}
		parts = append(parts, s.Label+":\n"+s.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Len returns the total number of bytes across all segments.
func (d RawDocument) Len() int {
	n := 0
	for _, s := range d.Segments {
		n += len(s.Text)
	}
	return n
}
