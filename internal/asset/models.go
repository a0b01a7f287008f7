package asset

import (
	"strings"
	"time"
)

// Reference is a content-addressed handle to an externally stored document.
// The registry never holds document bytes, only integrity-checked handles.
// Immutable once created; multiple requests may reference the same handle.
type Reference struct {
	ReferenceID string    `json:"reference_id"`
	SizeBytes   int64     `json:"size_bytes"`
	MimeClass   string    `json:"mime_class"`
	CreatedAt   time.Time `json:"created_at"`
}

// MimeClassOf reduces a content type to the coarse class retained on the
// reference. The registry does not care about exact subtypes.
func MimeClassOf(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "image"
	case strings.HasPrefix(contentType, "application/pdf"):
		return "document"
	case contentType == "":
		return "unknown"
	default:
		return "other"
	}
}
