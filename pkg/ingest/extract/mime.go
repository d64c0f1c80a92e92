// Package extract implements the MIME-dispatched parser registry, directly
// grounded on original_source's infrastructure/parsers/registry.py
// (factory-by-MIME map, register()/get_parser(), UnsupportedMimeTypeError)
// and mime_types.py's exact constants and normalization rule.
package extract

import "strings"

const (
	PDFMime  = "application/pdf"
	DOCXMime = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	TXTMime  = "text/plain"
)

// NormalizeMimeType lower-cases a MIME string and strips any ";"-delimited
// parameters (e.g. "text/plain; charset=utf-8" -> "text/plain").
func NormalizeMimeType(mime string) string {
	mime = strings.TrimSpace(mime)
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = mime[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mime))
}
