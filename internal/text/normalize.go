package text

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize prepares raw input text for segmentation.
// It normalizes line endings to \n, composes the text to NFC so that
// precomposed and decomposed spellings segment identically, and trims
// surrounding whitespace. Empty input stays empty.
func Normalize(s string) string {
	// Normalize line endings: CRLF → LF, then bare CR → LF.
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	s = norm.NFC.String(s)

	return strings.TrimSpace(s)
}
