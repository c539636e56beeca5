package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string with CRLF line endings normalised.
// Invalid UTF-8 sequences are replaced with U+FFFD.
func extractPlain(content []byte) (string, error) {
	s := string(content)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "\ufffd")
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
