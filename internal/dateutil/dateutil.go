// Package dateutil formats build dates for templates and data values.
package dateutil

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidDateFormat indicates an invalid date format string.
var ErrInvalidDateFormat = errors.New("invalid date format")

// MaxDateFormatLength limits format string length.
const MaxDateFormatLength = 50

// DefaultDateFormat is used when "auto" is specified without a format.
const DefaultDateFormat = "YYYY-MM-DD"

// dateTokens is searched in order, so longer tokens come first.
var dateTokens = []struct {
	token string
	goFmt string
}{
	{"YYYY", "2006"},
	{"MMMM", "January"},
	{"dddd", "Monday"},
	{"MMM", "Jan"},
	{"ddd", "Mon"},
	{"YY", "06"},
	{"MM", "01"},
	{"DD", "02"},
	{"HH", "15"},
	{"mm", "04"},
	{"M", "1"},
	{"D", "2"},
}

// DatePresets provides named shortcuts for common date formats.
var DatePresets = map[string]string{
	"iso":      "YYYY-MM-DD",
	"european": "DD/MM/YYYY",
	"us":       "MM/DD/YYYY",
	"long":     "MMMM D, YYYY",
	"short":    "MMM D",
}

// ParseDateFormat converts a user-friendly format string to Go's time format.
// Tokens: YYYY, YY, MMMM, MMM, MM, M, DD, D, dddd, ddd, HH, mm.
// Brackets escape literal text: [Sent] keeps "Sent" as is.
// Any other character is kept as a literal.
func ParseDateFormat(format string) (string, error) {
	switch {
	case format == "":
		return "", fmt.Errorf("%w: format cannot be empty", ErrInvalidDateFormat)
	case len(format) > MaxDateFormatLength:
		return "", fmt.Errorf("%w: format exceeds %d characters", ErrInvalidDateFormat, MaxDateFormatLength)
	}

	var out strings.Builder
	for pos := 0; pos < len(format); {
		piece, n, err := nextPiece(format, pos)
		if err != nil {
			return "", err
		}
		out.WriteString(piece)
		pos += n
	}
	return out.String(), nil
}

// nextPiece translates the piece of format starting at pos and returns
// it with the number of bytes consumed.
func nextPiece(format string, pos int) (string, int, error) {
	rest := format[pos:]
	if rest[0] == '[' {
		closing := strings.IndexByte(rest, ']')
		if closing < 0 {
			return "", 0, fmt.Errorf("%w: unclosed bracket at position %d", ErrInvalidDateFormat, pos)
		}
		return rest[1:closing], closing + 1, nil
	}
	for _, t := range dateTokens {
		if strings.HasPrefix(rest, t.token) {
			return t.goFmt, len(t.token), nil
		}
	}
	return rest[:1], 1, nil
}

// Format renders t with a preset name (case-insensitive) or a token format.
func Format(t time.Time, format string) (string, error) {
	if preset, ok := DatePresets[strings.ToLower(format)]; ok {
		format = preset
	}
	goFmt, err := ParseDateFormat(format)
	if err != nil {
		return "", err
	}
	return t.Format(goFmt), nil
}

// ResolveDate expands data values of the form "auto" (t as YYYY-MM-DD)
// and "auto:FORMAT" (t in a token format or preset). Values without the
// auto prefix come back unchanged.
func ResolveDate(value string, t time.Time) (string, error) {
	const prefix = "auto:"

	lower := strings.ToLower(value)
	switch {
	case !strings.HasPrefix(lower, "auto"):
		return value, nil
	case lower == "auto":
		return Format(t, DefaultDateFormat)
	case !strings.HasPrefix(lower, prefix):
		return "", fmt.Errorf("%w: invalid auto syntax %q, use \"auto\" or \"auto:FORMAT\"", ErrInvalidDateFormat, value)
	case len(value) == len(prefix):
		return "", fmt.Errorf("%w: format cannot be empty after \"auto:\"", ErrInvalidDateFormat)
	}
	return Format(t, value[len(prefix):])
}
