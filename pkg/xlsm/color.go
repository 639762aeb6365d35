package xlsm

import (
	"fmt"
	"regexp"
	"strings"
)

var colorRe = regexp.MustCompile(`^#?([0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})$`)

// NormalizeColor validates a 6 or 8 hex digit color, with or without a
// leading '#', and returns it as 8 upper-case ARGB digits. Six-digit colors
// become fully opaque.
func NormalizeColor(color string) (string, error) {
	m := colorRe.FindStringSubmatch(strings.TrimSpace(color))
	if m == nil {
		return "", fmt.Errorf("%w: %q must be 6 or 8 hex digits", ErrInvalidColor, color)
	}
	hex := strings.ToUpper(m[1])
	if len(hex) == 6 {
		hex = "FF" + hex
	}
	return hex, nil
}

// rgb returns the "#RRGGBB" form of a normalized ARGB color, as the document
// library expects.
func rgb(argb string) string {
	return "#" + argb[2:]
}

// optionalColor normalizes color when set and returns "" otherwise.
func optionalColor(color string) (string, error) {
	if strings.TrimSpace(color) == "" {
		return "", nil
	}
	return NormalizeColor(color)
}
