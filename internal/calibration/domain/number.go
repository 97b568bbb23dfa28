package calibration

import (
	"math"
	"strconv"
	"strings"
)

// ParseNumber parses a spreadsheet number, accepting ',' as the decimal separator.
func ParseNumber(raw string) (float64, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, ErrBlankCell
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(text, ",", "."), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, ErrMalformedCell
	}
	return value, nil
}

// parseOffsetHeader decodes an offset column header such as "0", "0.01" or "0,05".
// Only digits and decimal separators are accepted, so signs and exponents are rejected.
func parseOffsetHeader(header string) (float64, bool) {
	text := strings.TrimSpace(header)
	digits := strings.NewReplacer(".", "", ",", "").Replace(text)
	if digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	value, err := ParseNumber(text)
	if err != nil {
		return 0, false
	}
	return value, true
}
