package util

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reThousandsComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+$`)
)

// ParseNumber parses one numeric token, accepting comma thousands separators
// and a decimal comma. A dot is always the decimal point.
func ParseNumber(input string) (float64, bool) {
	token := normalizeNumericToken(input)
	if token == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CoerceNumeric resolves a numeric cell: a slash separated range resolves to
// its minimum, anything unparsable is cleared to "".
func CoerceNumeric(input string) string {
	value := strings.TrimSpace(input)
	if value == "" {
		return ""
	}

	if strings.Contains(value, "/") {
		found := false
		min := 0.0
		for _, part := range strings.Split(value, "/") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			v, ok := ParseNumber(part)
			if !ok {
				return ""
			}
			if !found || v < min {
				min = v
				found = true
			}
		}
		if !found {
			return ""
		}
		return FormatNumber(min)
	}

	v, ok := ParseNumber(value)
	if !ok {
		return ""
	}
	return FormatNumber(v)
}

func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(strings.TrimSpace(token), " ", "")
	compact = strings.ReplaceAll(compact, "\u00A0", "")
	if reThousandsComma.MatchString(compact) {
		return strings.ReplaceAll(compact, ",", "")
	}
	if strings.Contains(compact, ",") && !strings.Contains(compact, ".") {
		return strings.ReplaceAll(compact, ",", ".")
	}
	return compact
}
