package util

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	fullWidthPunct = strings.NewReplacer("，", ", ", "；", "; ")
	reHeaderSpaces = regexp.MustCompile(`\s+`)
)

// Canonicalize folds full-width forms to their half-width equivalents
// (full-width comma and semicolon gain a trailing space), collapses whitespace
// runs to one space and trims. Canonicalize(Canonicalize(s)) == Canonicalize(s).
func Canonicalize(input string) string {
	s := fullWidthPunct.Replace(input)
	s = norm.NFKC.String(s)
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeHeader canonicalizes a header cell and drops the whitespace that
// wrapped header cells pick up inside CJK labels.
func NormalizeHeader(input string) string {
	s := Canonicalize(input)
	return reHeaderSpaces.ReplaceAllString(s, "")
}

func IsBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func IsASCIIDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// NormalizeModel is the comparison key of a vehicle model code: canonical
// form, upper case, no spaces.
func NormalizeModel(model string) string {
	return strings.ToUpper(reHeaderSpaces.ReplaceAllString(Canonicalize(model), ""))
}
