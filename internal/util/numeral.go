package util

import (
	"strconv"
	"strings"
	"sync"
)

const (
	cnZero    = "零"
	cnTen     = "十"
	cnHundred = "百"
)

var cnDigits = map[string]string{
	"零": "0",
	"一": "1",
	"二": "2",
	"三": "3",
	"四": "4",
	"五": "5",
	"六": "6",
	"七": "7",
	"八": "8",
	"九": "9",
	"十": "10",
	"百": "100",
}

// CJKNumeralChars is the character class used to spot bare numeral runs.
const CJKNumeralChars = "一二三四五六七八九十百零"

// NumeralNormalizer converts CJK numerals to ASCII decimal strings. Results are
// memoized in an owned cache that is reset once it holds maxEntries values.
type NumeralNormalizer struct {
	mu         sync.Mutex
	cache      map[string]string
	maxEntries int
}

func NewNumeralNormalizer(maxEntries int) *NumeralNormalizer {
	if maxEntries <= 0 {
		maxEntries = 1024
	}
	return &NumeralNormalizer{cache: map[string]string{}, maxEntries: maxEntries}
}

func (n *NumeralNormalizer) Normalize(input string) string {
	if IsASCIIDigits(input) {
		return input
	}
	n.mu.Lock()
	if v, ok := n.cache[input]; ok {
		n.mu.Unlock()
		return v
	}
	n.mu.Unlock()

	out := normalizeNumeral(input)

	n.mu.Lock()
	if len(n.cache) >= n.maxEntries {
		n.cache = map[string]string{}
	}
	n.cache[input] = out
	n.mu.Unlock()
	return out
}

func (n *NumeralNormalizer) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.cache)
}

func normalizeNumeral(s string) string {
	if IsASCIIDigits(s) {
		return s
	}
	runes := []rune(s)
	if len(runes) == 1 {
		return digitOf(s)
	}

	if strings.Contains(s, cnHundred) {
		parts := strings.SplitN(s, cnHundred, 2)
		hundreds, ok := digitValue(parts[0])
		if !ok {
			return s
		}
		rest := parts[1]
		if rest == "" {
			return strconv.Itoa(hundreds * 100)
		}
		if strings.HasPrefix(rest, cnZero) {
			restRunes := []rune(rest)
			ones, ok := digitValue(string(restRunes[len(restRunes)-1]))
			if !ok {
				return s
			}
			return strconv.Itoa(hundreds*100 + ones)
		}
		tail, err := strconv.Atoi(normalizeNumeral(rest))
		if err != nil {
			return s
		}
		return strconv.Itoa(hundreds*100 + tail)
	}

	if strings.HasPrefix(s, cnTen) {
		return "1" + digitOf(string(runes[1]))
	}

	if strings.Contains(s, cnTen) {
		parts := strings.SplitN(s, cnTen, 2)
		ones := "0"
		if parts[1] != "" {
			ones = digitOf(parts[1])
		}
		return digitOf(parts[0]) + ones
	}

	return digitOf(s)
}

func digitOf(s string) string {
	if v, ok := cnDigits[s]; ok {
		return v
	}
	return s
}

func digitValue(s string) (int, bool) {
	v, ok := cnDigits[s]
	if !ok || len(v) != 1 {
		return 0, false
	}
	return int(v[0] - '0'), true
}
