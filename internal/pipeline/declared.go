package pipeline

import (
	"regexp"
	"strconv"
	"strings"

	"vehcat/internal/util"
)

var (
	batchPattern       = regexp.MustCompile(`第([一二三四五六七八九十百零\d]+)批`)
	bareNumeralPattern = regexp.MustCompile(`[一二三四五六七八九十百零]+`)
	declaredPattern    = regexp.MustCompile(`(共计|总计|合计).*?(\d+).*?(款|个|种|辆|台|项)`)
)

const edgeRows = 3

// ExtractBatchNumber finds the batch number in text: "第N批" first, then any
// run of Chinese numerals.
func ExtractBatchNumber(text string, numerals *util.NumeralNormalizer) (string, bool) {
	if numerals == nil {
		numerals = util.NewNumeralNormalizer(0)
	}
	if m := batchPattern.FindStringSubmatch(text); m != nil {
		return numerals.Normalize(m[1]), true
	}
	if run := bareNumeralPattern.FindString(text); run != "" {
		n := numerals.Normalize(run)
		if util.IsASCIIDigits(n) {
			return n, true
		}
	}
	return "", false
}

// DeclaredCountFinder looks for the announced total of records, first in the
// leading paragraphs and then in the edge rows of the leading tables.
type DeclaredCountFinder struct {
	MaxParagraphs int
	MaxTables     int

	paragraphs int
	tables     int
	found      bool
}

func NewDeclaredCountFinder(maxParagraphs, maxTables int) *DeclaredCountFinder {
	return &DeclaredCountFinder{MaxParagraphs: maxParagraphs, MaxTables: maxTables}
}

// Paragraph inspects the next paragraph. Empty paragraphs count towards
// MaxParagraphs.
func (f *DeclaredCountFinder) Paragraph(text string) (int, bool) {
	if f.found || f.paragraphs >= f.MaxParagraphs {
		return 0, false
	}
	f.paragraphs++
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, false
	}
	n, ok := DeclaredCountInText(text)
	f.found = ok
	return n, ok
}

// Table inspects the next table's raw rows, header included.
func (f *DeclaredCountFinder) Table(rows [][]string) (int, bool) {
	if f.found || f.tables >= f.MaxTables {
		return 0, false
	}
	f.tables++
	n, ok := DeclaredCountInTable(rows)
	f.found = ok
	return n, ok
}

func DeclaredCountInText(text string) (int, bool) {
	m := declaredPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return n, true
}

func DeclaredCountInTable(rows [][]string) (int, bool) {
	check := rows
	if len(rows) > 2*edgeRows {
		check = append(append([][]string{}, rows[:edgeRows]...), rows[len(rows)-edgeRows:]...)
	}
	for _, row := range check {
		if !hasTotalCell(row) {
			continue
		}
		for _, cell := range row {
			cell = strings.TrimSpace(cell)
			if util.IsASCIIDigits(cell) {
				n, err := strconv.Atoi(cell)
				if err == nil {
					return n, true
				}
			}
		}
	}
	return 0, false
}

func hasTotalCell(row []string) bool {
	for _, cell := range row {
		cell = strings.TrimSpace(cell)
		if strings.HasPrefix(cell, "合计") || strings.HasPrefix(cell, "总计") {
			return true
		}
	}
	return false
}
