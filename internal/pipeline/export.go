package pipeline

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"sort"

	"github.com/xuri/excelize/v2"

	"vehcat/internal"
)

const utf8BOM = "\uFEFF"

// ExportColumns is the priority prefix followed by every other column present
// in records, sorted.
func ExportColumns(records []internal.Record) []string {
	priority := map[string]bool{}
	for _, c := range internal.PriorityColumns {
		priority[c] = true
	}
	seen := map[string]bool{}
	var rest []string
	for _, r := range records {
		for _, c := range r.Columns() {
			if priority[c] || seen[c] {
				continue
			}
			seen[c] = true
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)

	cols := make([]string, 0, len(internal.PriorityColumns)+len(rest))
	cols = append(cols, internal.PriorityColumns...)
	return append(cols, rest...)
}

func ExportRecordsToCSV(records []internal.Record, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteString(utf8BOM); err != nil {
		return err
	}
	cols := ExportColumns(records)
	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}
	row := make([]string, len(cols))
	for _, r := range records {
		for i, c := range cols {
			row[i] = r.Field(c)
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func ExportRecordsToXLSX(records []internal.Record, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	cols := ExportColumns(records)
	for i, h := range cols {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
	for i, r := range records {
		for j, c := range cols {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(sheet, cell, r.Field(c))
		}
	}
	_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
