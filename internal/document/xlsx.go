package document

import (
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readXLSX maps every sheet to a paragraph carrying the sheet name followed by
// one table block of its rows.
func readXLSX(r io.Reader, sk *skips) ([]Block, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	blocks := []Block{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			sk.add("sheet "+sheet, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}
		blocks = append(blocks, Paragraph(sheet))

		table := make([][]string, 0, len(rows))
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, strings.TrimSpace(c))
			}
			table = append(table, cells)
		}
		blocks = append(blocks, Table(table))
	}
	return blocks, nil
}
