package document

import (
	"io"
	"strconv"

	pdf "github.com/ledongthuc/pdf"
)

// readPDF yields only paragraph blocks: one per non-empty text line. Tables
// are not recovered from page content.
func readPDF(r io.ReaderAt, size int64, sk *skips) ([]Block, error) {
	pr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, err
	}

	blocks := []Block{}
	for i := 1; i <= pr.NumPage(); i++ {
		p := pr.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			sk.add("page "+strconv.Itoa(i), err)
			continue
		}
		for _, line := range splitLines(text) {
			blocks = append(blocks, Paragraph(line))
		}
	}
	return blocks, nil
}
