package document

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var htmlParagraphTags = map[string]bool{
	"p": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "caption": true, "pre": true,
}

var htmlSkipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "head": true, "title": true,
}

func readHTML(r io.Reader) ([]Block, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}
	blocks := []Block{}
	walkHTML(root, &blocks)
	return blocks, nil
}

func walkHTML(sel *goquery.Selection, blocks *[]Block) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		name := goquery.NodeName(node)
		switch {
		case name == "#text":
			if text := strings.TrimSpace(node.Text()); text != "" {
				*blocks = append(*blocks, Paragraph(text))
			}
		case htmlSkipTags[name]:
		case name == "table":
			*blocks = append(*blocks, Table(htmlTableRows(node)))
		case htmlParagraphTags[name] && node.Find("table").Length() == 0:
			for _, line := range splitLines(node.Text()) {
				*blocks = append(*blocks, Paragraph(line))
			}
		case name == "br":
		default:
			walkHTML(node, blocks)
		}
	})
}

func htmlTableRows(table *goquery.Selection) [][]string {
	rows := [][]string{}
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		if !tr.Closest("table").IsSelection(table) {
			return
		}
		cells := []string{}
		tr.ChildrenFiltered("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, strings.TrimSpace(cell.Text()))
		})
		rows = append(rows, cells)
	})
	return rows
}
