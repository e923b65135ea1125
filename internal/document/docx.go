package document

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

const docxBodyPart = "word/document.xml"

func readDOCX(r io.ReaderAt, size int64) ([]Block, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("open docx archive: %w", err)
	}

	var part *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			part = f
			break
		}
	}
	if part == nil {
		return nil, errors.New("docx archive has no " + docxBodyPart)
	}

	rc, err := part.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	blocks, err := decodeBody(xml.NewDecoder(rc))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", docxBodyPart, err)
	}
	return blocks, nil
}

// decodeBody streams the body of document.xml, emitting paragraphs and
// tables in the order they appear.
func decodeBody(dec *xml.Decoder) ([]Block, error) {
	blocks := []Block{}
	inBody := false
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case start.Name.Local == "body":
			inBody = true
		case !inBody:
		case start.Name.Local == "p":
			text, err := paragraphText(dec)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, Paragraph(strings.TrimSpace(text)))
		case start.Name.Local == "tbl":
			rows, err := tableRows(dec)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, Table(rows))
		}
	}
}

func paragraphText(dec *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 1
	inText := false
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return "", err
				}
				continue
			}
			depth++
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				sb.WriteString("\t")
			case "br", "cr":
				sb.WriteString("\n")
			}
		case xml.EndElement:
			depth--
			if t.Name.Local == "t" {
				inText = false
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

// tableRows collects one string per w:tc of the outer table. Text of nested
// tables is folded into the enclosing cell.
func tableRows(dec *xml.Decoder) ([][]string, error) {
	rows := [][]string{}
	var row []string
	var cell strings.Builder
	depth := 1
	nested := 0
	paras := 0
	inText := false

	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Fallback" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				continue
			}
			depth++
			switch t.Name.Local {
			case "tbl":
				nested++
			case "tr":
				if nested == 0 {
					row = []string{}
				}
			case "tc":
				if nested == 0 {
					cell.Reset()
					paras = 0
				}
			case "p":
				if paras > 0 {
					cell.WriteString("\n")
				}
				paras++
			case "t":
				inText = true
			case "tab":
				cell.WriteString("\t")
			case "br", "cr":
				cell.WriteString("\n")
			}
		case xml.EndElement:
			depth--
			switch t.Name.Local {
			case "tbl":
				if nested > 0 {
					nested--
				}
			case "tr":
				if nested == 0 {
					rows = append(rows, row)
				}
			case "tc":
				if nested == 0 {
					row = append(row, strings.TrimSpace(cell.String()))
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cell.Write(t)
			}
		}
	}
	return rows, nil
}
