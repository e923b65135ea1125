// Package doctest builds small in-memory .docx fixtures for tests.
package doctest

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contentTypes = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rels = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

// Builder accumulates body content in order.
type Builder struct {
	body strings.Builder
}

func New() *Builder {
	return &Builder{}
}

func (b *Builder) Paragraph(text string) *Builder {
	b.body.WriteString("<w:p><w:r><w:t xml:space=\"preserve\">")
	b.body.WriteString(escape(text))
	b.body.WriteString("</w:t></w:r></w:p>")
	return b
}

func (b *Builder) Table(rows ...[]string) *Builder {
	b.body.WriteString("<w:tbl>")
	for _, row := range rows {
		b.body.WriteString("<w:tr>")
		for _, cell := range row {
			b.body.WriteString("<w:tc><w:p>")
			if cell != "" {
				b.body.WriteString("<w:r><w:t>")
				b.body.WriteString(escape(cell))
				b.body.WriteString("</w:t></w:r>")
			}
			b.body.WriteString("</w:p></w:tc>")
		}
		b.body.WriteString("</w:tr>")
	}
	b.body.WriteString("</w:tbl>")
	return b
}

// Raw appends pre-built WordprocessingML.
func (b *Builder) Raw(xmlText string) *Builder {
	b.body.WriteString(xmlText)
	return b
}

func (b *Builder) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)

	parts := []struct{ name, body string }{
		{"[Content_Types].xml", contentTypes},
		{"_rels/.rels", rels},
		{"word/document.xml", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + b.body.String() + `</w:body></w:document>`},
	}
	for _, p := range parts {
		w, err := zw.Create(p.name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(p.body)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes the document under dir and returns its path.
func (b *Builder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()
	blob, err := b.Bytes()
	if err != nil {
		t.Fatalf("build docx: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		t.Fatalf("write docx: %v", err)
	}
	return path
}

func escape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}
