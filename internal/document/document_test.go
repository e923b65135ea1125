package document

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jhillyerd/enmime"
	"github.com/xuri/excelize/v2"

	"vehcat/internal"
	"vehcat/internal/document/doctest"
)

func TestReadDOCXKeepsBlockOrder(t *testing.T) {
	b := doctest.New().
		Paragraph("关于发布第六十五批目录的通知").
		Paragraph("一、节能型汽车").
		Table([]string{"序号", "企业名称", "通用名称"}, []string{"1", "甲公司", "甲牌"}).
		Paragraph("二、新能源汽车").
		Table([]string{"序号", "企业名称"}, []string{"1", "乙公司"})
	blob, err := b.Bytes()
	if err != nil {
		t.Fatal(err)
	}

	blocks, _, err := Parse(FormatDOCX, blob)
	if err != nil {
		t.Fatal(err)
	}
	kinds := []BlockKind{BlockParagraph, BlockParagraph, BlockTable, BlockParagraph, BlockTable}
	if len(blocks) != len(kinds) {
		t.Fatalf("len=%d", len(blocks))
	}
	for i, k := range kinds {
		if blocks[i].Kind != k {
			t.Fatalf("block %d kind=%v want %v", i, blocks[i].Kind, k)
		}
	}
	if blocks[0].Text != "关于发布第六十五批目录的通知" {
		t.Fatalf("text=%q", blocks[0].Text)
	}
	if got := blocks[2].Rows[1][2]; got != "甲牌" {
		t.Fatalf("cell=%q", got)
	}
}

func TestReadDOCXEmptyCellsAndNestedTables(t *testing.T) {
	nested := `<w:tbl><w:tr><w:tc><w:p><w:r><w:t>序号</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>企业</w:t></w:r></w:p><w:p><w:r><w:t>名称</w:t></w:r></w:p></w:tc></w:tr>` +
		`<w:tr><w:tc><w:p/></w:tc><w:tc><w:tbl><w:tr><w:tc><w:p><w:r><w:t>内</w:t></w:r></w:p></w:tc></w:tr></w:tbl></w:tc></w:tr></w:tbl>`
	blob, err := doctest.New().Raw(nested).Bytes()
	if err != nil {
		t.Fatal(err)
	}
	blocks, _, err := Parse(FormatDOCX, blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 1 || blocks[0].Kind != BlockTable {
		t.Fatalf("blocks=%+v", blocks)
	}
	rows := blocks[0].Rows
	if len(rows) != 2 || len(rows[1]) != 2 {
		t.Fatalf("rows=%q", rows)
	}
	if rows[0][1] != "企业\n名称" {
		t.Fatalf("header=%q", rows[0][1])
	}
	if rows[1][0] != "" || rows[1][1] != "内" {
		t.Fatalf("row=%q", rows[1])
	}
}

func TestReadHTML(t *testing.T) {
	html := `<html><body><h2>第十批</h2><div><p>节能型汽车</p>
<table><tr><th>序号</th><th>企业名称</th></tr><tr><td>1</td><td>甲<table><tr><td>x</td></tr></table></td></tr></table></div>
<p>说明</p></body></html>`
	blocks, _, err := Parse(FormatHTML, []byte(html))
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 4 {
		t.Fatalf("len=%d %+v", len(blocks), blocks)
	}
	if blocks[2].Kind != BlockTable || len(blocks[2].Rows) != 2 {
		t.Fatalf("table=%+v", blocks[2])
	}
	if blocks[3].Text != "说明" {
		t.Fatalf("blocks=%+v", blocks)
	}
}

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func TestReadXLSX(t *testing.T) {
	blob := mkXLSX([][]any{
		{"序号", "企业名称", "通用名称"},
		{1, "甲公司", "甲牌"},
	})
	blocks, _, err := Parse(FormatXLSX, blob)
	if err != nil {
		t.Fatal(err)
	}
	if len(blocks) != 2 || blocks[0].Kind != BlockParagraph || blocks[1].Kind != BlockTable {
		t.Fatalf("blocks=%+v", blocks)
	}
	if blocks[1].Rows[1][1] != "甲公司" {
		t.Fatalf("row=%q", blocks[1].Rows[1])
	}
}

func TestOpenUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, Options{}); !errors.Is(err, internal.ErrUnsupportedFormat) {
		t.Fatalf("err=%v", err)
	}
}

func TestOpenLargeFileUsesTempCopy(t *testing.T) {
	dir := t.TempDir()
	path := doctest.New().Paragraph("第一批").WriteFile(t, dir, "a.docx")
	tmp := t.TempDir()

	doc, err := Open(path, Options{LargeFileThreshold: 1, TempDir: tmp})
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Paragraphs()) != 1 {
		t.Fatalf("paragraphs=%q", doc.Paragraphs())
	}
	left, _ := os.ReadDir(tmp)
	if len(left) != 0 {
		t.Fatalf("temp copy not removed: %d entries", len(left))
	}
}

func TestOpenCorruptDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.docx")
	if err := os.WriteFile(path, []byte("not a zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path, Options{}); err == nil {
		t.Fatal("expected error")
	}
}

type attachment struct {
	name, contentType string
	content           []byte
}

func mkEML(t *testing.T, subject, text, html string, atts []attachment) []byte {
	t.Helper()
	b := enmime.Builder().
		From("目录发布", "notice@example.com").
		To("", "inbox@example.com").
		Subject(subject)
	if text != "" {
		b = b.Text([]byte(text))
	}
	if html != "" {
		b = b.HTML([]byte(html))
	}
	for _, a := range atts {
		b = b.AddAttachment(a.content, a.contentType, a.name)
	}
	part, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := part.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestReadEML(t *testing.T) {
	xlsx := mkXLSX([][]any{
		{"序号", "企业名称"},
		{1, "甲公司"},
	})
	tests := []struct {
		name    string
		text    string
		html    string
		atts    []attachment
		kinds   []BlockKind
		skipped string
	}{
		{
			name:  "text body with spreadsheet attachment",
			text:  "第九批\n一、节能型汽车",
			atts:  []attachment{{"目录.xlsx", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", xlsx}},
			kinds: []BlockKind{BlockParagraph, BlockParagraph, BlockParagraph, BlockParagraph, BlockTable},
		},
		{
			name:    "html body and corrupt attachment",
			html:    "<p>第十批</p><table><tr><td>序号</td><td>企业名称</td></tr></table>",
			atts:    []attachment{{"bad.docx", "application/octet-stream", []byte("not a zip")}},
			kinds:   []BlockKind{BlockParagraph, BlockParagraph, BlockTable},
			skipped: "attachment bad.docx",
		},
		{
			name:    "unsupported attachment",
			text:    "第十一批",
			atts:    []attachment{{"logo.png", "image/png", []byte{0x89, 'P', 'N', 'G'}}},
			kinds:   []BlockKind{BlockParagraph, BlockParagraph},
			skipped: "unsupported document format",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := mkEML(t, "目录通知", tt.text, tt.html, tt.atts)
			blocks, skipped, err := Parse(FormatEML, blob)
			if err != nil {
				t.Fatal(err)
			}
			if len(blocks) != len(tt.kinds) {
				t.Fatalf("blocks=%+v", blocks)
			}
			for i, k := range tt.kinds {
				if blocks[i].Kind != k {
					t.Fatalf("block %d kind=%v want %v", i, blocks[i].Kind, k)
				}
			}
			if blocks[0].Text != "目录通知" {
				t.Fatalf("subject=%q", blocks[0].Text)
			}
			if tt.skipped == "" {
				if len(skipped) != 0 {
					t.Fatalf("skipped=%q", skipped)
				}
				return
			}
			if len(skipped) != 1 || !strings.Contains(skipped[0], tt.skipped) {
				t.Fatalf("skipped=%q", skipped)
			}
		})
	}
}

func TestReadEMLAttachmentTable(t *testing.T) {
	xlsx := mkXLSX([][]any{
		{"序号", "企业名称"},
		{1, "甲公司"},
	})
	blob := mkEML(t, "目录通知", "第九批", "", []attachment{{"目录.xlsx", "application/octet-stream", xlsx}})
	blocks, _, err := Parse(FormatEML, blob)
	if err != nil {
		t.Fatal(err)
	}
	last := blocks[len(blocks)-1]
	if last.Kind != BlockTable || last.Rows[1][1] != "甲公司" {
		t.Fatalf("last=%+v", last)
	}
}

// mkPDF writes a one-page PDF with one text object per line.
func mkPDF(lines ...string) []byte {
	var content strings.Builder
	for _, l := range lines {
		fmt.Fprintf(&content, "BT /F1 12 Tf 72 720 Td (%s) Tj ET\n", l)
	}
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", content.Len(), content.String()),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestReadPDF(t *testing.T) {
	blocks, skipped, err := Parse(FormatPDF, mkPDF("Batch 9 announcement", "Total 3 models"))
	if err != nil {
		t.Fatal(err)
	}
	if len(skipped) != 0 {
		t.Fatalf("skipped=%q", skipped)
	}
	want := []string{"Batch 9 announcement", "Total 3 models"}
	if len(blocks) != len(want) {
		t.Fatalf("blocks=%+v", blocks)
	}
	for i, w := range want {
		if blocks[i].Kind != BlockParagraph || blocks[i].Text != w {
			t.Fatalf("block %d=%+v", i, blocks[i])
		}
	}

	if _, _, err := Parse(FormatPDF, []byte("not a pdf")); err == nil {
		t.Fatal("expected error for invalid pdf")
	}
}
