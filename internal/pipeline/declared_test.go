package pipeline

import (
	"testing"

	"vehcat/internal/util"
)

func TestExtractBatchNumber(t *testing.T) {
	cases := []struct {
		text string
		want string
		ok   bool
	}{
		{"第六十五批", "65", true},
		{"关于发布第六十五批节能与新能源汽车示范推广应用工程推荐车型目录的通知", "65", true},
		{"第十五批", "15", true},
		{"第九百九十六批", "996", true},
		{"第一百零五批", "105", true},
		{"第65批", "65", true},
		{"九百九十六", "996", true},
		{"没有批次号的文本", "", false},
		{"第批", "", false},
		{"", "", false},
	}
	nn := util.NewNumeralNormalizer(16)
	for _, tc := range cases {
		got, ok := ExtractBatchNumber(tc.text, nn)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("ExtractBatchNumber(%q)=(%q,%v)", tc.text, got, ok)
		}
	}
}

func TestDeclaredCountInText(t *testing.T) {
	cases := map[string]int{
		"本批目录共计125款车型":   125,
		"以上合计 8 个型号":      8,
		"总计：新能源汽车 42 辆": 42,
	}
	for text, want := range cases {
		got, ok := DeclaredCountInText(text)
		if !ok || got != want {
			t.Fatalf("%q: got %d,%v", text, got, ok)
		}
	}
	if _, ok := DeclaredCountInText("共计若干款"); ok {
		t.Fatal("no number should not match")
	}
}

func TestDeclaredCountInTableEdgeRows(t *testing.T) {
	rows := [][]string{{"序号", "企业名称"}}
	for i := 0; i < 10; i++ {
		rows = append(rows, []string{"x", "y"})
	}
	rows = append(rows, []string{"合计", "共", "37"})
	if n, ok := DeclaredCountInTable(rows); !ok || n != 37 {
		t.Fatalf("got %d,%v", n, ok)
	}

	middle := append([][]string{}, rows[:4]...)
	middle = append(middle, []string{"总计", "12"})
	middle = append(middle, rows[4:8]...)
	if _, ok := DeclaredCountInTable(middle[:len(middle)-1]); ok {
		t.Fatal("middle rows must not be inspected")
	}
}

func TestDeclaredCountFinderBounds(t *testing.T) {
	f := NewDeclaredCountFinder(2, 1)
	f.Paragraph("")
	f.Paragraph("正文")
	if _, ok := f.Paragraph("共计5款"); ok {
		t.Fatal("paragraph beyond the limit was inspected")
	}
	if n, ok := f.Table([][]string{{"合计", "9"}}); !ok || n != 9 {
		t.Fatalf("table: %d,%v", n, ok)
	}
	if _, ok := f.Table([][]string{{"合计", "3"}}); ok {
		t.Fatal("first found must win")
	}
}
