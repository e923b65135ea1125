package pipeline

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"vehcat/internal"
)

func TestGridReaderRows(t *testing.T) {
	raw := [][]string{
		{"序号", "企业名称", "通用名称", "型式", "档位数", "排量（ml）"},
		{"1", "甲公司", "甲牌", "MT", "5", "1498"},
		{"2", "", "", "AT", "6", "1598"},
		{"", " ", "", "", "", ""},
		{"3", "乙公司", "", "DCT", "7", "1998"},
		{"小计", "", "", "", "", ""},
		{"4", "丙公司"},
	}
	g, err := NewGridReader(nil, nil).Read(1, raw)
	if err != nil {
		t.Fatal(err)
	}

	wantHeaders := []string{"序号", "企业名称", "通用名称", "变速器", "排量(ml)"}
	if !reflect.DeepEqual(g.Headers, wantHeaders) {
		t.Fatalf("headers=%q", g.Headers)
	}
	want := [][]string{
		{"1", "甲公司", "甲牌", "MT 5", "1498"},
		{"2", "甲公司", "甲牌", "AT 6", "1598"},
		{"3", "乙公司", "甲牌", "DCT 7", "1998"},
		{"4", "丙公司", "甲牌", "", ""},
	}
	if !reflect.DeepEqual(g.Rows, want) {
		t.Fatalf("rows=%q", g.Rows)
	}
	if !reflect.DeepEqual(g.RowNumbers, []int{1, 2, 4, 6}) {
		t.Fatalf("row numbers=%v", g.RowNumbers)
	}
	if g.Repaired != 1 {
		t.Fatalf("repaired=%d", g.Repaired)
	}
	if len(g.Dropped) != 2 || g.Dropped[0].Reason != "empty row" || g.Dropped[1].Reason != "subtotal row" {
		t.Fatalf("dropped=%+v", g.Dropped)
	}
}

func TestGridReaderEmptyHeader(t *testing.T) {
	_, err := NewGridReader(nil, nil).Read(2, [][]string{{"", ""}, {"1", "x"}})
	if !errors.Is(err, internal.ErrEmptyHeader) {
		t.Fatalf("err=%v", err)
	}
}

func TestTableCacheBudget(t *testing.T) {
	c := NewTableCache(10, 0)
	c.Put(Grid{TableID: 1, Headers: []string{"abcd"}})
	if c.Len() != 1 || c.Size() != 4 {
		t.Fatalf("len=%d size=%d", c.Len(), c.Size())
	}
	c.Put(Grid{TableID: 2, Headers: []string{"abcdefgh"}})
	if c.Len() != 0 || c.Size() != 0 {
		t.Fatalf("cache not reset: len=%d size=%d", c.Len(), c.Size())
	}
}

func TestTableCacheCheckInterval(t *testing.T) {
	c := NewTableCache(1, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Put(Grid{TableID: 1, Headers: []string{"ab"}})
	if c.Len() != 0 {
		t.Fatal("first put should check the budget")
	}
	c.Put(Grid{TableID: 2, Headers: []string{"ab"}})
	if c.Len() != 1 {
		t.Fatal("budget must not be checked before the interval elapses")
	}
	now = now.Add(2 * time.Minute)
	c.Put(Grid{TableID: 3, Headers: []string{"ab"}})
	if c.Len() != 0 {
		t.Fatal("budget should be checked after the interval")
	}
}

func TestGridReaderUsesCache(t *testing.T) {
	cache := NewTableCache(1<<20, 0)
	r := NewGridReader(cache, nil)
	raw := [][]string{{"序号", "企业名称"}, {"1", "甲"}}
	if _, err := r.Read(1, raw); err != nil {
		t.Fatal(err)
	}
	g, err := r.Read(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Rows) != 1 {
		t.Fatalf("cached grid rows=%d", len(g.Rows))
	}
}
