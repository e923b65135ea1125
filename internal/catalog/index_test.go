package catalog

import (
	"testing"

	"vehcat/internal"
)

func TestDuplicateModels(t *testing.T) {
	recs := []internal.Record{
		{Model: "JA7150", Company: "甲", Batch: "64"},
		{Model: "ja 7150", Company: "甲", Batch: "65"},
		{Model: "ＪＡ７１５０", Company: "甲", Batch: "65"},
		{Model: "YB7200", Company: "乙", Batch: "65"},
		{Model: "", Company: "乙", Batch: "65"},
	}
	idx := BuildIndex(recs)

	dups := idx.DuplicateModels()
	if len(dups) != 1 || dups[0].Model != "JA7150" || dups[0].Count != 3 {
		t.Fatalf("dups=%+v", dups)
	}
	if len(idx.ByModel["YB7200"]) != 1 {
		t.Fatal("model key should ignore case")
	}

	companies := idx.Companies()
	want := []CompanyCount{
		{Company: "甲", Records: 3, Models: 1},
		{Company: "乙", Records: 2, Models: 1},
	}
	if len(companies) != len(want) {
		t.Fatalf("companies=%+v", companies)
	}
	for i, w := range want {
		if companies[i] != w {
			t.Fatalf("companies[%d]=%+v want %+v", i, companies[i], w)
		}
	}
}
