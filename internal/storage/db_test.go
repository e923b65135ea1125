package storage

import (
	"path/filepath"
	"testing"

	"vehcat/internal"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDocumentRoundTrip(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("run", "in/*.docx")
	if err != nil {
		t.Fatal(err)
	}

	doc, err := db.UpsertDocument(internal.DocumentRow{RunID: runID, Path: "in/a.docx", Hash: "h1", Format: "docx", Size: 10, Batch: "65", Status: internal.DocumentProcessed})
	if err != nil {
		t.Fatal(err)
	}
	again, err := db.UpsertDocument(internal.DocumentRow{RunID: runID, Path: "in/copy.docx", Hash: "h1", Status: internal.DocumentProcessed})
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != doc.ID || again.Path != "in/copy.docx" {
		t.Fatalf("hash dedupe failed: %+v vs %+v", doc, again)
	}

	declared := 2
	recs := []internal.Record{
		{Batch: "65", CarType: "2", Category: internal.CategoryEnergySaving, SubType: "（一）乘用车", TableID: 1, Model: "JA7150", Company: "甲", RawText: "1 | 甲", Extra: map[string]string{"排量(ml)": "1498"}},
		{Batch: "65", CarType: "1", Category: internal.CategoryNewEnergy, SubType: "未知", TableID: 2, RawText: "2 | 乙", Extra: map[string]string{}},
	}
	rep := internal.ConsistencyReport{Status: internal.StatusMatch, Batch: "65", ActualCount: 2, DeclaredCount: &declared, TableCounts: map[int]int{1: 1, 2: 1}}
	notes := []internal.Note{{Kind: internal.NoteRemark, Section: "文档说明", Batch: "65", Content: "说明"}}
	if err := db.SaveDocumentResult(doc.ID, recs, rep, notes); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveDocumentResult(doc.ID, recs, rep, notes); err != nil {
		t.Fatal(err)
	}

	got, err := db.GetRecords(doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Extra["排量(ml)"] != "1498" || got[1].Category != internal.CategoryNewEnergy {
		t.Fatalf("records=%+v", got)
	}

	if err := db.UpdateDocumentStatus(doc.ID, internal.DocumentExported); err != nil {
		t.Fatal(err)
	}
	pending, err := db.ListDocumentsByStatus(internal.DocumentProcessed, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 0 {
		t.Fatalf("pending=%+v", pending)
	}
}

func TestRunsAndDrops(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun("run", "in")
	if err != nil {
		t.Fatal(err)
	}
	drops := []internal.Drop{
		{Level: internal.DropRow, TableID: 1, Row: 3, Reason: "empty row"},
		{Level: internal.DropRow, TableID: 1, Row: 5, Reason: "subtotal row"},
		{Level: internal.DropDocument, Source: "bad.docx", Reason: "not a zip"},
	}
	if err := db.InsertDrops(runID, nil, drops); err != nil {
		t.Fatal(err)
	}
	counts, err := db.CountDrops(runID)
	if err != nil {
		t.Fatal(err)
	}
	if counts[internal.DropRow] != 2 || counts[internal.DropDocument] != 1 {
		t.Fatalf("counts=%v", counts)
	}

	if err := db.FinishRun(runID, 2, 1, 5, 3); err != nil {
		t.Fatal(err)
	}
	runs, err := db.ListRuns(5)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].Records != 5 || runs[0].FinishedAt == nil {
		t.Fatalf("runs=%+v", runs)
	}
}

func TestMetadata(t *testing.T) {
	db := openTestDB(t)
	if v, err := db.GetMetadata("watch.last_cycle"); err != nil || v != nil {
		t.Fatalf("v=%v err=%v", v, err)
	}
	if err := db.SetMetadata("watch.last_cycle", "x"); err != nil {
		t.Fatal(err)
	}
	v, err := db.GetMetadata("watch.last_cycle")
	if err != nil || v == nil || *v != "x" {
		t.Fatalf("v=%v err=%v", v, err)
	}
}
