// Package report renders end-of-run summaries as text tables.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"vehcat/internal"
	"vehcat/internal/catalog"
	"vehcat/internal/pipeline"
)

func newTable(w io.Writer, header ...string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetHeader(header)
	t.SetAutoFormatHeaders(false)
	t.SetAutoWrapText(false)
	return t
}

// Documents prints one line per processed document.
func Documents(w io.Writer, results []pipeline.DocumentResult) {
	t := newTable(w, "document", "format", "size", "batch", "records", "declared", "status")
	for _, r := range results {
		name := r.Path
		if r.Err != nil {
			t.Append([]string{name, string(r.Format), "", "", "", "", "error: " + r.Err.Error()})
			continue
		}
		rep := r.Result.Report
		declared := ""
		if rep.DeclaredCount != nil {
			declared = strconv.Itoa(*rep.DeclaredCount)
		}
		t.Append([]string{
			name,
			string(r.Format),
			humanize.Bytes(uint64(r.Size)),
			r.Result.Batch.ID,
			humanize.Comma(int64(len(r.Result.Records()))),
			declared,
			string(rep.Status),
		})
	}
	t.Render()
}

// Statistics prints record counts by category, batch and sub-type.
func Statistics(w io.Writer, st pipeline.Statistics) {
	t := newTable(w, "group", "value", "records", "share")
	share := func(n int) string {
		if st.Total == 0 {
			return "0.0%"
		}
		return fmt.Sprintf("%.1f%%", float64(n)*100/float64(st.Total))
	}
	t.Append([]string{"car_type", "节能型汽车", humanize.Comma(int64(st.EnergySaving)), share(st.EnergySaving)})
	t.Append([]string{"car_type", "新能源汽车", humanize.Comma(int64(st.NewEnergy)), share(st.NewEnergy)})
	for _, k := range sortedKeys(st.ByBatch) {
		t.Append([]string{"batch", k, humanize.Comma(int64(st.ByBatch[k])), share(st.ByBatch[k])})
	}
	for _, k := range sortedKeys(st.BySubType) {
		t.Append([]string{"sub_type", k, humanize.Comma(int64(st.BySubType[k])), share(st.BySubType[k])})
	}
	t.SetFooter([]string{"", "total", humanize.Comma(int64(st.Total)), ""})
	t.Render()
}

// Drops prints drop counts grouped by level and reason.
func Drops(w io.Writer, drops []internal.Drop) {
	counts := map[string]int{}
	for _, d := range drops {
		counts[string(d.Level)+"\x00"+reasonKey(d.Reason)]++
	}
	if len(counts) == 0 {
		fmt.Fprintln(w, "no drops")
		return
	}
	t := newTable(w, "level", "reason", "count")
	for _, k := range sortedKeys(counts) {
		level, reason, _ := strings.Cut(k, "\x00")
		t.Append([]string{level, reason, strconv.Itoa(counts[k])})
	}
	t.Render()
}

func Duplicates(w io.Writer, dups []catalog.Duplicate) {
	if len(dups) == 0 {
		return
	}
	t := newTable(w, "model", "count", "batches")
	for _, d := range dups {
		seen := map[string]bool{}
		var batches []string
		for _, r := range d.Records {
			if !seen[r.Batch] {
				seen[r.Batch] = true
				batches = append(batches, r.Batch)
			}
		}
		sort.Strings(batches)
		t.Append([]string{d.Model, strconv.Itoa(d.Count), strings.Join(batches, ",")})
	}
	t.Render()
}

func Companies(w io.Writer, companies []catalog.CompanyCount) {
	if len(companies) == 0 {
		return
	}
	t := newTable(w, "company", "records", "models")
	for _, c := range companies {
		t.Append([]string{c.Company, humanize.Comma(int64(c.Records)), humanize.Comma(int64(c.Models))})
	}
	t.Render()
}

// Consistency prints the per-document consistency reports.
func Consistency(w io.Writer, results []pipeline.DocumentResult) {
	t := newTable(w, "document", "status", "actual", "difference", "message")
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		rep := r.Result.Report
		t.Append([]string{r.Path, string(rep.Status), strconv.Itoa(rep.ActualCount), strconv.Itoa(rep.Difference), rep.Message})
	}
	t.Render()
}

// reasonKey folds per-document detail out of document-level reasons.
func reasonKey(reason string) string {
	if i := strings.Index(reason, ": "); i > 0 && strings.Contains(reason[:i], ".") {
		return reason[i+2:]
	}
	return reason
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func Batches(w io.Writer, summaries map[string]pipeline.BatchSummary) {
	t := newTable(w, "batch", "records", "tables")
	for _, id := range pipeline.SortedBatches(summaries) {
		s := summaries[id]
		tables := make([]int, 0, len(s.TableCounts))
		for tid := range s.TableCounts {
			tables = append(tables, tid)
		}
		sort.Ints(tables)
		parts := make([]string, 0, len(tables))
		for _, tid := range tables {
			parts = append(parts, fmt.Sprintf("#%d:%d", tid, s.TableCounts[tid]))
		}
		t.Append([]string{id, strconv.Itoa(s.Total), strings.Join(parts, " ")})
	}
	t.Render()
}

func Runs(w io.Writer, runs []internal.RunRow) {
	t := newTable(w, "run", "command", "input", "started", "documents", "failed", "records", "drops")
	for _, r := range runs {
		t.Append([]string{
			r.ID, r.Command, r.Input, r.StartedAt,
			strconv.Itoa(r.Documents), strconv.Itoa(r.Failed), strconv.Itoa(r.Records), strconv.Itoa(r.Drops),
		})
	}
	t.Render()
}

// Outline prints the document structure tree with two-space indentation.
func Outline(w io.Writer, root *pipeline.OutlineNode) {
	root.Walk(func(n *pipeline.OutlineNode, depth int) {
		if depth == 0 {
			return
		}
		line := strings.Repeat("  ", depth-1) + n.Title
		if len(n.Meta) > 0 {
			keys := make([]string, 0, len(n.Meta))
			for k := range n.Meta {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, k+"="+n.Meta[k])
			}
			line += " [" + strings.Join(parts, " ") + "]"
		}
		fmt.Fprintln(w, line)
	})
}

func Notes(w io.Writer, notes []internal.Note) {
	for _, n := range notes {
		fmt.Fprintf(w, "[%s] %s: %s\n", n.Kind, n.Section, n.Content)
	}
}

func Tables(w io.Writer, tables []pipeline.TableInfo) {
	t := newTable(w, "table", "headers", "category", "sub_type", "rule", "rows", "records", "rejected")
	for _, ti := range tables {
		t.Append([]string{
			strconv.Itoa(ti.TableID),
			strings.Join(ti.Headers, " | "),
			string(ti.Category), ti.SubType, ti.Rule,
			strconv.Itoa(ti.Rows), strconv.Itoa(ti.Records), ti.Rejected,
		})
	}
	t.Render()
}

// DropCounts prints the stored drop totals of one run by level.
func DropCounts(w io.Writer, runID string, counts map[internal.DropLevel]int) {
	t := newTable(w, "run", "level", "drops")
	for _, level := range []internal.DropLevel{internal.DropDocument, internal.DropTable, internal.DropRow} {
		t.Append([]string{runID, string(level), strconv.Itoa(counts[level])})
	}
	t.Render()
}

func FailedDocuments(w io.Writer, docs []internal.DocumentRow) {
	if len(docs) == 0 {
		return
	}
	t := newTable(w, "failed document", "run", "error")
	for _, d := range docs {
		t.Append([]string{d.Path, d.RunID, d.Error})
	}
	t.Render()
}
