package pipeline

import (
	"fmt"
	"sort"

	"vehcat/internal"
)

// VerifyBatch checks the record count of one batch against its declared
// total, or against the per-table counts when nothing was declared.
func VerifyBatch(records []internal.Record, batchID string, declared *int) internal.ConsistencyReport {
	counts := map[int]int{}
	for _, r := range records {
		counts[r.TableID]++
	}
	return VerifyTables(counts, len(records), batchID, declared)
}

// VerifyTables checks accepted records, counted per table, against the
// declared total. Without a declared total it compares them with processed,
// the number of data rows that reached row extraction.
func VerifyTables(tableCounts map[int]int, processed int, batchID string, declared *int) internal.ConsistencyReport {
	if batchID == "" {
		return internal.ConsistencyReport{Status: internal.StatusNoBatch, Message: "no batch number found"}
	}

	actual := 0
	for _, n := range tableCounts {
		actual += n
	}
	rep := internal.ConsistencyReport{
		Batch:          batchID,
		ActualCount:    actual,
		ProcessedCount: processed,
		DeclaredCount:  declared,
		TableCounts:    tableCounts,
	}

	if declared != nil {
		if actual == *declared {
			rep.Status = internal.StatusMatch
			rep.Message = fmt.Sprintf("record count matches: declared %d, actual %d", *declared, actual)
		} else {
			rep.Status = internal.StatusMismatch
			rep.Difference = *declared - actual
			rep.Message = fmt.Sprintf("record count mismatch: declared %d, actual %d", *declared, actual)
		}
		return rep
	}

	if actual == processed {
		rep.Status = internal.StatusInternalMatch
		rep.Message = fmt.Sprintf("internal check passed: records %d, table rows %d", actual, processed)
	} else {
		rep.Status = internal.StatusInternalMismatch
		rep.Difference = actual - processed
		rep.Message = fmt.Sprintf("internal check failed: records %d, table rows %d", actual, processed)
	}
	return rep
}

type BatchSummary struct {
	Batch       string      `json:"batch"`
	Total       int         `json:"total"`
	TableCounts map[int]int `json:"table_counts"`
}

// VerifyAllBatches groups records by batch. Records without a batch are
// skipped.
func VerifyAllBatches(records []internal.Record) map[string]BatchSummary {
	out := map[string]BatchSummary{}
	for _, r := range records {
		if r.Batch == "" {
			continue
		}
		s, ok := out[r.Batch]
		if !ok {
			s = BatchSummary{Batch: r.Batch, TableCounts: map[int]int{}}
		}
		s.Total++
		s.TableCounts[r.TableID]++
		out[r.Batch] = s
	}
	return out
}

// SortedBatches returns the batch ids of a summary map in ascending order.
func SortedBatches(summaries map[string]BatchSummary) []string {
	ids := make([]string, 0, len(summaries))
	for id := range summaries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if len(ids[i]) != len(ids[j]) {
			return len(ids[i]) < len(ids[j])
		}
		return ids[i] < ids[j]
	})
	return ids
}

type Statistics struct {
	Total        int            `json:"total_count"`
	EnergySaving int            `json:"energy_saving_count"`
	NewEnergy    int            `json:"new_energy_count"`
	ByBatch      map[string]int `json:"batch_counts"`
	ByCategory   map[string]int `json:"category_counts"`
	BySubType    map[string]int `json:"subtype_counts"`
}

func CalculateStatistics(records []internal.Record) Statistics {
	st := Statistics{
		Total:      len(records),
		ByBatch:    map[string]int{},
		ByCategory: map[string]int{},
		BySubType:  map[string]int{},
	}
	for _, r := range records {
		switch r.CarType {
		case internal.CategoryEnergySaving.CarType():
			st.EnergySaving++
		case internal.CategoryNewEnergy.CarType():
			st.NewEnergy++
		}
		st.ByBatch[orUnknown(r.Batch)]++
		st.ByCategory[orUnknown(string(r.Category))]++
		st.BySubType[orUnknown(r.SubType)]++
	}
	return st
}

func orUnknown(s string) string {
	if s == "" {
		return internal.SubTypeUnknown
	}
	return s
}
