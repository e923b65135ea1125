package catalog

import (
	"sort"

	"vehcat/internal"
	"vehcat/internal/util"
)

// Index groups extracted records by model and by company.
type Index struct {
	ByModel   map[string][]internal.Record
	ByCompany map[string][]internal.Record
}

func BuildIndex(records []internal.Record) *Index {
	idx := &Index{
		ByModel:   map[string][]internal.Record{},
		ByCompany: map[string][]internal.Record{},
	}
	for _, r := range records {
		if key := modelKey(r.Model); key != "" {
			idx.ByModel[key] = append(idx.ByModel[key], r)
		}
		if r.Company != "" {
			idx.ByCompany[r.Company] = append(idx.ByCompany[r.Company], r)
		}
	}
	return idx
}

type Duplicate struct {
	Model   string            `json:"model"`
	Count   int               `json:"count"`
	Records []internal.Record `json:"-"`
}

// DuplicateModels lists models that occur more than once, sorted by model.
func (idx *Index) DuplicateModels() []Duplicate {
	var out []Duplicate
	for key, recs := range idx.ByModel {
		if len(recs) < 2 {
			continue
		}
		out = append(out, Duplicate{Model: key, Count: len(recs), Records: recs})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Model < out[j].Model })
	return out
}

type CompanyCount struct {
	Company string
	Records int
	Models  int
}

// Companies counts records and distinct models per company, largest first.
func (idx *Index) Companies() []CompanyCount {
	out := make([]CompanyCount, 0, len(idx.ByCompany))
	for company, recs := range idx.ByCompany {
		models := map[string]bool{}
		for _, r := range recs {
			if key := modelKey(r.Model); key != "" {
				models[key] = true
			}
		}
		out = append(out, CompanyCount{Company: company, Records: len(recs), Models: len(models)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Records != out[j].Records {
			return out[i].Records > out[j].Records
		}
		return out[i].Company < out[j].Company
	})
	return out
}

func modelKey(model string) string {
	return util.NormalizeModel(model)
}
