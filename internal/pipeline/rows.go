package pipeline

import (
	"strings"

	"vehcat/internal"
	"vehcat/internal/util"
)

// Header spellings of the model column, in precedence order.
var modelColumns = []string{"产品型号", "车辆型号", "型号"}

var columnAliases = map[string]string{
	"通用名称": internal.FieldBrand,
	"商标":   internal.FieldBrand,
	"品牌":   internal.FieldBrand,
	"生产企业": internal.FieldCompany,
	"企业":   internal.FieldCompany,
	"企业名称": internal.FieldCompany,
	"序号":   internal.FieldSequenceNumber,
}

// Alias precedence when several spellings are present in one table.
var aliasOrder = []string{"通用名称", "商标", "品牌", "企业名称", "生产企业", "企业", "序号"}

var numericColumns = map[string]bool{
	"排量(ml)":              true,
	"整车整备质量(kg)":          true,
	"综合燃料消耗量(L/100km)": true,
}

// canonicalColumn maps a normalized header to its record field name. Headers
// without an alias are returned unchanged.
func canonicalColumn(header string) string {
	if f, ok := columnAliases[header]; ok {
		return f
	}
	for _, m := range modelColumns {
		if header == m {
			return internal.FieldModel
		}
	}
	return header
}

// MissingFieldError reports a record lacking a required field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return "missing field: " + e.Field
}

type RowExtractor struct {
	batch string
}

func NewRowExtractor(batch string) *RowExtractor {
	return &RowExtractor{batch: batch}
}

// Extract pairs cells with headers by position and builds a Record.
func (e *RowExtractor) Extract(sig internal.TableSignature, class Classification, cells []string) (internal.Record, error) {
	values := map[string]string{}
	for i, h := range sig.Headers {
		if h == "" || i >= len(cells) {
			continue
		}
		if _, dup := values[h]; dup && values[h] != "" {
			continue
		}
		values[h] = cells[i]
	}

	rec := internal.Record{
		Batch:    e.batch,
		Category: class.Category,
		SubType:  class.SubType,
		CarType:  class.Category.CarType(),
		TableID:  sig.TableID,
		RawText:  strings.Join(cells, " | "),
		Extra:    map[string]string{},
	}

	var model string
	for _, m := range modelColumns {
		if v, ok := values[m]; ok {
			if model == "" {
				model = v
			}
			delete(values, m)
		}
	}
	rec.Model = util.Canonicalize(model)

	for _, alias := range aliasOrder {
		v, ok := values[alias]
		if !ok {
			continue
		}
		delete(values, alias)
		v = util.Canonicalize(v)
		switch columnAliases[alias] {
		case internal.FieldBrand:
			if rec.Brand == "" {
				rec.Brand = v
			}
		case internal.FieldCompany:
			if rec.Company == "" {
				rec.Company = v
			}
		case internal.FieldSequenceNumber:
			rec.SequenceNumber = v
		}
	}

	for k, v := range values {
		v = util.Canonicalize(v)
		if numericColumns[k] {
			v = util.CoerceNumeric(v)
		}
		rec.Extra[k] = v
	}

	if missing := requiredMissing(rec); missing != "" {
		return internal.Record{}, &MissingFieldError{Field: missing}
	}
	return rec, nil
}

func requiredMissing(r internal.Record) string {
	switch {
	case r.Category == "":
		return internal.FieldCategory
	case r.SubType == "":
		return internal.FieldSubType
	case r.CarType == "":
		return internal.FieldCarType
	case r.Batch == "":
		return internal.FieldBatch
	}
	return ""
}
