package internal

import (
	"fmt"
	"sort"
	"strconv"
)

type Category string

const (
	CategoryEnergySaving Category = "节能型"
	CategoryNewEnergy    Category = "新能源"
	CategoryUnknown      Category = "未知"
)

// CarType returns the numeric car type code used downstream: 2 for
// energy-saving, 1 for new-energy and "" when the category is unknown.
func (c Category) CarType() string {
	switch c {
	case CategoryEnergySaving:
		return "2"
	case CategoryNewEnergy:
		return "1"
	default:
		return ""
	}
}

func ParseCategory(s string) Category {
	switch Category(s) {
	case CategoryEnergySaving, CategoryNewEnergy:
		return Category(s)
	}
	switch s {
	case "energy-saving", "energy_saving":
		return CategoryEnergySaving
	case "new-energy", "new_energy":
		return CategoryNewEnergy
	}
	return CategoryUnknown
}

const SubTypeUnknown = "未知"

type ContextFrame struct {
	Category Category
	SubType  string
	Title    string
	Level    int
}

type TableSignature struct {
	TableID int
	Headers []string
}

func NewTableSignature(tableID int, headers []string) TableSignature {
	cp := make([]string, len(headers))
	copy(cp, headers)
	return TableSignature{TableID: tableID, Headers: cp}
}

func (s TableSignature) Has(token string) bool {
	for _, h := range s.Headers {
		if h == token {
			return true
		}
	}
	return false
}

func (s TableSignature) Index(token string) int {
	for i, h := range s.Headers {
		if h == token {
			return i
		}
	}
	return -1
}

// Canonical column names of the known Record fields.
const (
	FieldBatch          = "batch"
	FieldCarType        = "car_type"
	FieldCategory       = "category"
	FieldSubType        = "sub_type"
	FieldSequenceNumber = "sequence_number"
	FieldCompany        = "company"
	FieldBrand          = "brand"
	FieldModel          = "model"
	FieldRawText        = "raw_text"
	FieldTableID        = "table_id"
)

var PriorityColumns = []string{
	FieldBatch, FieldCarType, FieldCategory, FieldSubType, FieldSequenceNumber,
	FieldCompany, FieldBrand, FieldModel, FieldRawText,
}

type Record struct {
	Batch          string
	CarType        string
	Category       Category
	SubType        string
	TableID        int
	Model          string
	Company        string
	Brand          string
	SequenceNumber string
	RawText        string
	Extra          map[string]string
}

func (r Record) Field(name string) string {
	switch name {
	case FieldBatch:
		return r.Batch
	case FieldCarType:
		return r.CarType
	case FieldCategory:
		return string(r.Category)
	case FieldSubType:
		return r.SubType
	case FieldSequenceNumber:
		return r.SequenceNumber
	case FieldCompany:
		return r.Company
	case FieldBrand:
		return r.Brand
	case FieldModel:
		return r.Model
	case FieldRawText:
		return r.RawText
	case FieldTableID:
		if r.TableID == 0 {
			return ""
		}
		return strconv.Itoa(r.TableID)
	}
	return r.Extra[name]
}

// Columns lists every non-priority column this record carries, sorted.
func (r Record) Columns() []string {
	out := make([]string, 0, len(r.Extra)+1)
	out = append(out, FieldTableID)
	for k := range r.Extra {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

type Batch struct {
	ID            string
	DeclaredCount *int
	Records       []Record
}

// SetID sets the batch identifier once; later calls are ignored.
func (b *Batch) SetID(id string) bool {
	if b.ID != "" || id == "" {
		return false
	}
	b.ID = id
	return true
}

// SetDeclaredCount records the declared total on first call only.
func (b *Batch) SetDeclaredCount(n int) bool {
	if b.DeclaredCount != nil {
		return false
	}
	b.DeclaredCount = &n
	return true
}

func (b *Batch) Add(r Record) {
	b.Records = append(b.Records, r)
}

func (b *Batch) TableCounts() map[int]int {
	out := map[int]int{}
	for _, r := range b.Records {
		out[r.TableID]++
	}
	return out
}

type ConsistencyStatus string

const (
	StatusNoBatch          ConsistencyStatus = "no_batch"
	StatusMatch            ConsistencyStatus = "match"
	StatusMismatch         ConsistencyStatus = "mismatch"
	StatusInternalMatch    ConsistencyStatus = "internal_match"
	StatusInternalMismatch ConsistencyStatus = "internal_mismatch"
)

type ConsistencyReport struct {
	Status         ConsistencyStatus `json:"status"`
	Batch          string            `json:"batch,omitempty"`
	ActualCount    int               `json:"actual_count"`
	ProcessedCount int               `json:"processed_count"`
	DeclaredCount  *int              `json:"declared_count,omitempty"`
	Difference     int               `json:"difference"`
	TableCounts    map[int]int       `json:"table_counts,omitempty"`
	Message        string            `json:"message"`
}

func (r ConsistencyReport) AsMap() map[string]any {
	tables := map[string]any{}
	for id, n := range r.TableCounts {
		tables[strconv.Itoa(id)] = n
	}
	out := map[string]any{
		"status":          string(r.Status),
		"message":         r.Message,
		"batch":           r.Batch,
		"actual_count":    r.ActualCount,
		"processed_count": r.ProcessedCount,
		"difference":      r.Difference,
		"table_counts":    tables,
	}
	if r.DeclaredCount != nil {
		out["declared_count"] = *r.DeclaredCount
	}
	return out
}

type DropLevel string

const (
	DropRow      DropLevel = "row"
	DropTable    DropLevel = "table"
	DropDocument DropLevel = "document"
)

type Drop struct {
	Level   DropLevel `json:"level"`
	Source  string    `json:"source,omitempty"`
	TableID int       `json:"table_id,omitempty"`
	Row     int       `json:"row,omitempty"`
	Reason  string    `json:"reason"`
}

func (d Drop) String() string {
	switch d.Level {
	case DropRow:
		return fmt.Sprintf("table %d row %d: %s", d.TableID, d.Row, d.Reason)
	case DropTable:
		return fmt.Sprintf("table %d: %s", d.TableID, d.Reason)
	default:
		return fmt.Sprintf("%s: %s", d.Source, d.Reason)
	}
}

type NoteKind string

const (
	NotePolicy     NoteKind = "policy"
	NoteCorrection NoteKind = "correction"
	NoteRemark     NoteKind = "remark"
)

type Note struct {
	Kind    NoteKind `json:"kind"`
	Section string   `json:"section"`
	Batch   string   `json:"batch,omitempty"`
	Content string   `json:"content"`
}

type RunRow struct {
	ID         string
	Command    string
	Input      string
	StartedAt  string
	FinishedAt *string
	Documents  int
	Failed     int
	Records    int
	Drops      int
}

type DocumentRow struct {
	ID     int64
	RunID  string
	Path   string
	Hash   string
	Format string
	Size   int64
	Batch  string
	Status string
	Error  string
}

// Document statuses as stored. A document without records is stored as
// empty and is never exported.
const (
	DocumentProcessed = "processed"
	DocumentEmpty     = "empty"
	DocumentFailed    = "failed"
	DocumentExported  = "exported"
)
