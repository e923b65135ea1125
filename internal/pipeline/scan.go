package pipeline

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"vehcat/internal"
	"vehcat/internal/config"
	"vehcat/internal/document"
	"vehcat/internal/util"
)

const classifySampleRows = 5

type ScanOptions struct {
	MaxParagraphs   int
	MaxTables       int
	SkipCountCheck  bool
	ChunkSize       int
	CacheSizeLimit  int64
	CleanupInterval time.Duration
}

func ScanOptionsFromConfig(cfg config.Config) ScanOptions {
	return ScanOptions{
		MaxParagraphs:   cfg.MaxParagraphsToSearch,
		MaxTables:       cfg.MaxTablesToSearch,
		SkipCountCheck:  cfg.SkipCountCheck,
		ChunkSize:       cfg.ChunkSize,
		CacheSizeLimit:  cfg.CacheSizeLimit,
		CleanupInterval: time.Duration(cfg.CleanupIntervalSec) * time.Second,
	}
}

// TableInfo describes one table as seen by the scanner.
type TableInfo struct {
	TableID  int               `json:"table_id"`
	Headers  []string          `json:"headers"`
	Category internal.Category `json:"category,omitempty"`
	SubType  string            `json:"sub_type,omitempty"`
	Rule     string            `json:"rule,omitempty"`
	Rows     int               `json:"rows"`
	Records  int               `json:"records"`
	Rejected string            `json:"rejected,omitempty"`
}

type Result struct {
	Source  string
	Batch   internal.Batch
	Drops   []internal.Drop
	Notes   []internal.Note
	Tables  []TableInfo
	Outline *OutlineNode
	Report  internal.ConsistencyReport
}

func (r *Result) Records() []internal.Record {
	return r.Batch.Records
}

// Scanner walks the blocks of one document in order. It holds no per-document
// state and may be shared by workers.
type Scanner struct {
	opts       ScanOptions
	classifier *Classifier
	numerals   *util.NumeralNormalizer
	logger     *slog.Logger
}

func NewScanner(opts ScanOptions, classifier *Classifier, numerals *util.NumeralNormalizer, logger *slog.Logger) *Scanner {
	if opts.MaxParagraphs <= 0 {
		opts.MaxParagraphs = 30
	}
	if opts.MaxTables <= 0 {
		opts.MaxTables = 5
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 1000
	}
	if classifier == nil {
		classifier = NewClassifier(nil)
	}
	if numerals == nil {
		numerals = util.NewNumeralNormalizer(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{opts: opts, classifier: classifier, numerals: numerals, logger: logger}
}

// scan holds the state of a single document pass.
type scan struct {
	*Scanner
	source      string
	logger      *slog.Logger
	tracker     *ContextTracker
	notes       *NoteCollector
	grids       *GridReader
	finder      *DeclaredCountFinder
	extractor   *RowExtractor
	result      *Result
	tableCounts map[int]int
	rows        int
}

func (s *Scanner) Scan(source string, blocks []document.Block) *Result {
	logger := s.logger.With("source", source)
	st := &scan{
		Scanner:     s,
		source:      source,
		logger:      logger,
		tracker:     NewContextTracker(),
		notes:       &NoteCollector{},
		grids:       NewGridReader(NewTableCache(s.opts.CacheSizeLimit, s.opts.CleanupInterval), logger),
		finder:      NewDeclaredCountFinder(s.opts.MaxParagraphs, s.opts.MaxTables),
		result:      &Result{Source: source},
		tableCounts: map[int]int{},
	}

	if id, ok := s.findBatch(blocks); ok {
		st.result.Batch.SetID(id)
		st.tracker.SetBatch(id)
		logger.Info("batch number found", "batch", id)
	}
	st.extractor = NewRowExtractor(st.result.Batch.ID)

	tableID := 0
	for _, b := range blocks {
		switch b.Kind {
		case document.BlockParagraph:
			st.paragraph(b.Text)
		case document.BlockTable:
			tableID++
			st.table(tableID, b.Rows)
		}
	}

	res := st.result
	res.Notes = st.notes.Notes(res.Batch.ID)
	res.Outline = st.tracker.Outline()
	res.Report = VerifyTables(st.tableCounts, st.rows, res.Batch.ID, res.Batch.DeclaredCount)
	logger.Info("document scanned",
		"batch", res.Batch.ID,
		"tables", tableID,
		"records", len(res.Batch.Records),
		"drops", len(res.Drops),
		"status", res.Report.Status,
	)
	return res
}

// findBatch looks at the leading paragraphs that mention a batch.
func (s *Scanner) findBatch(blocks []document.Block) (string, bool) {
	seen := 0
	for _, b := range blocks {
		if b.Kind != document.BlockParagraph {
			continue
		}
		if seen >= s.opts.MaxParagraphs {
			break
		}
		seen++
		if !strings.Contains(b.Text, "批") {
			continue
		}
		if id, ok := ExtractBatchNumber(b.Text, s.numerals); ok {
			return id, true
		}
	}
	return "", false
}

func (st *scan) paragraph(raw string) {
	if !st.opts.SkipCountCheck {
		if n, ok := st.finder.Paragraph(raw); ok && st.result.Batch.SetDeclaredCount(n) {
			st.logger.Info("declared count found", "declared", n, "where", "paragraph")
		}
	}

	text := strings.TrimSpace(raw)
	if text == "" {
		st.notes.Break()
		return
	}
	if st.tracker.Observe(text) {
		st.notes.Break()
		st.logger.Debug("context updated", "path", strings.Join(st.tracker.Path(), " > "))
		return
	}
	st.notes.Observe(text, st.tracker.Section())
}

func (st *scan) table(tableID int, rows [][]string) {
	st.notes.Break()
	if !st.opts.SkipCountCheck {
		if n, ok := st.finder.Table(rows); ok && st.result.Batch.SetDeclaredCount(n) {
			st.logger.Info("declared count found", "declared", n, "where", "table", "table_id", tableID)
		}
	}

	grid, err := st.grids.Read(tableID, rows)
	if err != nil {
		st.rejectTable(TableInfo{TableID: tableID}, err)
		return
	}
	sig := grid.Signature()
	info := TableInfo{TableID: tableID, Headers: sig.Headers, Rows: len(grid.Rows)}

	sample := grid.Rows
	if len(sample) > classifySampleRows {
		sample = sample[:classifySampleRows]
	}
	class, err := st.classifier.Classify(sig, st.tracker.Current(), sample)
	if err != nil {
		st.rejectTable(info, err)
		return
	}
	info.Category, info.SubType, info.Rule = class.Category, class.SubType, class.Rule

	for _, d := range grid.Dropped {
		d.Source = st.source
		st.result.Drops = append(st.result.Drops, d)
	}
	if grid.Repaired > 0 {
		st.logger.Debug("rows repaired to header width", "table_id", tableID, "repaired", grid.Repaired)
	}
	st.rows += len(grid.Rows)

	for start := 0; start < len(grid.Rows); start += st.opts.ChunkSize {
		end := min(start+st.opts.ChunkSize, len(grid.Rows))
		for i := start; i < end; i++ {
			rec, err := st.extractor.Extract(sig, class, grid.Rows[i])
			if err != nil {
				st.result.Drops = append(st.result.Drops, internal.Drop{
					Level:   internal.DropRow,
					Source:  st.source,
					TableID: tableID,
					Row:     grid.RowNumbers[i],
					Reason:  err.Error(),
				})
				continue
			}
			st.result.Batch.Add(rec)
			info.Records++
		}
		if end-start == st.opts.ChunkSize {
			st.logger.Debug("chunk processed", "table_id", tableID, "rows", end)
		}
	}

	if info.Records > 0 {
		st.tableCounts[tableID] = info.Records
	}
	st.result.Tables = append(st.result.Tables, info)
	st.tracker.Attach("table", fmt.Sprintf("table %d", tableID), map[string]string{
		"category": string(info.Category),
		"sub_type": info.SubType,
		"rows":     strconv.Itoa(info.Rows),
		"records":  strconv.Itoa(info.Records),
	})
	st.logger.Debug("table extracted", "table_id", tableID, "sub_type", info.SubType, "records", info.Records)
}

func (st *scan) rejectTable(info TableInfo, err error) {
	info.Rejected = err.Error()
	st.result.Tables = append(st.result.Tables, info)
	st.result.Drops = append(st.result.Drops, internal.Drop{
		Level:   internal.DropTable,
		Source:  st.source,
		TableID: info.TableID,
		Reason:  err.Error(),
	})
	st.tracker.Attach("table", fmt.Sprintf("table %d", info.TableID), map[string]string{"rejected": info.Rejected})
	st.logger.Warn("table skipped", "table_id", info.TableID, "reason", err)
}
