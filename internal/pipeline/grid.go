package pipeline

import (
	"log/slog"
	"strings"

	"vehcat/internal"
	"vehcat/internal/util"
)

const (
	stickyCompanyCol = 1
	stickyBrandCol   = 2
)

var subtotalPrefixes = []string{"合计", "总计", "小计"}

// Grid is a table after header normalization and row cleanup.
type Grid struct {
	TableID int
	Headers []string
	Rows    [][]string
	// RowNumbers holds the 1-based data row index of each kept row.
	RowNumbers []int
	Dropped    []internal.Drop
	Repaired   int
}

func (g Grid) Signature() internal.TableSignature {
	return internal.NewTableSignature(g.TableID, g.Headers)
}

func (g Grid) bytes() int64 {
	var n int64
	for _, h := range g.Headers {
		n += int64(len(h))
	}
	for _, row := range g.Rows {
		for _, c := range row {
			n += int64(len(c))
		}
	}
	return n
}

type GridReader struct {
	cache  *TableCache
	logger *slog.Logger
}

func NewGridReader(cache *TableCache, logger *slog.Logger) *GridReader {
	if logger == nil {
		logger = slog.Default()
	}
	return &GridReader{cache: cache, logger: logger}
}

// Read turns raw table rows into a Grid. The first row is the header.
func (r *GridReader) Read(tableID int, raw [][]string) (Grid, error) {
	if r.cache != nil {
		if g, ok := r.cache.Get(tableID); ok {
			return g, nil
		}
	}
	if len(raw) == 0 || util.IsBlank(raw[0]) {
		return Grid{}, internal.ErrEmptyHeader
	}

	headers := make([]string, len(raw[0]))
	for i, h := range raw[0] {
		headers[i] = util.NormalizeHeader(h)
	}
	width := len(headers)
	merge := transmissionColumn(headers)
	if merge >= 0 {
		headers = append(headers[:merge:merge], append([]string{"变速器"}, headers[merge+2:]...)...)
	}

	g := Grid{TableID: tableID, Headers: headers}
	var lastCompany, lastBrand string
	for i, src := range raw[1:] {
		rowNo := i + 1
		cells := make([]string, len(src))
		for j, c := range src {
			cells[j] = strings.TrimSpace(c)
		}

		if util.IsBlank(cells) {
			g.Dropped = append(g.Dropped, internal.Drop{Level: internal.DropRow, TableID: tableID, Row: rowNo, Reason: "empty row"})
			continue
		}
		if isSubtotal(cells) {
			g.Dropped = append(g.Dropped, internal.Drop{Level: internal.DropRow, TableID: tableID, Row: rowNo, Reason: "subtotal row"})
			continue
		}

		if len(cells) != width {
			r.logger.Debug("row width repaired", "table_id", tableID, "row", rowNo, "cells", len(cells), "header", width)
			cells = fitWidth(cells, width)
			g.Repaired++
		}
		if merge >= 0 {
			joined := strings.TrimSpace(cells[merge] + " " + cells[merge+1])
			cells = append(cells[:merge:merge], append([]string{joined}, cells[merge+2:]...)...)
		}

		if len(cells) > stickyCompanyCol {
			if cells[stickyCompanyCol] == "" {
				cells[stickyCompanyCol] = lastCompany
			} else {
				lastCompany = cells[stickyCompanyCol]
			}
		}
		if len(cells) > stickyBrandCol {
			if cells[stickyBrandCol] == "" {
				cells[stickyBrandCol] = lastBrand
			} else {
				lastBrand = cells[stickyBrandCol]
			}
		}

		g.Rows = append(g.Rows, cells)
		g.RowNumbers = append(g.RowNumbers, rowNo)
	}

	if r.cache != nil {
		r.cache.Put(g)
	}
	return g, nil
}

func transmissionColumn(headers []string) int {
	for i := 0; i+1 < len(headers); i++ {
		if headers[i] == "型式" && headers[i+1] == "档位数" {
			return i
		}
	}
	return -1
}

func isSubtotal(cells []string) bool {
	first := util.FirstNonEmpty(cells...)
	for _, p := range subtotalPrefixes {
		if strings.HasPrefix(first, p) {
			return true
		}
	}
	return false
}

func fitWidth(cells []string, width int) []string {
	if len(cells) > width {
		return cells[:width]
	}
	out := make([]string, width)
	copy(out, cells)
	return out
}
