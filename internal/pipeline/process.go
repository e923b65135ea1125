package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"vehcat/internal"
	"vehcat/internal/config"
	"vehcat/internal/document"
	"vehcat/internal/util"
)

type DocumentResult struct {
	Path   string
	Format document.Format
	Size   int64
	Hash   string
	Result *Result
	Err    error
}

type job struct {
	path string
}

// ProcessingService scans documents with a bounded pool of workers.
type ProcessingService struct {
	scanner *Scanner
	docOpts document.Options
	workers int
	logger  *slog.Logger
}

func NewProcessingService(scanner *Scanner, docOpts document.Options, workers int, logger *slog.Logger) *ProcessingService {
	if logger == nil {
		logger = slog.Default()
	}
	if docOpts.Logger == nil {
		docOpts.Logger = logger
	}
	return &ProcessingService{scanner: scanner, docOpts: docOpts, workers: workers, logger: logger}
}

// ProcessAll scans every path. Failed documents are reported in their
// DocumentResult and never stop the others. Results are sorted by path.
func (s *ProcessingService) ProcessAll(ctx context.Context, paths []string) []DocumentResult {
	if len(paths) == 0 {
		return nil
	}
	workers := s.workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, len(paths))

	s.logger.Info("processing documents", "documents", len(paths), "workers", workers)
	var wg sync.WaitGroup
	jobs := make(chan job)
	results := make(chan DocumentResult, len(paths))

	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go s.worker(w, &wg, jobs, results)
	}

dispatch:
	for _, p := range paths {
		if ctx.Err() != nil {
			s.logger.Warn("processing cancelled", "error", ctx.Err())
			break
		}
		select {
		case <-ctx.Done():
			s.logger.Warn("processing cancelled", "error", ctx.Err())
			break dispatch
		case jobs <- job{path: p}:
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	out := make([]DocumentResult, 0, len(paths))
	for r := range results {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (s *ProcessingService) worker(id int, wg *sync.WaitGroup, jobs <-chan job, results chan<- DocumentResult) {
	defer wg.Done()
	for j := range jobs {
		res := s.ProcessFile(j.path)
		if res.Err != nil {
			s.logger.Error("document failed", "worker_id", id, "path", j.path, "error", res.Err)
		}
		results <- res
	}
}

func (s *ProcessingService) ProcessFile(path string) DocumentResult {
	res := DocumentResult{Path: path}
	hash, err := FileHash(path)
	if err != nil {
		res.Err = err
		return res
	}
	res.Hash = hash

	doc, err := document.Open(path, s.docOpts)
	if err != nil {
		res.Err = err
		return res
	}
	res.Format, res.Size = doc.Format, doc.Size
	res.Result = s.scanner.Scan(path, doc.Blocks)
	for _, reason := range doc.Skipped {
		res.Result.Drops = append(res.Result.Drops, internal.Drop{Level: internal.DropDocument, Source: path, Reason: reason})
	}
	return res
}

// FileHash is the hex sha256 of the file content.
func FileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExpandInputs resolves a directory, a glob pattern or a plain file path to
// the supported documents it names, sorted.
func ExpandInputs(input string) ([]string, error) {
	var candidates []string
	if info, err := os.Stat(input); err == nil && info.IsDir() {
		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() {
				candidates = append(candidates, filepath.Join(input, e.Name()))
			}
		}
	} else {
		matches, err := filepath.Glob(input)
		if err != nil {
			return nil, err
		}
		candidates = matches
	}

	out := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if strings.HasPrefix(filepath.Base(p), "~$") {
			continue
		}
		if _, ok := document.FormatOf(p); ok {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Merge collects records and drops of all results. Failed documents become
// document-level drops.
func Merge(results []DocumentResult) ([]internal.Record, []internal.Drop) {
	var records []internal.Record
	var drops []internal.Drop
	for _, r := range results {
		if r.Err != nil {
			drops = append(drops, internal.Drop{Level: internal.DropDocument, Source: r.Path, Reason: r.Err.Error()})
			continue
		}
		records = append(records, r.Result.Records()...)
		drops = append(drops, r.Result.Drops...)
	}
	return records, drops
}

// NewServiceFromConfig wires a scanner and processing service from cfg.
func NewServiceFromConfig(cfg config.Config, logger *slog.Logger) *ProcessingService {
	scanner := NewScanner(
		ScanOptionsFromConfig(cfg),
		NewClassifier(RulesFromConfig(cfg.Rules)),
		util.NewNumeralNormalizer(cfg.NumeralCacheEntries),
		logger,
	)
	docOpts := document.Options{LargeFileThreshold: cfg.LargeFileThreshold(), Logger: logger}
	return NewProcessingService(scanner, docOpts, cfg.Workers, logger)
}

func (s *ProcessingService) Scanner() *Scanner {
	return s.scanner
}

func (s *ProcessingService) DocumentOptions() document.Options {
	return s.docOpts
}
