package listener

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"vehcat/internal"
	"vehcat/internal/config"
	"vehcat/internal/pipeline"
	"vehcat/internal/storage"
)

// Service polls a directory and processes documents it has not stored yet.
type Service struct {
	db     *storage.DB
	cfg    config.Config
	proc   *pipeline.ProcessingService
	dir    string
	logger *slog.Logger
}

func NewService(db *storage.DB, cfg config.Config, proc *pipeline.ProcessingService, dir string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{db: db, cfg: cfg, proc: proc, dir: dir, logger: logger}
}

func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.WatchIntervalSec) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	for {
		if _, err := s.RunCycle(ctx); err != nil {
			s.logger.Error("watch cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
}

type CycleResult struct {
	Found    int
	New      int
	Records  int
	Exported int
	RunID    string
}

// RunCycle processes the new documents of the directory once.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	paths, err := pipeline.ExpandInputs(s.dir)
	if err != nil {
		return res, err
	}
	res.Found = len(paths)

	var fresh []string
	for _, p := range paths {
		hash, err := pipeline.FileHash(p)
		if err != nil {
			s.logger.Warn("cannot hash document", "path", p, "error", err)
			continue
		}
		known, err := s.db.GetDocumentByHash(hash)
		if err != nil {
			return res, err
		}
		if known != nil && known.Status != internal.DocumentFailed {
			continue
		}
		fresh = append(fresh, p)
	}
	res.New = len(fresh)
	if len(fresh) == 0 {
		s.logger.Debug("watch cycle idle", "dir", s.dir, "found", res.Found)
		return res, nil
	}

	runID, err := s.db.StartRun("watch", s.dir)
	if err != nil {
		return res, err
	}
	res.RunID = runID

	results := s.proc.ProcessAll(ctx, fresh)
	saved, err := s.db.SaveResults(runID, results)
	if err != nil {
		return res, err
	}
	res.Records = saved.Records

	failed, dropCount := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			dropCount++
			continue
		}
		dropCount += len(r.Result.Drops)
	}
	if err := s.db.FinishRun(runID, len(results), failed, saved.Records, dropCount); err != nil {
		return res, err
	}

	if s.cfg.WatchAutoExport {
		n, err := s.export(saved.Processed)
		if err != nil {
			return res, err
		}
		res.Exported = n
	}
	if err := s.db.SetMetadata("watch.last_cycle", time.Now().UTC().Format(time.RFC3339)); err != nil {
		s.logger.Warn("cannot record watch cycle", "error", err)
	}

	s.logger.Info("watch cycle done", "dir", s.dir, "found", res.Found, "new", res.New, "records", res.Records, "exported", res.Exported)
	return res, nil
}

// export writes one CSV per document saved in this cycle and marks it
// exported.
func (s *Service) export(docs []internal.DocumentRow) (int, error) {
	exported := 0
	for _, doc := range docs {
		recs, err := s.db.GetRecords(doc.ID)
		if err != nil {
			return exported, err
		}
		name := fmt.Sprintf("%d_%s.csv", doc.ID, sanitizeName(doc.Path))
		outputPath := filepath.Join(s.cfg.OutputDir, "watch", name)
		if err := pipeline.ExportRecordsToCSV(recs, outputPath); err != nil {
			return exported, err
		}
		if err := s.db.UpdateDocumentStatus(doc.ID, internal.DocumentExported); err != nil {
			return exported, err
		}
		exported++
	}
	return exported, nil
}

func sanitizeName(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	repl := strings.NewReplacer("<", "_", ">", "_", ":", "_", "/", "_", "\\", "_", "|", "_", "?", "_", "*", "_", " ", "_")
	out := repl.Replace(base)
	if r := []rune(out); len(r) > 120 {
		out = string(r[:120])
	}
	return out
}
