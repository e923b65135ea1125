package storage

import (
	"vehcat/internal"
	"vehcat/internal/pipeline"
)

// Saved describes what SaveResults wrote.
type Saved struct {
	Records int
	// Processed holds the documents stored with at least one record, in
	// result order.
	Processed []internal.DocumentRow
}

// SaveResults stores the outcome of every document of a run, including
// failed ones.
func (d *DB) SaveResults(runID string, results []pipeline.DocumentResult) (Saved, error) {
	var saved Saved
	for _, r := range results {
		row := internal.DocumentRow{
			RunID:  runID,
			Path:   r.Path,
			Hash:   r.Hash,
			Format: string(r.Format),
			Size:   r.Size,
			Status: internal.DocumentProcessed,
		}
		if r.Err != nil {
			row.Status = internal.DocumentFailed
			row.Error = r.Err.Error()
			if row.Hash == "" {
				row.Hash = "unreadable:" + r.Path
			}
		} else {
			row.Batch = r.Result.Batch.ID
			if len(r.Result.Records()) == 0 {
				row.Status = internal.DocumentEmpty
			}
		}

		doc, err := d.UpsertDocument(row)
		if err != nil {
			return saved, err
		}
		if r.Err != nil {
			drop := internal.Drop{Level: internal.DropDocument, Source: r.Path, Reason: r.Err.Error()}
			if err := d.InsertDrops(runID, &doc.ID, []internal.Drop{drop}); err != nil {
				return saved, err
			}
			continue
		}

		recs := r.Result.Records()
		if err := d.SaveDocumentResult(doc.ID, recs, r.Result.Report, r.Result.Notes); err != nil {
			return saved, err
		}
		if err := d.InsertDrops(runID, &doc.ID, r.Result.Drops); err != nil {
			return saved, err
		}
		saved.Records += len(recs)
		if len(recs) > 0 {
			saved.Processed = append(saved.Processed, doc)
		}
	}
	return saved, nil
}
