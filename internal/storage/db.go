package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"vehcat/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS runs (
  id TEXT PRIMARY KEY,
  command TEXT NOT NULL,
  input TEXT NOT NULL,
  startedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  finishedAt TEXT,
  documents INTEGER NOT NULL DEFAULT 0,
  failed INTEGER NOT NULL DEFAULT 0,
  records INTEGER NOT NULL DEFAULT 0,
  drops INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS documents (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  path TEXT NOT NULL,
  hash TEXT NOT NULL UNIQUE,
  format TEXT,
  size INTEGER NOT NULL DEFAULT 0,
  batch TEXT,
  status TEXT NOT NULL,
  error TEXT,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS records (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL,
  batch TEXT NOT NULL,
  carType TEXT NOT NULL,
  category TEXT NOT NULL,
  subType TEXT NOT NULL,
  tableId INTEGER NOT NULL,
  model TEXT,
  company TEXT,
  brand TEXT,
  sequenceNumber TEXT,
  rawText TEXT NOT NULL,
  extraJson TEXT NOT NULL,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);
CREATE INDEX IF NOT EXISTS idx_records_model ON records(model);
CREATE INDEX IF NOT EXISTS idx_records_batch ON records(batch);

CREATE TABLE IF NOT EXISTS reports (
  documentId INTEGER PRIMARY KEY,
  status TEXT NOT NULL,
  batch TEXT,
  actualCount INTEGER NOT NULL,
  processedCount INTEGER NOT NULL,
  declaredCount INTEGER,
  difference INTEGER NOT NULL,
  tableCountsJson TEXT NOT NULL,
  message TEXT NOT NULL,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS drops (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  runId TEXT NOT NULL,
  documentId INTEGER,
  level TEXT NOT NULL,
  source TEXT,
  tableId INTEGER,
  rowNo INTEGER,
  reason TEXT NOT NULL,
  FOREIGN KEY(runId) REFERENCES runs(id)
);

CREATE TABLE IF NOT EXISTS notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  documentId INTEGER NOT NULL,
  kind TEXT NOT NULL,
  section TEXT NOT NULL,
  batch TEXT,
  content TEXT NOT NULL,
  FOREIGN KEY(documentId) REFERENCES documents(id)
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

// StartRun records a new run and returns its id.
func (d *DB) StartRun(command, input string) (string, error) {
	id := uuid.NewString()
	_, err := d.conn.Exec(`INSERT INTO runs (id, command, input) VALUES (?, ?, ?)`, id, command, input)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (d *DB) FinishRun(runID string, documents, failed, records, drops int) error {
	_, err := d.conn.Exec(`
UPDATE runs SET finishedAt = CURRENT_TIMESTAMP, documents = ?, failed = ?, records = ?, drops = ?
WHERE id = ?
`, documents, failed, records, drops, runID)
	return err
}

func (d *DB) ListRuns(limit int) ([]internal.RunRow, error) {
	rows, err := d.conn.Query(`
SELECT id, command, input, startedAt, finishedAt, documents, failed, records, drops
FROM runs ORDER BY startedAt DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.RunRow
	for rows.Next() {
		var row internal.RunRow
		if err := rows.Scan(&row.ID, &row.Command, &row.Input, &row.StartedAt, &row.FinishedAt, &row.Documents, &row.Failed, &row.Records, &row.Drops); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// UpsertDocument stores a document keyed by content hash. A document seen
// before keeps its id and takes the new run, path and status.
func (d *DB) UpsertDocument(doc internal.DocumentRow) (internal.DocumentRow, error) {
	_, err := d.conn.Exec(`
INSERT INTO documents (runId, path, hash, format, size, batch, status, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(hash) DO UPDATE SET
  runId = excluded.runId,
  path = excluded.path,
  format = excluded.format,
  size = excluded.size,
  batch = excluded.batch,
  status = excluded.status,
  error = excluded.error,
  updatedAt = CURRENT_TIMESTAMP
`, doc.RunID, doc.Path, doc.Hash, doc.Format, doc.Size, doc.Batch, doc.Status, doc.Error)
	if err != nil {
		return internal.DocumentRow{}, err
	}

	row, err := d.GetDocumentByHash(doc.Hash)
	if err != nil {
		return internal.DocumentRow{}, err
	}
	if row == nil {
		return internal.DocumentRow{}, errors.New("document not found after upsert")
	}
	return *row, nil
}

func (d *DB) GetDocumentByHash(hash string) (*internal.DocumentRow, error) {
	var row internal.DocumentRow
	var format, batch, errMsg sql.NullString
	err := d.conn.QueryRow(`
SELECT id, runId, path, hash, format, size, batch, status, error FROM documents WHERE hash = ?
`, hash).Scan(&row.ID, &row.RunID, &row.Path, &row.Hash, &format, &row.Size, &batch, &row.Status, &errMsg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row.Format, row.Batch, row.Error = format.String, batch.String, errMsg.String
	return &row, nil
}

// ListDocumentsByStatus returns the most recently stored documents first.
func (d *DB) ListDocumentsByStatus(status string, limit int) ([]internal.DocumentRow, error) {
	rows, err := d.conn.Query(`
SELECT id, runId, path, hash, format, size, batch, status, error
FROM documents WHERE status = ? ORDER BY id DESC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.DocumentRow
	for rows.Next() {
		var row internal.DocumentRow
		var format, batch, errMsg sql.NullString
		if err := rows.Scan(&row.ID, &row.RunID, &row.Path, &row.Hash, &format, &row.Size, &batch, &row.Status, &errMsg); err != nil {
			return nil, err
		}
		row.Format, row.Batch, row.Error = format.String, batch.String, errMsg.String
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateDocumentStatus(documentID int64, status string) error {
	_, err := d.conn.Exec(`UPDATE documents SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, documentID)
	return err
}

// SaveDocumentResult replaces the records, report and notes of a document.
func (d *DB) SaveDocumentResult(documentID int64, records []internal.Record, report internal.ConsistencyReport, notes []internal.Note) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{
		`DELETE FROM records WHERE documentId = ?`,
		`DELETE FROM reports WHERE documentId = ?`,
		`DELETE FROM notes WHERE documentId = ?`,
	} {
		if _, err := tx.Exec(stmt, documentID); err != nil {
			return err
		}
	}

	stmt, err := tx.Prepare(`
INSERT INTO records (documentId, batch, carType, category, subType, tableId, model, company, brand, sequenceNumber, rawText, extraJson)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		extraJSON, _ := json.Marshal(r.Extra)
		if _, err := stmt.Exec(documentID, r.Batch, r.CarType, string(r.Category), r.SubType, r.TableID, r.Model, r.Company, r.Brand, r.SequenceNumber, r.RawText, string(extraJSON)); err != nil {
			return err
		}
	}

	tableCountsJSON, _ := json.Marshal(report.TableCounts)
	if _, err := tx.Exec(`
INSERT INTO reports (documentId, status, batch, actualCount, processedCount, declaredCount, difference, tableCountsJson, message)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, documentID, string(report.Status), report.Batch, report.ActualCount, report.ProcessedCount, report.DeclaredCount, report.Difference, string(tableCountsJSON), report.Message); err != nil {
		return err
	}

	for _, n := range notes {
		if _, err := tx.Exec(`INSERT INTO notes (documentId, kind, section, batch, content) VALUES (?, ?, ?, ?, ?)`,
			documentID, string(n.Kind), n.Section, n.Batch, n.Content); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) InsertDrops(runID string, documentID *int64, drops []internal.Drop) error {
	if len(drops) == 0 {
		return nil
	}
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, dr := range drops {
		if _, err := tx.Exec(`INSERT INTO drops (runId, documentId, level, source, tableId, rowNo, reason) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, documentID, string(dr.Level), dr.Source, dr.TableID, dr.Row, dr.Reason); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (d *DB) GetRecords(documentID int64) ([]internal.Record, error) {
	rows, err := d.conn.Query(`
SELECT batch, carType, category, subType, tableId, model, company, brand, sequenceNumber, rawText, extraJson
FROM records WHERE documentId = ? ORDER BY id ASC
`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Record
	for rows.Next() {
		var r internal.Record
		var category, extraJSON string
		var model, company, brand, seq sql.NullString
		if err := rows.Scan(&r.Batch, &r.CarType, &category, &r.SubType, &r.TableID, &model, &company, &brand, &seq, &r.RawText, &extraJSON); err != nil {
			return nil, err
		}
		r.Category = internal.Category(category)
		r.Model, r.Company, r.Brand, r.SequenceNumber = model.String, company.String, brand.String, seq.String
		r.Extra = map[string]string{}
		_ = json.Unmarshal([]byte(extraJSON), &r.Extra)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (d *DB) CountDrops(runID string) (map[internal.DropLevel]int, error) {
	rows, err := d.conn.Query(`SELECT level, COUNT(*) FROM drops WHERE runId = ? GROUP BY level`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[internal.DropLevel]int{}
	for rows.Next() {
		var level string
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, err
		}
		out[internal.DropLevel(level)] = n
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
