package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/sigbits/internal/threshold"

	_ "modernc.org/sqlite"
)

var ErrRunNotFound = errors.New("storage: run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	input       TEXT NOT NULL,
	format      TEXT NOT NULL,
	method      TEXT NOT NULL,
	resolution  REAL NOT NULL,
	output      TEXT NOT NULL,
	created_at  TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS records (
	run_id      TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	idx         INTEGER NOT NULL,
	threshold   REAL NOT NULL,
	z           REAL NOT NULL,
	mean        REAL NOT NULL,
	std         REAL NOT NULL,
	bits        REAL NOT NULL,
	digits      REAL NOT NULL,
	PRIMARY KEY (run_id, idx)
);
`

type RunMetadata struct {
	ID         string    `json:"id"`
	Input      string    `json:"input"`
	Format     string    `json:"format"`
	Method     string    `json:"method"`
	Resolution float64   `json:"resolution"`
	Output     string    `json:"output"`
	Timestamp  time.Time `json:"timestamp"`
}

type IndexedRecord struct {
	Index     int              `json:"index"`
	Threshold float64          `json:"threshold"`
	Record    threshold.Record `json:"record"`
}

// Store catalogs pipeline runs and their per-threshold statistics in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens or creates the catalog at path. ":memory:" keeps it in process.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun records a run and returns its id. An empty ID or zero timestamp
// is filled in.
func (s *Store) CreateRun(meta RunMetadata) (string, error) {
	if meta.ID == "" {
		meta.ID = uuid.NewString()
	}
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	_, err := s.db.Exec(
		`INSERT INTO runs(id, input, format, method, resolution, output, created_at) VALUES(?, ?, ?, ?, ?, ?, ?)`,
		meta.ID, meta.Input, meta.Format, meta.Method, meta.Resolution, meta.Output,
		meta.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	return meta.ID, nil
}

// AddRecords stores records for a run in one transaction, replacing any
// record already stored at the same index.
func (s *Store) AddRecords(runID string, recs []IndexedRecord) error {
	if _, err := s.Load(runID); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(
		`INSERT OR REPLACE INTO records(run_id, idx, threshold, z, mean, std, bits, digits) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range recs {
		rec := r.Record
		if _, err := stmt.Exec(runID, r.Index, r.Threshold, rec.Z, rec.Mean, rec.Std, rec.SignificantBits, rec.SignificantDigits); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert record %d: %w", r.Index, err)
		}
	}
	return tx.Commit()
}

// Records returns a run's records ordered by index.
func (s *Store) Records(runID string) ([]IndexedRecord, error) {
	rows, err := s.db.Query(
		`SELECT idx, threshold, z, mean, std, bits, digits FROM records WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IndexedRecord
	for rows.Next() {
		var r IndexedRecord
		rec := &r.Record
		if err := rows.Scan(&r.Index, &r.Threshold, &rec.Z, &rec.Mean, &rec.Std, &rec.SignificantBits, &rec.SignificantDigits); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	row := s.db.QueryRow(
		`SELECT id, input, format, method, resolution, output, created_at FROM runs WHERE id = ?`,
		runID,
	)
	meta, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return meta, nil
}

// List returns every run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	rows, err := s.db.Query(
		`SELECT id, input, format, method, resolution, output, created_at FROM runs ORDER BY created_at DESC, id`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunMetadata
	for rows.Next() {
		meta, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *meta)
	}
	return runs, rows.Err()
}

func (s *Store) Delete(runID string) error {
	res, err := s.db.Exec(`DELETE FROM runs WHERE id = ?`, runID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*RunMetadata, error) {
	var meta RunMetadata
	var created string
	if err := sc.Scan(&meta.ID, &meta.Input, &meta.Format, &meta.Method, &meta.Resolution, &meta.Output, &created); err != nil {
		return nil, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	meta.Timestamp = ts
	return &meta, nil
}
