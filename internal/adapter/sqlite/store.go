// Package sqlite persists file provenance so a restarted service does not
// republish archives it has already decoded.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/oceanobs/imma-etl/internal/imma"
)

// Store records one row per sealed report table, keyed by checksum.
// It implements pipeline.ProvenanceStore.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the provenance database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS report_provenance (
		checksum TEXT PRIMARY KEY,
		source_path TEXT NOT NULL,
		total_records INTEGER NOT NULL,
		rejected_records INTEGER NOT NULL,
		sealed_at TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create provenance table: %w", err)
	}
	return &Store{db: db}, nil
}

// Seen reports whether a table with this checksum was already recorded.
func (s *Store) Seen(ctx context.Context, checksum string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM report_provenance WHERE checksum = ?`, checksum).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query provenance: %w", err)
	}
	return true, nil
}

// Record inserts the provenance row. Re-recording the same checksum keeps
// the most recent source path and counts.
func (s *Store) Record(ctx context.Context, prov imma.Provenance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO report_provenance (checksum, source_path, total_records, rejected_records, sealed_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(checksum) DO UPDATE SET
			source_path = excluded.source_path,
			total_records = excluded.total_records,
			rejected_records = excluded.rejected_records,
			sealed_at = excluded.sealed_at`,
		prov.Checksum, prov.SourcePath, prov.TotalRecords, prov.RejectedRecords,
		prov.SealedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("record provenance: %w", err)
	}
	return nil
}

// Lookup returns the stored provenance for a checksum.
func (s *Store) Lookup(ctx context.Context, checksum string) (imma.Provenance, error) {
	var prov imma.Provenance
	var sealedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT checksum, source_path, total_records, rejected_records, sealed_at
		 FROM report_provenance WHERE checksum = ?`, checksum).
		Scan(&prov.Checksum, &prov.SourcePath, &prov.TotalRecords, &prov.RejectedRecords, &sealedAt)
	if err != nil {
		return imma.Provenance{}, fmt.Errorf("lookup provenance: %w", err)
	}
	prov.SealedAt, err = time.Parse(time.RFC3339, sealedAt)
	if err != nil {
		return imma.Provenance{}, fmt.Errorf("parse sealed_at: %w", err)
	}
	return prov, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
