package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/haiminhdev/callstat/db"
)

// ImportLedgerService tracks which source files have already been ingested.
// The ledger is append-only; rows are inserted, never updated. Note the lookup
// is advisory only: there is no uniqueness constraint on file_name, so two
// simultaneous imports of the same file can both pass the check before either
// writes history.
type ImportLedgerService struct {
	PG *sql.DB
}

func NewImportLedgerService(pg *sql.DB) *ImportLedgerService {
	return &ImportLedgerService{PG: pg}
}

// HasCompletedImport reports whether a completed ledger entry exists for the
// exact file name. Failed entries do not block a retry.
func (s *ImportLedgerService) HasCompletedImport(fileName string) (bool, error) {
	var exists bool
	err := s.PG.QueryRow(`
		SELECT EXISTS(
			SELECT 1 FROM import_ledger
			WHERE file_name = $1 AND status = $2
		)
	`, fileName, db.ImportStatusCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check import ledger: %w", err)
	}
	return exists, nil
}

// RecordSuccess appends a completed entry for the file.
func (s *ImportLedgerService) RecordSuccess(fileName string, recordCount int) error {
	_, err := s.PG.Exec(`
		INSERT INTO import_ledger (id, file_name, status, record_count, imported_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), fileName, db.ImportStatusCompleted, recordCount, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record import success: %w", err)
	}
	return nil
}

// RecordFailure appends a failed entry for the file. Multiple failed entries
// for the same name are expected when a file is retried.
func (s *ImportLedgerService) RecordFailure(fileName string, errorText string) error {
	_, err := s.PG.Exec(`
		INSERT INTO import_ledger (id, file_name, status, record_count, error_message, imported_at)
		VALUES ($1, $2, $3, 0, $4, $5)
	`, uuid.New().String(), fileName, db.ImportStatusFailed, errorText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record import failure: %w", err)
	}
	return nil
}

// ListEntries returns the most recent ledger entries for the import history
// view.
func (s *ImportLedgerService) ListEntries(limit int) ([]db.ImportLedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.PG.Query(`
		SELECT id, file_name, status, record_count, COALESCE(error_message, ''), imported_at
		FROM import_ledger
		ORDER BY imported_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list import ledger: %w", err)
	}
	defer rows.Close()

	var entries []db.ImportLedgerEntry
	for rows.Next() {
		var entry db.ImportLedgerEntry
		if err := rows.Scan(&entry.ID, &entry.FileName, &entry.Status,
			&entry.RecordCount, &entry.ErrorMessage, &entry.ImportedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
