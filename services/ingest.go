package services

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/haiminhdev/callstat/db"
	"github.com/haiminhdev/callstat/internal/cdr"
)

// ErrDuplicateFile is returned when a file name already has a completed
// ledger entry. This is a user-facing rejection, distinct from a processing
// failure.
var ErrDuplicateFile = errors.New("file has already been imported")

// RollupScheduler queues rollup regeneration for a date without blocking the
// import request. workers.RollupWorker implements it.
type RollupScheduler interface {
	Enqueue(date time.Time) bool
}

// IngestService orchestrates a file import: ledger gate, parallel parse,
// batched bulk load, ledger write, then asynchronous rollup refresh. The
// caller gets its response before the rollups reflect the import; that
// eventual-consistency window is deliberate.
type IngestService struct {
	PG     *sql.DB
	Ledger *ImportLedgerService
	Loader *BulkLoaderService

	scheduler RollupScheduler
}

func NewIngestService(pg *sql.DB, ledger *ImportLedgerService, loader *BulkLoaderService) *IngestService {
	return &IngestService{PG: pg, Ledger: ledger, Loader: loader}
}

// SetRollupScheduler wires the background rollup queue. Without one, imported
// dates are left to the backfill sweep.
func (s *IngestService) SetRollupScheduler(scheduler RollupScheduler) {
	s.scheduler = scheduler
}

// ImportFile runs the full ingestion pipeline for one uploaded file.
func (s *IngestService) ImportFile(fileName string, r io.Reader) (db.UploadResult, error) {
	result := db.UploadResult{FileName: fileName}

	completed, err := s.Ledger.HasCompletedImport(fileName)
	if err != nil {
		return result, fmt.Errorf("failed to check import ledger: %w", err)
	}
	if completed {
		result.Errors = append(result.Errors, fmt.Sprintf("file %q has already been imported", fileName))
		return result, ErrDuplicateFile
	}

	lines, err := cdr.ReadLines(r)
	if err != nil {
		return result, fmt.Errorf("failed to read upload: %w", err)
	}

	// Parsing always succeeds structurally; malformed lines only reduce the
	// valid count.
	parsed := cdr.ParseLines(lines)
	result.TotalLines = parsed.TotalLines
	result.SuccessfulRecords = len(parsed.Events)
	result.FailedRecords = parsed.FailedLines

	if len(parsed.Events) > 0 {
		if err := s.Loader.Load(parsed.Events); err != nil {
			// Best effort: the ledger should reflect the failure even though
			// it is not transactionally tied to it.
			if ledgerErr := s.Ledger.RecordFailure(fileName, err.Error()); ledgerErr != nil {
				log.Printf("Failed to record import failure for %s: %v", fileName, ledgerErr)
			}
			result.Errors = append(result.Errors, err.Error())
			return result, fmt.Errorf("bulk load of %s failed: %w", fileName, err)
		}
	}

	if err := s.Ledger.RecordSuccess(fileName, len(parsed.Events)); err != nil {
		return result, fmt.Errorf("failed to record import success: %w", err)
	}

	if s.scheduler != nil {
		for _, day := range distinctDates(parsed.Events) {
			if !s.scheduler.Enqueue(day) {
				log.Printf("Rollup queue full, %s left to the backfill sweep", day.Format("2006-01-02"))
			}
		}
	}

	log.Printf("Imported %s: %d lines, %d loaded, %d rejected",
		fileName, result.TotalLines, result.SuccessfulRecords, result.FailedRecords)
	return result, nil
}

// distinctDates returns the unique calendar days present in a batch, in first
// seen order.
func distinctDates(events []db.CallEvent) []time.Time {
	seen := make(map[time.Time]struct{}, 4)
	var days []time.Time
	for _, event := range events {
		day := dateOnly(event.CallDate)
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days
}
