package services

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/haiminhdev/callstat/db"
	"github.com/haiminhdev/callstat/internal/config"
)

const (
	// Rows per multi-row INSERT. Four binds per row keeps a full batch well
	// under the Postgres 65535-parameter limit.
	defaultBatchSize = 10000

	defaultBatchPause = 100 * time.Millisecond
)

// BulkLoaderService inserts validated call events in fixed-size batches.
// Batches run strictly in sequence with a short pause between them, trading
// throughput for bounded load on the store during very large imports. There is
// no cross-batch transaction: a failing batch aborts the load, but batches
// committed before it stay committed (at-least-once, not atomic).
type BulkLoaderService struct {
	PG         *sql.DB
	BatchSize  int
	BatchPause time.Duration
}

func NewBulkLoaderService(pg *sql.DB) *BulkLoaderService {
	pause := defaultBatchPause
	if config.App.LoaderBatchPauseMS > 0 {
		pause = time.Duration(config.App.LoaderBatchPauseMS) * time.Millisecond
	}
	return &BulkLoaderService{
		PG:         pg,
		BatchSize:  defaultBatchSize,
		BatchPause: pause,
	}
}

// Load inserts all events durably, batch by batch.
func (s *BulkLoaderService) Load(events []db.CallEvent) error {
	if len(events) == 0 {
		return nil
	}

	batchSize := s.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}

	batches := (len(events) + batchSize - 1) / batchSize
	for i := 0; i < batches; i++ {
		start := i * batchSize
		end := start + batchSize
		if end > len(events) {
			end = len(events)
		}

		if err := s.insertBatch(events[start:end]); err != nil {
			return fmt.Errorf("failed to insert batch %d/%d: %w", i+1, batches, err)
		}
		log.Printf("Loader: inserted batch %d/%d (%d rows)", i+1, batches, end-start)

		// Throttle between batches so a 100 MB import does not saturate the
		// storage engine.
		if i < batches-1 && s.BatchPause > 0 {
			time.Sleep(s.BatchPause)
		}
	}

	return nil
}

// insertBatch builds and executes one positional multi-row INSERT.
func (s *BulkLoaderService) insertBatch(events []db.CallEvent) error {
	var sb strings.Builder
	sb.WriteString("INSERT INTO call_events (call_date, call_time, close_reason, recorded_at) VALUES ")

	args := make([]interface{}, 0, len(events)*4)
	for i, event := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * 4
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d)", base+1, base+2, base+3, base+4)
		args = append(args, event.CallDate, event.CallTime, event.CloseReason, event.RecordedAt)
	}

	_, err := s.PG.Exec(sb.String(), args...)
	return err
}
