package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/haiminhdev/callstat/db"
)

func testEvents(n int) []db.CallEvent {
	events := make([]db.CallEvent, n)
	day := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	for i := range events {
		events[i] = db.CallEvent{
			CallDate:    day,
			CallTime:    "09:30:45",
			CloseReason: i % 3,
			RecordedAt:  time.Now().UTC(),
		}
	}
	return events
}

func TestBulkLoaderService_Load_EmptyInput(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	loader := &BulkLoaderService{PG: dbConn, BatchSize: 2}
	assert.NoError(t, loader.Load(nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoaderService_Load_Batches(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	// 5 events with batch size 2: three sequential INSERTs of 2, 2 and 1 rows
	loader := &BulkLoaderService{PG: dbConn, BatchSize: 2}

	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, loader.Load(testEvents(5)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoaderService_Load_AbortsOnBatchFailure(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	loader := &BulkLoaderService{PG: dbConn, BatchSize: 2}

	// First batch commits, second fails; no third batch is attempted and the
	// first one stays committed (at-least-once contract).
	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("INSERT INTO call_events").WillReturnError(errors.New("deadlock detected"))

	err = loader.Load(testEvents(6))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "batch 2/3")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkLoaderService_InterBatchPause(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	loader := &BulkLoaderService{PG: dbConn, BatchSize: 1, BatchPause: 20 * time.Millisecond}

	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO call_events").WillReturnResult(sqlmock.NewResult(0, 1))

	start := time.Now()
	assert.NoError(t, loader.Load(testEvents(2)))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.NoError(t, mock.ExpectationsWereMet())
}
