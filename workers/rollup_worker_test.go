package workers

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/haiminhdev/callstat/services"
)

func expectRollupGeneration(mock sqlmock.Sqlmock) {
	mock.ExpectExec("DELETE FROM hourly_rollups").
		WillReturnResult(sqlmock.NewResult(0, 24))
	mock.ExpectQuery("SELECT EXTRACT\\(HOUR FROM call_time\\)").
		WillReturnRows(sqlmock.NewRows([]string{"hour_of_day", "total_calls", "te_busy_calls", "sys_busy_calls", "other_calls"}).
			AddRow(9, int64(10), int64(5), int64(3), int64(2)))
	mock.ExpectExec("INSERT INTO hourly_rollups").
		WillReturnResult(sqlmock.NewResult(0, 24))
}

func TestRollupWorker_ProcessesEnqueuedDates(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	expectRollupGeneration(mock)
	expectRollupGeneration(mock)

	worker := NewRollupWorker(services.NewSummaryService(dbConn, nil), 8)
	worker.Start()

	assert.True(t, worker.Enqueue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, worker.Enqueue(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)))

	// Stop drains everything already enqueued before returning
	worker.Stop()
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRollupWorker_EnqueueAfterStop(t *testing.T) {
	dbConn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	worker := NewRollupWorker(services.NewSummaryService(dbConn, nil), 8)
	worker.Start()
	worker.Stop()

	assert.False(t, worker.Enqueue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
}

func TestRollupWorker_EnqueueFullQueue(t *testing.T) {
	dbConn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	// Not started, so nothing consumes: the second enqueue finds the
	// single-slot queue full and reports it without blocking.
	worker := NewRollupWorker(services.NewSummaryService(dbConn, nil), 1)

	assert.True(t, worker.Enqueue(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.False(t, worker.Enqueue(time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC)))
}
