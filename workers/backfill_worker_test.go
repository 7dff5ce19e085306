package workers

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/haiminhdev/callstat/services"
)

func TestBackfillWorker_SweepRegeneratesStaleDates(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	staleDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT e.call_date").
		WillReturnRows(sqlmock.NewRows([]string{"call_date"}).AddRow(staleDate))
	expectRollupGeneration(mock)

	worker := NewBackfillWorker(dbConn, services.NewSummaryService(dbConn, nil), time.Minute)
	worker.sweep()

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBackfillWorker_SweepNoStaleDates(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	mock.ExpectQuery("SELECT e.call_date").
		WillReturnRows(sqlmock.NewRows([]string{"call_date"}))

	worker := NewBackfillWorker(dbConn, services.NewSummaryService(dbConn, nil), time.Minute)
	worker.sweep()

	assert.NoError(t, mock.ExpectationsWereMet())
}
