package services

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/haiminhdev/callstat/internal/config"
)

func TestLifecycleService_DeleteByDate(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	service := NewLifecycleService(dbConn, nil)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM call_events").
		WillReturnResult(sqlmock.NewResult(0, 500))
	mock.ExpectExec("DELETE FROM hourly_rollups").
		WillReturnResult(sqlmock.NewResult(0, 24))
	mock.ExpectCommit()

	assert.NoError(t, service.DeleteByDate(day(2024, time.January, 1)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleService_DeleteByDate_RollsBackOnFailure(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	service := NewLifecycleService(dbConn, nil)

	// A failure deleting rollups must undo the event delete too
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM call_events").
		WillReturnResult(sqlmock.NewResult(0, 500))
	mock.ExpectExec("DELETE FROM hourly_rollups").
		WillReturnError(errors.New("disk on fire"))
	mock.ExpectRollback()

	err = service.DeleteByDate(day(2024, time.January, 1))
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLifecycleService_ResetAll(t *testing.T) {
	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	previous := config.App.ResetToken
	config.App.ResetToken = "really-wipe-everything"
	defer func() { config.App.ResetToken = previous }()

	service := NewLifecycleService(dbConn, nil)

	t.Run("wrong token", func(t *testing.T) {
		err := service.ResetAll("nope")
		assert.ErrorIs(t, err, ErrInvalidResetToken)
	})

	t.Run("valid token", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec("TRUNCATE call_events, hourly_rollups, import_ledger").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		assert.NoError(t, service.ResetAll("really-wipe-everything"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestLifecycleService_ResetAll_UnconfiguredTokenBlocks(t *testing.T) {
	dbConn, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	defer dbConn.Close()

	previous := config.App.ResetToken
	config.App.ResetToken = ""
	defer func() { config.App.ResetToken = previous }()

	service := NewLifecycleService(dbConn, nil)

	// With no token configured reset is unreachable, even with an empty guess
	assert.ErrorIs(t, service.ResetAll(""), ErrInvalidResetToken)
}
