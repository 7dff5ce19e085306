package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/haiminhdev/callstat/internal/config"
	"github.com/haiminhdev/callstat/services"
)

func newAdminRouter(t *testing.T) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dbConn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create mock: %v", err)
	}
	t.Cleanup(func() { dbConn.Close() })

	handler := NewAdminHandler(services.NewLifecycleService(dbConn, nil))

	r := gin.New()
	r.DELETE("/api/calls", handler.DeleteByDate)
	r.POST("/api/admin/reset", handler.ResetAll)
	return r, mock
}

func TestAdminHandler_DeleteByDate(t *testing.T) {
	r, mock := newAdminRouter(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM call_events").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 17))
	mock.ExpectExec("DELETE FROM hourly_rollups").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 24))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/calls?date=2024-01-15", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2024-01-15")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdminHandler_DeleteByDate_MissingDate(t *testing.T) {
	r, _ := newAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/api/calls", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminHandler_ResetAll_WrongToken(t *testing.T) {
	r, _ := newAdminRouter(t)

	saved := config.App.ResetToken
	config.App.ResetToken = "super-secret"
	defer func() { config.App.ResetToken = saved }()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset",
		strings.NewReader(`{"confirm_token":"guess"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminHandler_ResetAll_MissingToken(t *testing.T) {
	r, _ := newAdminRouter(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset",
		strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "confirm_token is required")
}

func TestAdminHandler_ResetAll_ValidToken(t *testing.T) {
	r, mock := newAdminRouter(t)

	saved := config.App.ResetToken
	config.App.ResetToken = "super-secret"
	defer func() { config.App.ResetToken = saved }()

	mock.ExpectBegin()
	mock.ExpectExec("TRUNCATE call_events, hourly_rollups, import_ledger").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/admin/reset",
		strings.NewReader(`{"confirm_token":"super-secret"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
