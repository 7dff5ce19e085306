package db

import "time"

// ===========================
// CALL EVENT MODELS
// ===========================

// Close reason codes delivered by the telephony switches. Any code >= 2 is
// lumped into the "others" bucket; the finer meaning (no answer, timeout, ...)
// is informational only.
const (
	CloseReasonTEBusy  = 0
	CloseReasonSysBusy = 1
)

// CallEvent represents one call-closure fact loaded from a switch export file.
// Events are immutable: they are inserted during ingestion and only ever
// removed by a per-date delete or a full reset.
type CallEvent struct {
	ID          int64     `json:"id"`
	CallDate    time.Time `json:"call_date"`    // calendar day, midnight UTC
	CallTime    string    `json:"call_time"`    // time of day, "HH:MM:SS"
	CloseReason int       `json:"close_reason"` // non-negative switch code
	RecordedAt  time.Time `json:"recorded_at"`  // ingestion wall-clock time
}

// ===========================
// ROLLUP MODELS
// ===========================

// HourlyRollup is the materialized aggregate for one hour of one date.
// At most one row exists per (call_date, hour_of_day); a date's 24 rows are
// always regenerated together, never patched in place.
type HourlyRollup struct {
	ID             int64     `json:"id"`
	CallDate       string    `json:"call_date"` // "2006-01-02"
	HourOfDay      int       `json:"hour_of_day"`
	TotalCalls     int64     `json:"total_calls"`
	TEBusyCalls    int64     `json:"te_busy_calls"`
	SysBusyCalls   int64     `json:"sys_busy_calls"`
	OtherCalls     int64     `json:"other_calls"`
	TEBusyPercent  float64   `json:"te_busy_percent"`
	SysBusyPercent float64   `json:"sys_busy_percent"`
	OtherPercent   float64   `json:"other_percent"`
	GeneratedAt    time.Time `json:"generated_at"`
}

// DailySummary is a derived view over one date's 24 hourly rollups.
// Percentages are total-weighted (total bucket count / total calls), not an
// average of the hourly percentages.
type DailySummary struct {
	Date           string  `json:"date"`
	TotalCalls     int64   `json:"total_calls"`
	TEBusyCalls    int64   `json:"te_busy_calls"`
	SysBusyCalls   int64   `json:"sys_busy_calls"`
	OtherCalls     int64   `json:"other_calls"`
	TEBusyPercent  float64 `json:"te_busy_percent"`
	SysBusyPercent float64 `json:"sys_busy_percent"`
	OtherPercent   float64 `json:"other_percent"`
}

// RangeSummary composes DailySummary over an inclusive date interval.
// The three averaging semantics are distinct and all exposed:
//   - *Percent fields are total-weighted across every call in the range
//   - Avg*PerDay fields divide by calendar days in the range, zero-call
//     days included
//   - AvgDaily*Percent fields are the arithmetic mean of the per-day
//     percentages over days that had at least one call
type RangeSummary struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	DaysInRange   int    `json:"days_in_range"`
	DaysWithCalls int    `json:"days_with_calls"`

	TotalCalls   int64 `json:"total_calls"`
	TEBusyCalls  int64 `json:"te_busy_calls"`
	SysBusyCalls int64 `json:"sys_busy_calls"`
	OtherCalls   int64 `json:"other_calls"`

	TEBusyPercent  float64 `json:"te_busy_percent"`
	SysBusyPercent float64 `json:"sys_busy_percent"`
	OtherPercent   float64 `json:"other_percent"`

	AvgCallsPerDay   float64 `json:"avg_calls_per_day"`
	AvgTEBusyPerDay  float64 `json:"avg_te_busy_per_day"`
	AvgSysBusyPerDay float64 `json:"avg_sys_busy_per_day"`
	AvgOtherPerDay   float64 `json:"avg_other_per_day"`

	AvgDailyTEBusyPercent  float64 `json:"avg_daily_te_busy_percent"`
	AvgDailySysBusyPercent float64 `json:"avg_daily_sys_busy_percent"`
	AvgDailyOtherPercent   float64 `json:"avg_daily_other_percent"`

	Days []DailySummary `json:"days"`
}

// ===========================
// IMPORT LEDGER MODELS
// ===========================

// Import ledger statuses
const (
	ImportStatusCompleted = "completed"
	ImportStatusFailed    = "failed"
)

// ImportLedgerEntry records one ingestion attempt for a source file.
// The ledger is append-only: retries of a failed file add new rows, and a
// file name with a completed row can never be ingested again.
type ImportLedgerEntry struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	Status       string    `json:"status"` // completed, failed
	RecordCount  int64     `json:"record_count"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ImportedAt   time.Time `json:"imported_at"`
}

// ===========================
// API RESPONSE MODELS
// ===========================

// UploadResult is returned to the caller of a file import.
// Malformed lines are never surfaced individually, only as FailedRecords;
// Errors carries file-level problems (duplicate file, loader failure).
type UploadResult struct {
	FileName          string   `json:"file_name"`
	TotalLines        int      `json:"total_lines"`
	SuccessfulRecords int      `json:"successful_records"`
	FailedRecords     int      `json:"failed_records"`
	Errors            []string `json:"errors,omitempty"`
}
