package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/haiminhdev/callstat/db"
)

const (
	dailyCachePrefix = "callstat:daily:"
	dailyCacheTTL    = 5 * time.Minute
)

// SummaryService is the aggregation engine: it materializes per-hour rollups
// from the raw event store and composes them into daily and date-range
// summaries. Rollups for a date are always regenerated as a whole 24-row set
// so they reflect the full current event set, never patched incrementally.
type SummaryService struct {
	PG    *sql.DB
	Redis *redis.Client
}

func NewSummaryService(pg *sql.DB, redisClient *redis.Client) *SummaryService {
	return &SummaryService{PG: pg, Redis: redisClient}
}

// GenerateHourlyRollups recomputes the 24 rollup rows for a date from the
// event store. The operation is idempotent: with no intervening event changes,
// running it twice produces identical rows. Per the store's concurrency
// contract there is no enclosing transaction; readers can observe the brief
// window between delete and insert.
func (s *SummaryService) GenerateHourlyRollups(date time.Time) error {
	day := dateOnly(date)

	if _, err := s.PG.Exec(`DELETE FROM hourly_rollups WHERE call_date = $1`, day); err != nil {
		return fmt.Errorf("failed to clear rollups for %s: %w", day.Format("2006-01-02"), err)
	}

	rows, err := s.PG.Query(`
		SELECT EXTRACT(HOUR FROM call_time)::int AS hour_of_day,
		       COUNT(*) AS total_calls,
		       COUNT(*) FILTER (WHERE close_reason = $2) AS te_busy_calls,
		       COUNT(*) FILTER (WHERE close_reason = $3) AS sys_busy_calls,
		       COUNT(*) FILTER (WHERE close_reason > $3) AS other_calls
		FROM call_events
		WHERE call_date = $1
		GROUP BY 1
	`, day, db.CloseReasonTEBusy, db.CloseReasonSysBusy)
	if err != nil {
		return fmt.Errorf("failed to scan events for %s: %w", day.Format("2006-01-02"), err)
	}
	defer rows.Close()

	var hours [24]db.HourlyRollup
	for rows.Next() {
		var hour int
		var total, teBusy, sysBusy, others int64
		if err := rows.Scan(&hour, &total, &teBusy, &sysBusy, &others); err != nil {
			return fmt.Errorf("failed to scan hourly counts: %w", err)
		}
		if hour < 0 || hour > 23 {
			continue
		}
		hours[hour] = db.HourlyRollup{
			TotalCalls:   total,
			TEBusyCalls:  teBusy,
			SysBusyCalls: sysBusy,
			OtherCalls:   others,
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to scan events for %s: %w", day.Format("2006-01-02"), err)
	}

	// All 24 hours are materialized, zero-count hours included.
	generatedAt := time.Now().UTC()
	var sb strings.Builder
	sb.WriteString(`INSERT INTO hourly_rollups
		(call_date, hour_of_day, total_calls, te_busy_calls, sys_busy_calls, other_calls,
		 te_busy_percent, sys_busy_percent, other_percent, generated_at) VALUES `)

	args := make([]interface{}, 0, 24*10)
	for hour := 0; hour < 24; hour++ {
		r := hours[hour]
		if hour > 0 {
			sb.WriteString(", ")
		}
		base := hour * 10
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8, base+9, base+10)
		args = append(args, day, hour, r.TotalCalls, r.TEBusyCalls, r.SysBusyCalls, r.OtherCalls,
			percentOf(r.TEBusyCalls, r.TotalCalls),
			percentOf(r.SysBusyCalls, r.TotalCalls),
			percentOf(r.OtherCalls, r.TotalCalls),
			generatedAt)
	}

	if _, err := s.PG.Exec(sb.String(), args...); err != nil {
		return fmt.Errorf("failed to insert rollups for %s: %w", day.Format("2006-01-02"), err)
	}

	s.invalidateDailyCache(day)
	return nil
}

// GetHourlyRollups returns the 24 rollup rows for a date, generating them
// first when none exist yet.
func (s *SummaryService) GetHourlyRollups(date time.Time) ([]db.HourlyRollup, error) {
	day := dateOnly(date)

	count, err := s.rollupCount(day)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		if err := s.GenerateHourlyRollups(day); err != nil {
			return nil, err
		}
	}

	rows, err := s.PG.Query(`
		SELECT id, to_char(call_date, 'YYYY-MM-DD'), hour_of_day,
		       total_calls, te_busy_calls, sys_busy_calls, other_calls,
		       te_busy_percent, sys_busy_percent, other_percent, generated_at
		FROM hourly_rollups
		WHERE call_date = $1
		ORDER BY hour_of_day
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to get hourly rollups: %w", err)
	}
	defer rows.Close()

	var rollups []db.HourlyRollup
	for rows.Next() {
		var r db.HourlyRollup
		if err := rows.Scan(&r.ID, &r.CallDate, &r.HourOfDay,
			&r.TotalCalls, &r.TEBusyCalls, &r.SysBusyCalls, &r.OtherCalls,
			&r.TEBusyPercent, &r.SysBusyPercent, &r.OtherPercent, &r.GeneratedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rollup: %w", err)
		}
		rollups = append(rollups, r)
	}
	return rollups, rows.Err()
}

// GetDailySummary sums a date's 24 rollups. When no rollups exist for the date
// they are generated on the spot, which self-heals against background rollup
// jobs lost to a crash. Daily percentages are total-weighted, not an average
// of the 24 hourly percentages.
func (s *SummaryService) GetDailySummary(date time.Time) (db.DailySummary, error) {
	day := dateOnly(date)

	if cached, ok := s.cachedDailySummary(day); ok {
		return cached, nil
	}

	count, err := s.rollupCount(day)
	if err != nil {
		return db.DailySummary{}, err
	}
	if count == 0 {
		if err := s.GenerateHourlyRollups(day); err != nil {
			return db.DailySummary{}, err
		}
	}

	summary := db.DailySummary{Date: day.Format("2006-01-02")}
	err = s.PG.QueryRow(`
		SELECT COALESCE(SUM(total_calls), 0),
		       COALESCE(SUM(te_busy_calls), 0),
		       COALESCE(SUM(sys_busy_calls), 0),
		       COALESCE(SUM(other_calls), 0)
		FROM hourly_rollups
		WHERE call_date = $1
	`, day).Scan(&summary.TotalCalls, &summary.TEBusyCalls, &summary.SysBusyCalls, &summary.OtherCalls)
	if err != nil {
		return db.DailySummary{}, fmt.Errorf("failed to sum rollups: %w", err)
	}

	summary.TEBusyPercent = percentOf(summary.TEBusyCalls, summary.TotalCalls)
	summary.SysBusyPercent = percentOf(summary.SysBusyCalls, summary.TotalCalls)
	summary.OtherPercent = percentOf(summary.OtherCalls, summary.TotalCalls)

	s.cacheDailySummary(day, summary)
	return summary, nil
}

// GetRangeSummary composes daily summaries over the inclusive date range.
// Three distinct averaging semantics are computed; see db.RangeSummary for
// which divisor each one uses. The engine does not cap the range length; the
// HTTP caller enforces the 90 day bound.
func (s *SummaryService) GetRangeSummary(startDate, endDate time.Time) (db.RangeSummary, error) {
	start := dateOnly(startDate)
	end := dateOnly(endDate)
	if end.Before(start) {
		return db.RangeSummary{}, fmt.Errorf("end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	summary := db.RangeSummary{
		StartDate: start.Format("2006-01-02"),
		EndDate:   end.Format("2006-01-02"),
	}

	var teBusyPctSum, sysBusyPctSum, otherPctSum float64
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		daily, err := s.GetDailySummary(day)
		if err != nil {
			return db.RangeSummary{}, err
		}

		summary.Days = append(summary.Days, daily)
		summary.DaysInRange++
		summary.TotalCalls += daily.TotalCalls
		summary.TEBusyCalls += daily.TEBusyCalls
		summary.SysBusyCalls += daily.SysBusyCalls
		summary.OtherCalls += daily.OtherCalls

		// Zero-call days are excluded from the percentage average only; they
		// still count as calendar days for the per-day magnitude averages.
		if daily.TotalCalls > 0 {
			summary.DaysWithCalls++
			teBusyPctSum += daily.TEBusyPercent
			sysBusyPctSum += daily.SysBusyPercent
			otherPctSum += daily.OtherPercent
		}
	}

	summary.TEBusyPercent = percentOf(summary.TEBusyCalls, summary.TotalCalls)
	summary.SysBusyPercent = percentOf(summary.SysBusyCalls, summary.TotalCalls)
	summary.OtherPercent = percentOf(summary.OtherCalls, summary.TotalCalls)

	days := float64(summary.DaysInRange)
	summary.AvgCallsPerDay = round2(float64(summary.TotalCalls) / days)
	summary.AvgTEBusyPerDay = round2(float64(summary.TEBusyCalls) / days)
	summary.AvgSysBusyPerDay = round2(float64(summary.SysBusyCalls) / days)
	summary.AvgOtherPerDay = round2(float64(summary.OtherCalls) / days)

	if summary.DaysWithCalls > 0 {
		active := float64(summary.DaysWithCalls)
		summary.AvgDailyTEBusyPercent = round2(teBusyPctSum / active)
		summary.AvgDailySysBusyPercent = round2(sysBusyPctSum / active)
		summary.AvgDailyOtherPercent = round2(otherPctSum / active)
	}

	return summary, nil
}

// ExportEventsCSV streams the raw events of the inclusive date range as
// semicolon-delimited CSV, ordered by date then time.
func (s *SummaryService) ExportEventsCSV(startDate, endDate time.Time, w io.Writer) error {
	rows, err := s.PG.Query(`
		SELECT to_char(call_date, 'YYYYMMDD'), to_char(call_time, 'HH24MISS'), close_reason
		FROM call_events
		WHERE call_date BETWEEN $1 AND $2
		ORDER BY call_date, call_time
	`, dateOnly(startDate), dateOnly(endDate))
	if err != nil {
		return fmt.Errorf("failed to query events for export: %w", err)
	}
	defer rows.Close()

	if _, err := io.WriteString(w, "DATE;TIME;CALL CLOSE REASON\n"); err != nil {
		return err
	}

	for rows.Next() {
		var date, timeOfDay string
		var closeReason int
		if err := rows.Scan(&date, &timeOfDay, &closeReason); err != nil {
			return fmt.Errorf("failed to scan event for export: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s;%s;%d\n", date, timeOfDay, closeReason); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SummaryService) rollupCount(day time.Time) (int, error) {
	var count int
	if err := s.PG.QueryRow(`SELECT COUNT(*) FROM hourly_rollups WHERE call_date = $1`, day).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rollups: %w", err)
	}
	return count, nil
}

// ===========================
// DAILY SUMMARY CACHE
// ===========================

func (s *SummaryService) cachedDailySummary(day time.Time) (db.DailySummary, bool) {
	if s.Redis == nil {
		return db.DailySummary{}, false
	}

	payload, err := s.Redis.Get(context.Background(), dailyCacheKey(day)).Result()
	if err != nil {
		return db.DailySummary{}, false
	}

	var summary db.DailySummary
	if err := json.Unmarshal([]byte(payload), &summary); err != nil {
		return db.DailySummary{}, false
	}
	return summary, true
}

func (s *SummaryService) cacheDailySummary(day time.Time, summary db.DailySummary) {
	if s.Redis == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		return
	}
	if err := s.Redis.Set(context.Background(), dailyCacheKey(day), payload, dailyCacheTTL).Err(); err != nil {
		log.Printf("Failed to cache daily summary for %s: %v", day.Format("2006-01-02"), err)
	}
}

func (s *SummaryService) invalidateDailyCache(day time.Time) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), dailyCacheKey(day)).Err(); err != nil {
		log.Printf("Failed to invalidate daily summary cache for %s: %v", day.Format("2006-01-02"), err)
	}
}

func dailyCacheKey(day time.Time) string {
	return dailyCachePrefix + day.Format("2006-01-02")
}

// ===========================
// HELPERS
// ===========================

// dateOnly drops the time-of-day component, pinning the date to midnight UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// percentOf is count/total*100 rounded to 2 decimals, 0 when total is 0.
func percentOf(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(count) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
