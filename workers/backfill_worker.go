package workers

import (
	"context"
	"database/sql"
	"log"
	"time"

	"github.com/haiminhdev/callstat/services"
)

// BackfillWorker periodically finds dates whose rollups are missing or
// incomplete and regenerates them. It is the safety net for rollup jobs lost
// to a crash or a full queue; together with the lazy generation in
// GetDailySummary it keeps rollups eventually consistent with the event
// store.
type BackfillWorker struct {
	PG       *sql.DB
	Summary  *services.SummaryService
	Interval time.Duration
}

func NewBackfillWorker(pg *sql.DB, summary *services.SummaryService, interval time.Duration) *BackfillWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &BackfillWorker{PG: pg, Summary: summary, Interval: interval}
}

// Start runs the sweep loop until the context is cancelled.
func (w *BackfillWorker) Start(ctx context.Context) {
	log.Printf("Backfill worker started, sweeping every %s", w.Interval)

	ticker := time.NewTicker(w.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Backfill worker stopped")
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

// sweep regenerates rollups for every date that has events but fewer than 24
// rollup rows.
func (w *BackfillWorker) sweep() {
	rows, err := w.PG.Query(`
		SELECT e.call_date
		FROM call_events e
		LEFT JOIN hourly_rollups r ON r.call_date = e.call_date
		GROUP BY e.call_date
		HAVING COUNT(DISTINCT r.hour_of_day) < 24
		ORDER BY e.call_date
	`)
	if err != nil {
		log.Printf("Backfill worker: failed to find stale dates: %v", err)
		return
	}
	defer rows.Close()

	var stale []time.Time
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			log.Printf("Backfill worker: failed to scan date: %v", err)
			continue
		}
		stale = append(stale, day)
	}
	if err := rows.Err(); err != nil {
		log.Printf("Backfill worker: failed to read stale dates: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}
	log.Printf("Backfill worker: %d dates with incomplete rollups", len(stale))

	for _, day := range stale {
		if err := w.Summary.GenerateHourlyRollups(day); err != nil {
			log.Printf("Backfill worker: failed to regenerate %s: %v", day.Format("2006-01-02"), err)
		}
	}
}
