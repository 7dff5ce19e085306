package workers

import (
	"log"
	"sync"
	"time"

	"github.com/haiminhdev/callstat/services"
)

const defaultQueueSize = 256

// RollupWorker consumes a bounded in-process queue of dates and regenerates
// each date's hourly rollups. The import path enqueues and returns
// immediately; completion and shutdown draining stay observable here instead
// of in detached goroutines.
type RollupWorker struct {
	Summary *services.SummaryService

	queue chan time.Time
	done  chan struct{}

	mu     sync.Mutex
	closed bool
}

func NewRollupWorker(summary *services.SummaryService, queueSize int) *RollupWorker {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &RollupWorker{
		Summary: summary,
		queue:   make(chan time.Time, queueSize),
		done:    make(chan struct{}),
	}
}

// Start launches the single consumer goroutine.
func (w *RollupWorker) Start() {
	log.Printf("Rollup worker started (queue size %d)", cap(w.queue))
	go w.run()
}

func (w *RollupWorker) run() {
	defer close(w.done)
	for day := range w.queue {
		if err := w.Summary.GenerateHourlyRollups(day); err != nil {
			log.Printf("Rollup worker: failed to regenerate %s: %v", day.Format("2006-01-02"), err)
			continue
		}
		log.Printf("Rollup worker: refreshed rollups for %s", day.Format("2006-01-02"))
	}
}

// Enqueue schedules a date for regeneration without blocking. It returns
// false when the queue is full or the worker is stopping; such dates are
// picked up by the backfill sweep.
func (w *RollupWorker) Enqueue(day time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return false
	}

	select {
	case w.queue <- day:
		return true
	default:
		return false
	}
}

// Stop closes the queue and waits for the consumer to drain everything
// already enqueued.
func (w *RollupWorker) Stop() {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()

	<-w.done
	log.Println("Rollup worker stopped")
}
