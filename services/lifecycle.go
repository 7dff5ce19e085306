package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/haiminhdev/callstat/internal/config"
)

// ErrInvalidResetToken is returned when ResetAll is called without the
// out-of-band confirmation token.
var ErrInvalidResetToken = errors.New("invalid reset confirmation token")

// LifecycleService owns the destructive operations on the event store.
// Unlike the bulk loader, both operations here are all-or-nothing: they run
// inside a single transaction and roll back fully on any failure.
type LifecycleService struct {
	PG    *sql.DB
	Redis *redis.Client
}

func NewLifecycleService(pg *sql.DB, redisClient *redis.Client) *LifecycleService {
	return &LifecycleService{PG: pg, Redis: redisClient}
}

// DeleteByDate removes all events and rollups for one date atomically.
func (s *LifecycleService) DeleteByDate(date time.Time) error {
	day := dateOnly(date)

	tx, err := s.PG.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin delete transaction: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM call_events WHERE call_date = $1`, day); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete events for %s: %w", day.Format("2006-01-02"), err)
	}

	if _, err := tx.Exec(`DELETE FROM hourly_rollups WHERE call_date = $1`, day); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to delete rollups for %s: %w", day.Format("2006-01-02"), err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete for %s: %w", day.Format("2006-01-02"), err)
	}

	s.invalidateDailyCache(day)
	log.Printf("Deleted all events and rollups for %s", day.Format("2006-01-02"))
	return nil
}

// ResetAll truncates the event store, the rollup store and the import ledger.
// Administrative recovery only; the caller must supply the configured
// confirmation token.
func (s *LifecycleService) ResetAll(confirmToken string) error {
	expected := config.App.ResetToken
	if expected == "" ||
		subtle.ConstantTimeCompare([]byte(confirmToken), []byte(expected)) != 1 {
		return ErrInvalidResetToken
	}

	tx, err := s.PG.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}

	if _, err := tx.Exec(`TRUNCATE call_events, hourly_rollups, import_ledger RESTART IDENTITY`); err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to truncate stores: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reset: %w", err)
	}

	s.flushDailyCache()
	log.Printf("⚠️  Full store reset executed")
	return nil
}

// flushDailyCache drops every cached daily summary after a reset.
func (s *LifecycleService) flushDailyCache() {
	if s.Redis == nil {
		return
	}

	ctx := context.Background()
	keys, err := s.Redis.Keys(ctx, dailyCachePrefix+"*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	if err := s.Redis.Del(ctx, keys...).Err(); err != nil {
		log.Printf("Failed to flush daily summary cache: %v", err)
	}
}

func (s *LifecycleService) invalidateDailyCache(day time.Time) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(context.Background(), dailyCacheKey(day)).Err(); err != nil {
		log.Printf("Failed to invalidate daily summary cache for %s: %v", day.Format("2006-01-02"), err)
	}
}
