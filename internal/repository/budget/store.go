// Package budget persists completion token counters per period.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/leadsearch/internal/db"
)

type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	IncrByExpire(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store keeps one counter per provider and period. Daily and monthly keys
// expire a little after their period ends, so old periods clean themselves up.
// It implements usecase/completion.BudgetStore.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Non-positive TTLs fall back to 48h for daily
// keys and 62 days for monthly keys.
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = 48 * time.Hour
	}
	if monthTTL <= 0 {
		monthTTL = 62 * 24 * time.Hour
	}
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds val tokens to the counter at key. The first write of a period
// fixes its expiry.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.store.IncrByExpire(ctx, key, val, s.ttlFor(key)); err != nil {
		return fmt.Errorf("budget incr %s: %w", key, err)
	}
	return nil
}

// Get returns the counter at key, 0 when the period has no usage yet.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	data, err := s.store.Get(ctx, key)
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("budget get %s: %w", key, err)
	}

	val, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("budget %s: corrupt counter %q: %w", key, data, err)
	}
	return val, nil
}

// ttlFor picks the TTL from the period segment of a
// <prefix>budget:<provider>:<daily|monthly>:<date> key.
func (s *Store) ttlFor(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
