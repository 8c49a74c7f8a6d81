// Package history persists per-owner search history lists.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/leadsearch/internal/db"
	"github.com/kailas-cloud/leadsearch/internal/domain"
)

// store is the consumer interface for history operations (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Store keeps each owner's history as a JSON array of strings at <prefix>history:<owner>.
type Store struct {
	store  store
	prefix string
	ttl    time.Duration
}

// New creates a Redis-backed history store. ttl <= 0 keeps lists forever.
func New(s store, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Store{store: s, prefix: prefix, ttl: ttl}
}

// Load returns the stored list. A missing key yields an empty list.
func (s *Store) Load(ctx context.Context, owner string) ([]string, error) {
	key := s.key(owner)
	data, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("history GET %s: %w", key, err)
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("history %s: corrupt value: %w", key, err)
	}
	if entries == nil {
		entries = []string{}
	}
	return entries, nil
}

// Save replaces the stored list.
func (s *Store) Save(ctx context.Context, owner string, entries []string) error {
	if entries == nil {
		entries = []string{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}

	key := s.key(owner)
	if err := s.store.Set(ctx, key, data, s.ttl); err != nil {
		return fmt.Errorf("history SET %s: %w", key, err)
	}
	return nil
}

// Delete removes the stored list.
func (s *Store) Delete(ctx context.Context, owner string) error {
	key := s.key(owner)
	if err := s.store.Del(ctx, key); err != nil {
		return fmt.Errorf("history DEL %s: %w", key, err)
	}
	return nil
}

func (s *Store) key(owner string) string {
	return s.prefix + "history:" + owner
}
