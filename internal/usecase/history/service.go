// Package history serves the per-owner recent search list. Storage failures
// never reach the caller: they are logged and reported as StatusDegraded.
package history

import (
	"context"
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domhistory "github.com/kailas-cloud/leadsearch/internal/domain/history"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
)

// Status reports whether storage was reachable.
type Status string

const (
	// StatusOK means the operation reached storage.
	StatusOK Status = "ok"
	// StatusDegraded means storage failed and the result is a fallback.
	StatusDegraded Status = "degraded"
)

// Service coordinates history operations.
type Service struct {
	store      Store
	maxEntries int
	logger     *zap.Logger
}

// New creates a Service. maxEntries <= 0 uses the default of 10.
func New(store Store, maxEntries int, logger *zap.Logger) *Service {
	if maxEntries <= 0 {
		maxEntries = domhistory.DefaultMaxEntries
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, maxEntries: maxEntries, logger: logger}
}

// Get returns the owner's entries, most recent first.
// On storage failure it returns an empty list.
func (s *Service) Get(ctx context.Context, owner string) ([]string, Status, error) {
	if err := checkOwner(owner); err != nil {
		return nil, "", err
	}
	entries, err := s.store.Load(ctx, owner)
	if err != nil {
		return []string{}, s.degraded("get", owner, err), nil
	}
	return domhistory.Normalize(entries, s.maxEntries), s.ok("get"), nil
}

// Add records query and returns the updated list. Blank queries are ignored.
// On storage failure the list that would have been written is still returned.
func (s *Service) Add(ctx context.Context, owner, query string) ([]string, Status, error) {
	if err := checkOwner(owner); err != nil {
		return nil, "", err
	}

	status := StatusOK
	entries, err := s.store.Load(ctx, owner)
	if err != nil {
		status = s.degraded("add", owner, err)
		entries = []string{}
	}
	entries = domhistory.Normalize(entries, s.maxEntries)

	if strings.TrimSpace(query) == "" {
		return entries, status, nil
	}

	updated := domhistory.Add(entries, query, s.maxEntries)
	if err := s.store.Save(ctx, owner, updated); err != nil {
		return updated, s.degraded("add", owner, err), nil
	}
	if status == StatusOK {
		s.ok("add")
	}
	return updated, status, nil
}

// Clear removes all entries.
func (s *Service) Clear(ctx context.Context, owner string) (Status, error) {
	if err := checkOwner(owner); err != nil {
		return "", err
	}
	if err := s.store.Delete(ctx, owner); err != nil {
		return s.degraded("clear", owner, err), nil
	}
	return s.ok("clear"), nil
}

// Suggest returns up to limit past queries fuzzy-matching prefix, best first.
// A blank prefix returns the most recent entries.
func (s *Service) Suggest(ctx context.Context, owner, prefix string, limit int) ([]string, Status, error) {
	entries, status, err := s.Get(ctx, owner)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}

	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return entries[:limit], status, nil
	}

	matches := fuzzy.Find(strings.ToLower(prefix), lowered(entries))
	out := make([]string, 0, min(limit, len(matches)))
	for _, m := range matches {
		if len(out) == limit {
			break
		}
		out = append(out, entries[m.Index])
	}
	return out, status, nil
}

func (s *Service) ok(op string) Status {
	metrics.HistoryOperationsTotal.WithLabelValues(op, string(StatusOK)).Inc()
	return StatusOK
}

func (s *Service) degraded(op, owner string, err error) Status {
	metrics.HistoryOperationsTotal.WithLabelValues(op, string(StatusDegraded)).Inc()
	s.logger.Warn("search history unavailable",
		zap.String("op", op),
		zap.String("owner", owner),
		zap.Error(err),
	)
	return StatusDegraded
}

func checkOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("history owner is required: %w", domain.ErrMissingOwner)
	}
	return nil
}

func lowered(entries []string) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = strings.ToLower(e)
	}
	return out
}
