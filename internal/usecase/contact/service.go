// Package contact manages contacts and the in-process snapshot that search
// sessions read from.
package contact

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
)

const snapshotKey = "contacts"

// Service handles contact CRUD and caches the full contact list.
type Service struct {
	repo            Repository
	cache           *gocache.Cache
	snapshotTTL     time.Duration
	group           singleflight.Group
	generation      atomic.Uint64
	now             func() time.Time
	defaultPageSize int
	maxPageSize     int
	logger          *zap.Logger
}

// New creates a contact service. snapshotTTL <= 0 disables snapshot caching.
func New(repo Repository, snapshotTTL time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		repo:            repo,
		snapshotTTL:     snapshotTTL,
		now:             func() time.Time { return time.Now().UTC() },
		defaultPageSize: 50,
		maxPageSize:     500,
		logger:          logger,
	}
	if snapshotTTL > 0 {
		s.cache = gocache.New(snapshotTTL, 2*snapshotTTL)
	}
	return s
}

// WithPagination configures page size limits.
func (s *Service) WithPagination(defaultPageSize, maxPageSize int) *Service {
	if defaultPageSize > 0 {
		s.defaultPageSize = defaultPageSize
	}
	if maxPageSize > 0 {
		s.maxPageSize = maxPageSize
	}
	return s
}

// Create stores a new contact under a generated ID.
func (s *Service) Create(ctx context.Context, f domcontact.Fields, crm domcontact.CRM) (domcontact.Contact, error) {
	c, err := domcontact.New(uuid.NewString(), f, crm, s.now())
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("%w: %w", domain.ErrInvalidContact, err)
	}
	if _, err := s.repo.Upsert(ctx, &c); err != nil {
		return domcontact.Contact{}, fmt.Errorf("create contact: %w", err)
	}
	s.Invalidate()
	return c, nil
}

// Upsert creates or replaces the contact with id. An existing contact keeps
// its creation time. Returns true if the contact was created.
func (s *Service) Upsert(
	ctx context.Context, id string, f domcontact.Fields, crm domcontact.CRM,
) (domcontact.Contact, bool, error) {
	now := s.now()
	c, err := domcontact.New(id, f, crm, now)
	if err != nil {
		return domcontact.Contact{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidContact, err)
	}

	existing, err := s.repo.Get(ctx, id)
	switch {
	case err == nil:
		c = c.Touch(existing.CreatedAt(), now)
	case !errors.Is(err, domain.ErrNotFound):
		return domcontact.Contact{}, false, fmt.Errorf("get contact: %w", err)
	}

	created, err := s.repo.Upsert(ctx, &c)
	if err != nil {
		return domcontact.Contact{}, false, fmt.Errorf("upsert contact: %w", err)
	}
	s.Invalidate()
	return c, created, nil
}

// Get returns a contact by ID.
func (s *Service) Get(ctx context.Context, id string) (domcontact.Contact, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("get contact: %w", err)
	}
	return c, nil
}

// List returns a page of contacts ordered by ID.
func (s *Service) List(ctx context.Context, cursor string, limit int) ([]domcontact.Contact, string, error) {
	if limit <= 0 {
		limit = s.defaultPageSize
	}
	if limit > s.maxPageSize {
		limit = s.maxPageSize
	}
	contacts, next, err := s.repo.List(ctx, cursor, limit)
	if err != nil {
		return nil, "", fmt.Errorf("list contacts: %w", err)
	}
	return contacts, next, nil
}

// Count returns the number of stored contacts.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// Delete removes a contact.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete contact: %w", err)
	}
	s.Invalidate()
	return nil
}

// Snapshot returns every contact. Concurrent misses share a single load and
// the result is cached until the TTL expires or a write invalidates it.
// Callers must not modify the returned slice.
func (s *Service) Snapshot(ctx context.Context) ([]domcontact.Contact, error) {
	if s.cache != nil {
		if v, ok := s.cache.Get(snapshotKey); ok {
			metrics.SnapshotCacheTotal.WithLabelValues("hit").Inc()
			return v.([]domcontact.Contact), nil
		}
	}
	metrics.SnapshotCacheTotal.WithLabelValues("miss").Inc()

	gen := s.generation.Load()
	v, err, _ := s.group.Do(snapshotKey, func() (any, error) {
		contacts, err := s.repo.All(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && s.generation.Load() == gen {
			s.cache.Set(snapshotKey, contacts, gocache.DefaultExpiration)
		}
		return contacts, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	contacts := v.([]domcontact.Contact)
	s.logger.Debug("contact snapshot loaded", zap.Int("contacts", len(contacts)))
	return contacts, nil
}

// Invalidate drops the cached snapshot.
func (s *Service) Invalidate() {
	s.generation.Add(1)
	s.group.Forget(snapshotKey)
	if s.cache != nil {
		s.cache.Delete(snapshotKey)
	}
}
