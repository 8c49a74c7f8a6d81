// Package batch imports and deletes contacts in bulk with per-item results.
package batch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	dombatch "github.com/kailas-cloud/leadsearch/internal/domain/batch"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// MaxBatchSize is the maximum number of items per request.
const MaxBatchSize = 1000

// chunkSize bounds a single storage write.
const chunkSize = 200

// Item is one contact to import. An empty ID gets a generated one.
type Item struct {
	ID        string
	Fields    domcontact.Fields
	CRM       domcontact.CRM
	CreatedAt time.Time
}

// Service handles bulk contact operations.
type Service struct {
	upserter     BulkUpserter
	deleter      ContactDeleter
	invalidator  SnapshotInvalidator
	maxBatchSize int
}

// New creates a batch service. invalidator may be nil.
func New(upserter BulkUpserter, deleter ContactDeleter, invalidator SnapshotInvalidator) *Service {
	return &Service{
		upserter:     upserter,
		deleter:      deleter,
		invalidator:  invalidator,
		maxBatchSize: MaxBatchSize,
	}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// Import validates every item and stores the valid ones in chunks.
// Invalid items fail individually; a storage failure fails its whole chunk.
func (s *Service) Import(ctx context.Context, items []Item) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(i, item.ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidContact))
		}
		return results
	}

	valid := make([]domcontact.Contact, 0, len(items))
	validIdx := make([]int, 0, len(items))
	for i, item := range items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		c, err := domcontact.New(id, item.Fields, item.CRM, item.CreatedAt)
		if err != nil {
			results[i] = dombatch.NewError(i, item.ID, fmt.Errorf("%w: %w", domain.ErrInvalidContact, err))
			continue
		}
		valid = append(valid, c)
		validIdx = append(validIdx, i)
	}

	wrote := false
	for start := 0; start < len(valid); start += chunkSize {
		end := min(start+chunkSize, len(valid))
		err := s.upserter.UpsertBatch(ctx, valid[start:end])
		for k := start; k < end; k++ {
			i := validIdx[k]
			if err != nil {
				results[i] = dombatch.NewError(i, valid[k].ID(), fmt.Errorf("batch upsert: %w", err))
				continue
			}
			results[i] = dombatch.NewOK(i, valid[k].ID())
		}
		wrote = wrote || err == nil
	}

	if wrote {
		s.invalidate()
	}
	return results
}

// Delete removes contacts by ID.
func (s *Service) Delete(ctx context.Context, ids []string) []dombatch.Result {
	results := make([]dombatch.Result, len(ids))

	if len(ids) > s.maxBatchSize {
		for i, id := range ids {
			results[i] = dombatch.NewError(i, id,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidContact))
		}
		return results
	}

	deleted := false
	for i, id := range ids {
		if err := s.deleter.Delete(ctx, id); err != nil {
			results[i] = dombatch.NewError(i, id, fmt.Errorf("delete: %w", err))
			continue
		}
		results[i] = dombatch.NewOK(i, id)
		deleted = true
	}

	if deleted {
		s.invalidate()
	}
	return results
}

func (s *Service) invalidate() {
	if s.invalidator != nil {
		s.invalidator.Invalidate()
	}
}
