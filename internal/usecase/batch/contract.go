package batch

import (
	"context"

	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// BulkUpserter writes many contacts in one round trip.
type BulkUpserter interface {
	UpsertBatch(ctx context.Context, contacts []domcontact.Contact) error
}

// ContactDeleter deletes a single contact.
type ContactDeleter interface {
	Delete(ctx context.Context, id string) error
}

// SnapshotInvalidator drops cached contact snapshots after writes.
type SnapshotInvalidator interface {
	Invalidate()
}
