package contact

import (
	"context"

	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// Repository defines the storage contract for contacts.
// Both the Redis and the Postgres repositories implement it.
type Repository interface {
	Upsert(ctx context.Context, c *domcontact.Contact) (created bool, err error)
	Get(ctx context.Context, id string) (domcontact.Contact, error)
	List(ctx context.Context, cursor string, limit int) (contacts []domcontact.Contact, nextCursor string, err error)
	All(ctx context.Context) ([]domcontact.Contact, error)
	Count(ctx context.Context) (int, error)
	Delete(ctx context.Context, id string) error
}
