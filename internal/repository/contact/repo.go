package contact

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/leadsearch/internal/db"
	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

const (
	defaultPageSize = 50
	loadBatchSize   = 500
)

// store is the consumer interface for contacts (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	IndexAdd(ctx context.Context, key string, members ...string) error
	IndexRemove(ctx context.Context, key string, members ...string) error
	IndexRange(ctx context.Context, key, after string, limit int) ([]string, error)
	IndexCount(ctx context.Context, key string) (int, error)
}

// Repo implements usecase/contact.Repository on Redis hashes.
// Each contact is a hash at <prefix>contact:<id>; <prefix>contacts is a
// lexicographic ID index used for listing.
type Repo struct {
	store  store
	prefix string
}

// New creates a contact repository. An empty prefix uses domain.KeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Repo{store: s, prefix: prefix}
}

// Upsert creates or replaces a contact. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, c *domcontact.Contact) (bool, error) {
	key := r.contactKey(c.ID())
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, contactToHash(c)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.store.IndexAdd(ctx, r.indexKey(), c.ID()); err != nil {
		return false, fmt.Errorf("index %s: %w", c.ID(), err)
	}
	return !exists, nil
}

// UpsertBatch writes many contacts in a single pipelined round-trip.
func (r *Repo) UpsertBatch(ctx context.Context, contacts []domcontact.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(contacts))
	ids := make([]string, len(contacts))
	for i := range contacts {
		items[i] = db.HashSetItem{Key: r.contactKey(contacts[i].ID()), Fields: contactToHash(&contacts[i])}
		ids[i] = contacts[i].ID()
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch: %w", err)
	}
	if err := r.store.IndexAdd(ctx, r.indexKey(), ids...); err != nil {
		return fmt.Errorf("index batch: %w", err)
	}
	return nil
}

// Get returns a contact by ID.
func (r *Repo) Get(ctx context.Context, id string) (domcontact.Contact, error) {
	key := r.contactKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domcontact.Contact{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domcontact.Contact{}, domain.ErrNotFound
	}
	return contactFromHash(m)
}

// List returns a page of contacts ordered by ID. The returned cursor is empty on the last page.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domcontact.Contact, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	ids, err := r.store.IndexRange(ctx, r.indexKey(), cursor, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list contacts: %w", err)
	}

	var next string
	if len(ids) > limit {
		ids = ids[:limit]
		next = ids[limit-1]
	}

	contacts, err := r.load(ctx, ids)
	if err != nil {
		return nil, "", err
	}
	return contacts, next, nil
}

// All returns every contact ordered by ID.
func (r *Repo) All(ctx context.Context) ([]domcontact.Contact, error) {
	var out []domcontact.Contact
	after := ""
	for {
		ids, err := r.store.IndexRange(ctx, r.indexKey(), after, loadBatchSize)
		if err != nil {
			return nil, fmt.Errorf("load contacts: %w", err)
		}
		if len(ids) == 0 {
			return out, nil
		}
		page, err := r.load(ctx, ids)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(ids) < loadBatchSize {
			return out, nil
		}
		after = ids[len(ids)-1]
	}
}

// Count returns the number of indexed contacts.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.IndexCount(ctx, r.indexKey())
	if err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return n, nil
}

// Delete removes a contact.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := r.contactKey(id)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.IndexRemove(ctx, r.indexKey(), id); err != nil {
		return fmt.Errorf("unindex %s: %w", id, err)
	}
	return nil
}

// load fetches contacts by ID, skipping index entries whose hash is gone.
func (r *Repo) load(ctx context.Context, ids []string) ([]domcontact.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.contactKey(id)
	}
	maps, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}

	out := make([]domcontact.Contact, 0, len(maps))
	for _, m := range maps {
		if len(m) == 0 {
			continue
		}
		c, err := contactFromHash(m)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *Repo) contactKey(id string) string {
	return fmt.Sprintf("%scontact:%s", r.prefix, id)
}

func (r *Repo) indexKey() string {
	return r.prefix + "contacts"
}
