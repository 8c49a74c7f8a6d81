// Package postgres stores contacts in a relational "contacts" table via gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

const (
	defaultPageSize = 50
	batchSize       = 200
)

// Repo implements usecase/contact.Repository on Postgres.
type Repo struct {
	db *gorm.DB
}

// New creates a Postgres contact repository.
func New(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// Migrate creates or updates the contacts table.
func (r *Repo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&contactModel{}); err != nil {
		return fmt.Errorf("migrate contacts: %w", err)
	}
	return nil
}

// Upsert creates or replaces a contact. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, c *domcontact.Contact) (bool, error) {
	var created bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&contactModel{}).Where("id = ?", c.ID()).Count(&n).Error; err != nil {
			return fmt.Errorf("count %s: %w", c.ID(), err)
		}
		created = n == 0
		m := toModel(c)
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
			return fmt.Errorf("upsert %s: %w", c.ID(), err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return created, nil
}

// UpsertBatch writes many contacts in batches.
func (r *Repo) UpsertBatch(ctx context.Context, contacts []domcontact.Contact) error {
	if len(contacts) == 0 {
		return nil
	}
	rows := make([]contactModel, len(contacts))
	for i := range contacts {
		rows[i] = toModel(&contacts[i])
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		CreateInBatches(rows, batchSize).Error
	if err != nil {
		return fmt.Errorf("upsert batch: %w", err)
	}
	return nil
}

// Get returns a contact by ID.
func (r *Repo) Get(ctx context.Context, id string) (domcontact.Contact, error) {
	var m contactModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domcontact.Contact{}, domain.ErrNotFound
		}
		return domcontact.Contact{}, fmt.Errorf("get %s: %w", id, err)
	}
	return m.toDomain(), nil
}

// List returns a page of contacts ordered by ID. The returned cursor is empty on the last page.
func (r *Repo) List(ctx context.Context, cursor string, limit int) ([]domcontact.Contact, string, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	q := r.db.WithContext(ctx).Order("id").Limit(limit + 1)
	if cursor != "" {
		q = q.Where("id > ?", cursor)
	}
	var rows []contactModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, "", fmt.Errorf("list contacts: %w", err)
	}

	var next string
	if len(rows) > limit {
		rows = rows[:limit]
		next = rows[limit-1].ID
	}
	return toDomainSlice(rows), next, nil
}

// All returns every contact ordered by ID.
func (r *Repo) All(ctx context.Context) ([]domcontact.Contact, error) {
	var out []domcontact.Contact
	var batch []contactModel
	err := r.db.WithContext(ctx).Order("id").
		FindInBatches(&batch, batchSize, func(_ *gorm.DB, _ int) error {
			out = append(out, toDomainSlice(batch)...)
			return nil
		}).Error
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	return out, nil
}

// Count returns the number of contacts.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&contactModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count contacts: %w", err)
	}
	return int(n), nil
}

// Delete removes a contact.
func (r *Repo) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&contactModel{})
	if res.Error != nil {
		return fmt.Errorf("delete %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func toDomainSlice(rows []contactModel) []domcontact.Contact {
	out := make([]domcontact.Contact, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain()
	}
	return out
}
