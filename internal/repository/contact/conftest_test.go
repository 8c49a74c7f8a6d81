package contact

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/leadsearch/internal/db"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hsetMultiFn    func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, key string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	indexAddFn     func(ctx context.Context, key string, members ...string) error
	indexRemoveFn  func(ctx context.Context, key string, members ...string) error
	indexRangeFn   func(ctx context.Context, key, after string, limit int) ([]string, error)
	indexCountFn   func(ctx context.Context, key string) (int, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return make([]map[string]string, len(keys)), nil
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) IndexAdd(ctx context.Context, key string, members ...string) error {
	if m.indexAddFn != nil {
		return m.indexAddFn(ctx, key, members...)
	}
	return nil
}

func (m *mockStore) IndexRemove(ctx context.Context, key string, members ...string) error {
	if m.indexRemoveFn != nil {
		return m.indexRemoveFn(ctx, key, members...)
	}
	return nil
}

func (m *mockStore) IndexRange(ctx context.Context, key, after string, limit int) ([]string, error) {
	if m.indexRangeFn != nil {
		return m.indexRangeFn(ctx, key, after, limit)
	}
	return nil, nil
}

func (m *mockStore) IndexCount(ctx context.Context, key string) (int, error) {
	if m.indexCountFn != nil {
		return m.indexCountFn(ctx, key)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, ""), ms
}

func ptr[T any](v T) *T { return &v }

func testContact(t *testing.T, id string) domcontact.Contact {
	t.Helper()
	c, err := domcontact.New(id,
		domcontact.Fields{Name: "Ana Martínez", Email: "ana@acme.es", Company: "Acme", Industry: "Logística", Location: "Sevilla"},
		domcontact.CRM{Revenue: ptr(1_500_000.0), Employees: ptr(25), Status: domcontact.StatusQualified, LeadStatus: domcontact.LeadNegociacion},
		time.UnixMilli(1700000000000).UTC(),
	)
	if err != nil {
		t.Fatalf("new contact: %v", err)
	}
	return c
}
