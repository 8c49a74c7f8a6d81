package history

import "context"

// Store persists one history list per owner.
type Store interface {
	Load(ctx context.Context, owner string) ([]string, error)
	Save(ctx context.Context, owner string, entries []string) error
	Delete(ctx context.Context, owner string) error
}
