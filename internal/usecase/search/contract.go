package search

import (
	"context"

	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/usecase/history"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
)

// ContactSource returns the contacts a search runs over.
type ContactSource interface {
	Snapshot(ctx context.Context) ([]domcontact.Contact, error)
}

// FilterParser turns free text into a structured filter.
type FilterParser interface {
	Parse(ctx context.Context, query string) (nlfilter.Outcome, error)
}

// HistoryRecorder stores executed queries.
type HistoryRecorder interface {
	Add(ctx context.Context, owner, query string) ([]string, history.Status, error)
}
