// Package search runs contact searches: an optional natural-language filter
// parse, the structured filter pass, then fuzzy ranking.
package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	domcontact "github.com/kailas-cloud/leadsearch/internal/domain/contact"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/filter"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/fuzzy"
	"github.com/kailas-cloud/leadsearch/internal/domain/search/result"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
	"github.com/kailas-cloud/leadsearch/internal/usecase/history"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
)

// FilterStatusNone marks searches that did not ask for a filter parse.
const FilterStatusNone nlfilter.Status = "none"

// Request describes a search.
type Request struct {
	// Query is matched against contact fields. With ParseFilters it is also
	// sent to the filter parser; when that succeeds, the parsed text_search
	// is matched instead, if present.
	Query        string
	Filter       filter.Filter
	ParseFilters bool
	Threshold    *float64
	Keys         []fuzzy.Key
	Limit        int
	Owner        string
	// RecordHistory stores Query in Owner's search history.
	RecordHistory bool
}

// Response is the search outcome.
type Response struct {
	Results []result.Result
	// Total counts matches before Limit is applied.
	Total         int
	Filter        filter.Filter
	FilterStatus  nlfilter.Status
	FilterError   error
	HistoryStatus history.Status
}

// Service orchestrates searches.
type Service struct {
	contacts ContactSource
	parser   FilterParser
	history  HistoryRecorder
	opts     fuzzy.Options
	maxLimit int
	now      func() time.Time
	logger   *zap.Logger
}

// New creates a search service. parser and history may be nil.
func New(
	contacts ContactSource, parser FilterParser, hist HistoryRecorder,
	opts fuzzy.Options, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		contacts: contacts,
		parser:   parser,
		history:  hist,
		opts:     opts,
		maxLimit: 1000,
		now:      time.Now,
		logger:   logger,
	}
}

// WithMaxLimit caps Request.Limit.
func (s *Service) WithMaxLimit(n int) *Service {
	if n > 0 {
		s.maxLimit = n
	}
	return s
}

// Search runs req. Filter parse failures never fail the search; they are
// reported through FilterStatus and FilterError.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	opts, err := s.options(req)
	if err != nil {
		return Response{}, err
	}
	if req.ParseFilters && s.parser == nil {
		req.ParseFilters = false
	}
	if req.ParseFilters && strings.TrimSpace(req.Query) == "" {
		return Response{}, fmt.Errorf("query is required to parse filters: %w", domain.ErrInvalidQuery)
	}

	var contacts []domcontact.Contact
	outcome := nlfilter.Outcome{Status: FilterStatusNone}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		contacts, err = s.contacts.Snapshot(gctx)
		return err
	})
	if req.ParseFilters {
		g.Go(func() error {
			var err error
			outcome, err = s.parser.Parse(gctx, req.Query)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Response{}, fmt.Errorf("search: %w", err)
	}

	merged := filter.Merge(outcome.Filter, req.Filter)
	exact := merged
	if outcome.Status == nlfilter.StatusOK {
		// Parsed text_search is ranked by the matcher instead of filtered on.
		exact.TextSearch = nil
	}

	candidates := exact.Apply(contacts, s.now())
	hits := s.rank(candidates, req.Query, merged, outcome.Status, opts)

	limit := req.Limit
	if limit <= 0 || limit > s.maxLimit {
		limit = s.maxLimit
	}
	total := len(hits)
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]result.Result, len(hits))
	for i, h := range hits {
		results[i] = result.New(candidates[h.Index], h.Score, h.Matches)
	}

	resp := Response{
		Results:      results,
		Total:        total,
		Filter:       merged,
		FilterStatus: outcome.Status,
		FilterError:  outcome.Err,
	}
	resp.HistoryStatus = s.record(ctx, req)

	metrics.SearchRequestsTotal.WithLabelValues(string(outcome.Status)).Inc()
	metrics.SearchResults.Observe(float64(len(results)))

	s.logger.Debug("search completed",
		zap.Int("contacts", len(contacts)),
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", total),
		zap.String("filter_status", string(outcome.Status)),
	)
	return resp, nil
}

// rank orders the filtered candidates. A parsed text_search is matched on its
// own; without one the raw query is matched, and when it matches nothing the
// filtered set is returned in input order.
func (s *Service) rank(
	candidates []domcontact.Contact, query string, merged filter.Filter,
	status nlfilter.Status, opts fuzzy.Options,
) []fuzzy.Hit {
	if status != nlfilter.StatusOK {
		return fuzzy.Search(candidates, contactField, query, opts)
	}
	if merged.TextSearch != nil {
		return fuzzy.Search(candidates, contactField, *merged.TextSearch, opts)
	}
	if hits := fuzzy.Search(candidates, contactField, query, opts); len(hits) > 0 {
		return hits
	}
	return fuzzy.Search(candidates, contactField, "", opts)
}

func (s *Service) record(ctx context.Context, req Request) history.Status {
	if !req.RecordHistory || s.history == nil || strings.TrimSpace(req.Query) == "" {
		return ""
	}
	_, status, err := s.history.Add(ctx, req.Owner, req.Query)
	if err != nil {
		if !errors.Is(err, domain.ErrMissingOwner) {
			s.logger.Warn("record search history", zap.Error(err))
		}
		return ""
	}
	return status
}

func (s *Service) options(req Request) (fuzzy.Options, error) {
	opts := s.opts
	if req.Threshold != nil {
		opts.Threshold = *req.Threshold
	}
	if len(req.Keys) > 0 {
		opts.Keys = req.Keys
	}
	if err := opts.Validate(); err != nil {
		return fuzzy.Options{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	return opts, nil
}

func contactField(c domcontact.Contact, key string) string {
	return c.Field(key)
}
