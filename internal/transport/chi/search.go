package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/leadsearch/internal/domain"
	"github.com/kailas-cloud/leadsearch/internal/logger"
	"github.com/kailas-cloud/leadsearch/internal/metrics"
	"github.com/kailas-cloud/leadsearch/internal/usecase/nlfilter"
	searchuc "github.com/kailas-cloud/leadsearch/internal/usecase/search"
)

// Client-facing parse-filters messages.
const (
	msgQueryRequired  = "Query is required"
	msgRateLimited    = "Rate limit exceeded, please try again later"
	msgParseFailed    = "Failed to parse filters"
	msgBudgetExceeded = "Completion budget exhausted"
	msgNotConfigured  = "Filter parsing is not configured"
)

// ParseFilters handles POST /api/v1/search/parse-filters.
// Every response carries a filters object; errors replace success with error.
func (s *Server) ParseFilters(w http.ResponseWriter, r *http.Request) {
	query, ok := parseFiltersQuery(w, r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, ParseFiltersResponse{Error: msgQueryRequired})
		return
	}
	if s.filters == nil {
		writeJSON(w, http.StatusServiceUnavailable, ParseFiltersResponse{Error: msgNotConfigured})
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	outcome, err := s.filters.Parse(ctx, query)
	setCompletionHeaders(w, usage)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ParseFiltersResponse{Error: msgQueryRequired})
		return
	}

	switch outcome.Status {
	case nlfilter.StatusRateLimited:
		metrics.RateLimitedTotal.WithLabelValues("upstream").Inc()
		writeJSON(w, http.StatusTooManyRequests, ParseFiltersResponse{Error: msgRateLimited})
	case nlfilter.StatusDegraded:
		logger.FromContext(r.Context()).Warn("parse filters failed", zap.Error(outcome.Err))
		if errors.Is(outcome.Err, domain.ErrCompletionQuotaExceeded) {
			writeJSON(w, http.StatusPaymentRequired, ParseFiltersResponse{Error: msgBudgetExceeded})
			return
		}
		writeJSON(w, http.StatusBadGateway, ParseFiltersResponse{Error: msgParseFailed})
	default:
		writeJSON(w, http.StatusOK, ParseFiltersResponse{
			Filters: outcome.Filter,
			Query:   query,
			Success: true,
			Status:  string(outcome.Status),
		})
	}
}

// parseFiltersQuery extracts a non-blank string query from the body.
func parseFiltersQuery(w http.ResponseWriter, r *http.Request) (string, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ParseFiltersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Query) == 0 {
		return "", false
	}
	var query string
	if err := json.Unmarshal(req.Query, &query); err != nil {
		return "", false
	}
	query = strings.TrimSpace(query)
	return query, query != ""
}

// SearchContacts handles POST /api/v1/contacts/search.
func (s *Server) SearchContacts(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !s.decode(w, r, &req) {
		return
	}
	explicit, err := req.explicitFilter()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}
	if req.ParseFilters && s.limiter != nil && !s.limiter.Allow(clientKey(r)) {
		metrics.RateLimitedTotal.WithLabelValues("local").Inc()
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, CodeRateLimited, msgRateLimited)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.search.Search(ctx, searchuc.Request{
		Query:         req.Query,
		Filter:        explicit,
		ParseFilters:  req.ParseFilters,
		Threshold:     req.Threshold,
		Keys:          req.keys(),
		Limit:         req.Limit,
		Owner:         OwnerFromContext(r.Context()),
		RecordHistory: req.RecordHistory,
	})
	setCompletionHeaders(w, usage)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if resp.FilterStatus == nlfilter.StatusRateLimited {
		metrics.RateLimitedTotal.WithLabelValues("upstream").Inc()
	}

	out := SearchResponse{
		Items:         make([]SearchResultItem, len(resp.Results)),
		Total:         resp.Total,
		Filters:       resp.Filter,
		FilterStatus:  string(resp.FilterStatus),
		HistoryStatus: string(resp.HistoryStatus),
	}
	for i := range resp.Results {
		out.Items[i] = searchResultToResponse(&resp.Results[i], req.Highlight)
	}
	if resp.FilterError != nil {
		out.FilterError = safeDomainMessage(resp.FilterError)
	}
	writeJSON(w, http.StatusOK, out)
}
