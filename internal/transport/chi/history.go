package chi

import (
	"net/http"

	"github.com/oapi-codegen/runtime"
)

// GetHistory handles GET /api/v1/search/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	entries, status, err := s.history.Get(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: nonNil(entries), Status: string(status)})
}

// AddHistory handles POST /api/v1/search/history.
func (s *Server) AddHistory(w http.ResponseWriter, r *http.Request) {
	var req HistoryRequest
	if !s.decode(w, r, &req) {
		return
	}
	entries, status, err := s.history.Add(r.Context(), OwnerFromContext(r.Context()), req.Query)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: nonNil(entries), Status: string(status)})
}

// ClearHistory handles DELETE /api/v1/search/history.
func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	status, err := s.history.Clear(r.Context(), OwnerFromContext(r.Context()))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: []string{}, Status: string(status)})
}

// SuggestHistory handles GET /api/v1/search/history/suggest.
func (s *Server) SuggestHistory(w http.ResponseWriter, r *http.Request) {
	var (
		prefix string
		limit  int
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "q", q, &prefix); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid q")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit")
		return
	}

	entries, status, err := s.history.Suggest(r.Context(), OwnerFromContext(r.Context()), prefix, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{History: nonNil(entries), Status: string(status)})
}

func nonNil(entries []string) []string {
	if entries == nil {
		return []string{}
	}
	return entries
}
