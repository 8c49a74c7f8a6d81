package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	batchuc "github.com/kailas-cloud/leadsearch/internal/usecase/batch"
)

// ListContacts handles GET /api/v1/contacts.
func (s *Server) ListContacts(w http.ResponseWriter, r *http.Request) {
	var (
		cursor string
		limit  int
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "cursor", q, &cursor); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid cursor")
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", q, &limit); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid limit")
		return
	}
	if limit < 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "limit must be non-negative")
		return
	}

	contacts, next, err := s.contacts.List(r.Context(), cursor, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := ContactListResponse{Items: make([]ContactResponse, len(contacts))}
	for i, c := range contacts {
		resp.Items[i] = contactToResponse(c)
	}
	if next != "" {
		resp.NextCursor = &next
		resp.HasMore = true
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateContact handles POST /api/v1/contacts.
func (s *Server) CreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, crm := req.ToDomain()
	c, err := s.contacts.Create(r.Context(), f, crm)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, contactToResponse(c))
}

// GetContact handles GET /api/v1/contacts/{id}.
func (s *Server) GetContact(w http.ResponseWriter, r *http.Request) {
	c, err := s.contacts.Get(r.Context(), gochi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, contactToResponse(c))
}

// UpsertContact handles PUT /api/v1/contacts/{id}.
func (s *Server) UpsertContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !s.decode(w, r, &req) {
		return
	}
	f, crm := req.ToDomain()
	c, created, err := s.contacts.Upsert(r.Context(), gochi.URLParam(r, "id"), f, crm)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, contactToResponse(c))
}

// DeleteContact handles DELETE /api/v1/contacts/{id}.
func (s *Server) DeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.contacts.Delete(r.Context(), gochi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchImport handles POST /api/v1/contacts/batch.
func (s *Server) BatchImport(w http.ResponseWriter, r *http.Request) {
	var req BatchImportRequest
	if !s.decode(w, r, &req) {
		return
	}
	items := make([]batchuc.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = it.ToBatchItem()
	}
	writeJSON(w, http.StatusOK, batchToResponse(s.batch.Import(r.Context(), items)))
}

// BatchDelete handles POST /api/v1/contacts/batch-delete.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !s.decode(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, batchToResponse(s.batch.Delete(r.Context(), req.IDs)))
}
